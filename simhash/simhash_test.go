package simhash

import (
	"reflect"
	"strings"
	"testing"
)

const article = `City council approved the new transit budget on Tuesday after a long debate.
The plan adds three bus lines, extends tram service to the airport and freezes fares until next spring.`

func TestFingerprint_IdenticalTexts(t *testing.T) {
	if Fingerprint(article) != Fingerprint(article) {
		t.Error("identical texts produced different fingerprints")
	}
}

func TestFingerprint_IgnoresCaseAndPunctuation(t *testing.T) {
	noisy := strings.ToUpper(strings.NewReplacer(",", " ,", ".", "!!", "\n", "   ").Replace(article))
	if d := Distance(Fingerprint(article), Fingerprint(noisy)); d != 0 {
		t.Errorf("case and punctuation changed the fingerprint, distance %d", d)
	}
}

func TestFingerprint_DifferentTexts(t *testing.T) {
	other := "Completely unrelated content about quantum physics, prime numbers and the history of mathematics in Europe."
	if d := Distance(Fingerprint(article), Fingerprint(other)); d < 5 {
		t.Errorf("very different texts have too small distance: %d", d)
	}
}

func TestFingerprint_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   \t\n  ", "!!! ... ---"} {
		if fp := Fingerprint(in); fp != 0 {
			t.Errorf("Fingerprint(%q) = %064b, want 0", in, fp)
		}
	}
}

func TestFingerprint_ShortText(t *testing.T) {
	fp := Fingerprint("hello")
	if fp == 0 {
		t.Error("single word should produce a non-zero fingerprint")
	}
	if fp != Fingerprint("Hello!") {
		t.Error("short texts should be normalized like long ones")
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want int
	}{
		{"identical", 0xFF, 0xFF, 0},
		{"all different", 0, ^uint64(0), 64},
		{"one bit", 0, 1, 1},
		{"two bits", 0, 3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); got != tt.want {
				t.Errorf("Distance(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSimilar(t *testing.T) {
	fp1 := Fingerprint("the quick brown fox")
	fp3 := Fingerprint("a completely different text about nothing related")
	dist := Distance(fp1, fp3)

	if !Similar(fp1, fp1, 0) {
		t.Error("identical fingerprints should be similar at threshold 0")
	}
	if Similar(fp1, fp3, dist-1) {
		t.Errorf("should not be similar at threshold %d (distance is %d)", dist-1, dist)
	}
	if !Similar(fp1, fp3, dist) {
		t.Errorf("should be similar at threshold equal to distance (%d)", dist)
	}
}

func TestUnique(t *testing.T) {
	other := "Completely unrelated content about quantum physics, prime numbers and the history of mathematics in Europe."
	texts := []string{article, "", other, strings.ToUpper(article), ""}

	tests := []struct {
		name      string
		threshold int
		want      []int
	}{
		{"drops copies", 3, []int{0, 1, 2, 4}},
		{"exact only", 0, []int{0, 1, 2, 4}},
		{"disabled", -1, []int{0, 1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Unique(texts, tt.threshold); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Unique() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := Unique(nil, 3); len(got) != 0 {
		t.Errorf("Unique(nil) = %v, want empty", got)
	}
}

func TestShingles(t *testing.T) {
	got := shingles([]string{"a", "b", "c", "d"}, 3)
	if want := []string{"a_b_c", "b_c_d"}; !reflect.DeepEqual(got, want) {
		t.Errorf("shingles() = %v, want %v", got, want)
	}
	if got := shingles([]string{"a", "b"}, 3); got != nil {
		t.Errorf("expected nil for fewer tokens than n, got: %v", got)
	}
}
