// Package simhash fingerprints page text so near-identical sources
// (syndicated articles, mirrors, AMP copies) can be collapsed.
package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
	"unicode"
)

// shingleSize is the word n-gram length used for fingerprints.
const shingleSize = 3

// Fingerprint computes a 64-bit SimHash of text. Words are lower-cased and
// stripped of punctuation, then hashed as overlapping 3-word shingles with
// FNV-64a. Texts shorter than one shingle are hashed word by word.
func Fingerprint(text string) uint64 {
	words := tokenize(text)
	if len(words) == 0 {
		return 0
	}

	features := shingles(words, shingleSize)
	if len(features) == 0 {
		features = words
	}

	var vector [64]int
	for _, f := range features {
		h := fnv.New64a()
		h.Write([]byte(f))
		hash := h.Sum64()

		for i := 0; i < 64; i++ {
			if hash&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fingerprint uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fingerprint |= 1 << uint(i)
		}
	}
	return fingerprint
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar reports whether a and b are within threshold bits of each other.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}

// Unique returns the indices of texts to keep, in order, dropping any text
// whose fingerprint is within threshold of an earlier kept one. Empty texts
// are always kept. A negative threshold keeps everything.
func Unique(texts []string, threshold int) []int {
	keep := make([]int, 0, len(texts))
	var seen []uint64
	for i, t := range texts {
		fp := Fingerprint(t)
		if threshold < 0 || fp == 0 {
			keep = append(keep, i)
			continue
		}
		dup := false
		for _, s := range seen {
			if Similar(fp, s, threshold) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen = append(seen, fp)
		keep = append(keep, i)
	}
	return keep
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// shingles creates n-gram shingles from a slice of tokens.
func shingles(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	out := make([]string, 0, len(tokens)-n+1)
	for i := 0; i <= len(tokens)-n; i++ {
		out = append(out, strings.Join(tokens[i:i+n], "_"))
	}
	return out
}
