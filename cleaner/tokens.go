package cleaner

import "unicode/utf8"

// EstimateTokens returns a rough token count: utf8 rune count / 3.
// English averages ~4 chars/token and CJK ~1.5, so 3 slightly over-estimates
// mixed content.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	est := n / 3
	if est < 1 {
		return 1
	}
	return est
}

// Truncate returns the first max runes of s. It never splits a rune.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
