package common

import (
	"strings"
	"unicode"
)

// HasAny returns true if s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// FoldName lower-cases and trims a station name so that "Dwarka" and
// "dwarka " compare equal.
func FoldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CompactKey folds s and drops everything that is not a letter or digit,
// so "PM2.5", "pm_25" and "pm25" share one key.
func CompactKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
