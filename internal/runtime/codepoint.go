package runtime

import "unicode/utf8"

// Codepoint utilities: candela strings are UTF-8 byte sequences, but
// count/nth/subs index by codepoint, not byte (spec.md overview row
// "Codepoint utils"). Nothing else in the module calls these helpers; the
// reader and the builtins do not index strings by codepoint.

// RuneCount returns the number of Unicode scalar values in s.
func RuneCount(s string) int { return utf8.RuneCountInString(s) }

// RuneAt returns the i'th codepoint of s (0-indexed) and true, or (0,
// false) if i is out of range.
func RuneAt(s string, i int) (rune, bool) {
	if i < 0 {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if n == i {
			return r, true
		}
		n++
	}
	return 0, false
}

// RuneSlice returns the codepoints [start, end) of s as a string. end may
// be -1 to mean "to the end".
func RuneSlice(s string, start, end int) (string, bool) {
	if start < 0 {
		return "", false
	}
	runes := []rune(s)
	if end < 0 {
		end = len(runes)
	}
	if start > len(runes) || end > len(runes) || start > end {
		return "", false
	}
	return string(runes[start:end]), true
}
