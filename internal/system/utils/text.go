package utils

import (
	"strings"
	"unicode/utf8"
)

// TruncateUTF8 returns s cut to at most maxBytes bytes without splitting a
// rune. Invalid byte sequences are replaced first so the result is always
// valid UTF-8.
func TruncateUTF8(s string, maxBytes int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
