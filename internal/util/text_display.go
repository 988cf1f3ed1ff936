package util

import (
	"strings"
	"unicode"
)

// Snippet flattens whitespace, drops non-printing runes and cuts s to
// maxRunes with an ellipsis.
func Snippet(s string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = 120
	}
	s = strings.Join(strings.Fields(SanitizeText(s)), " ")
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsPrint(r) {
			out = append(out, r)
		}
	}
	if len(out) > maxRunes {
		return strings.TrimSpace(string(out[:maxRunes])) + "..."
	}
	return string(out)
}
