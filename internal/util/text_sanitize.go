package util

import (
	"regexp"
	"strings"
)

// hyphenBreak matches a word split across lines by a PDF extractor.
var hyphenBreak = regexp.MustCompile(`(\p{L})-\n\s*(\p{Ll})`)

// SanitizeText removes bytes and control characters that Postgres text columns reject
// (especially NUL / 0x00 from some PDF extractors).
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")

	r := make([]rune, 0, len(s))
	for _, ch := range s {
		switch {
		case ch == '\n' || ch == '\t':
			r = append(r, ch)
		case ch == '\r' || ch == '\f' || ch == '\v':
			r = append(r, '\n')
		case ch < 0x20 || ch == 0x7f:
		default:
			r = append(r, ch)
		}
	}
	return strings.TrimSpace(string(r))
}

// NormalizeDocument prepares submitted text for segmentation: sanitized, with
// line-break hyphenation rejoined.
func NormalizeDocument(s string) string {
	s = SanitizeText(s)
	return hyphenBreak.ReplaceAllString(s, "$1$2")
}
