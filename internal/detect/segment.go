// Package detect holds the lexical overlap pipeline: sentence segmentation,
// query grouping, bigram scoring, per-source matching, citation checks and
// report aggregation. Everything here is pure and safe for concurrent use.
package detect

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"simscan/internal/models"
)

// MinSentenceRunes is the shortest sentence kept by Segment.
const MinSentenceRunes = 21

var newlineJoiner = strings.NewReplacer("\r\n", " ", "\n\n", " ", "\n", " ", "\r", " ")

// Segment splits text into sentences on '.', '!' or '?' followed by
// whitespace, optionally with one closing quote mark in between. Pieces
// shorter than MinSentenceRunes are dropped; indices stay dense over what is
// kept.
func Segment(text string) []models.Sentence {
	flat := newlineJoiner.Replace(text)
	out := make([]models.Sentence, 0, strings.Count(flat, ". ")+1)
	add := func(piece string) {
		piece = strings.TrimSpace(piece)
		if utf8.RuneCountInString(piece) < MinSentenceRunes {
			return
		}
		out = append(out, models.Sentence{Index: len(out), Text: piece})
	}

	start := 0
	for i := 0; i < len(flat); {
		r, size := utf8.DecodeRuneInString(flat[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if q, qsize := utf8.DecodeRuneInString(flat[i:]); isClosingQuote(q) {
			i += qsize
		}
		j := i
		for j < len(flat) {
			ws, wsize := utf8.DecodeRuneInString(flat[j:])
			if !unicode.IsSpace(ws) {
				break
			}
			j += wsize
		}
		if j == i {
			continue
		}
		add(flat[start:i])
		start = j
		i = j
	}
	if start < len(flat) {
		add(flat[start:])
	}
	return out
}

func isClosingQuote(r rune) bool {
	switch r {
	case '"', '\'', '’', '”', '»':
		return true
	}
	return false
}
