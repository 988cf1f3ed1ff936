package detect

import (
	"strings"
	"unicode"
)

const (
	// MinTokens is the token count below which a span never scores.
	MinTokens    = 3
	minTokenLen  = 3
	bigramJoiner = " "
)

// Tokenize lowercases s, strips everything except ASCII word characters and
// whitespace, and keeps tokens longer than two characters.
func Tokenize(s string) []string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if isWordRune(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	fields := strings.Fields(b.String())
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= minTokenLen {
			out = append(out, f)
		}
	}
	return out
}

func isWordRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// Score is the Dice coefficient over word bigrams of a and b.
func Score(a, b string) float64 {
	return ScoreTokens(Tokenize(a), Tokenize(b))
}

// ScoreTokens is Score over already tokenized spans.
func ScoreTokens(a, b []string) float64 {
	if len(a) < MinTokens || len(b) < MinTokens {
		return 0
	}
	ba, bb := bigrams(a), bigrams(b)
	if len(ba)+len(bb) == 0 {
		return 0
	}
	small, large := ba, bb
	if len(small) > len(large) {
		small, large = large, small
	}
	shared := 0
	for k := range small {
		if _, ok := large[k]; ok {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(ba)+len(bb))
}

func bigrams(tokens []string) map[string]struct{} {
	out := make(map[string]struct{}, len(tokens))
	for i := 0; i+1 < len(tokens); i++ {
		out[tokens[i]+bigramJoiner+tokens[i+1]] = struct{}{}
	}
	return out
}
