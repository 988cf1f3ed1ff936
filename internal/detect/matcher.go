package detect

import "simscan/internal/models"

const (
	DefaultThreshold = 0.25
	// ShortSourceTokens marks abstract-only sources compared as a whole.
	ShortSourceTokens = 80
	minWindowTokens   = 40
	minWindowStep     = 5
	earlyExitScore    = 0.6
)

// MatchSource returns the sentences of a document that overlap src at or
// above threshold, in sentence order.
func MatchSource(src models.CandidateSource, sentences []models.Sentence, threshold float64) []models.Match {
	srcTokens := Tokenize(src.CompareText)
	out := make([]models.Match, 0)
	for _, s := range sentences {
		st := Tokenize(s.Text)
		if len(st) < MinTokens {
			continue
		}
		var best float64
		if len(srcTokens) <= ShortSourceTokens {
			best = ScoreTokens(st, srcTokens)
		} else {
			best = bestWindowScore(st, srcTokens)
		}
		if best >= threshold {
			out = append(out, models.Match{SentenceIndex: s.Index, Sentence: s.Text, Similarity: best})
		}
	}
	return out
}

// bestWindowScore slides a window three times the sentence length (at least
// 40 tokens) over the source in thirds, stopping once a window scores 0.6.
func bestWindowScore(sentence, source []string) float64 {
	window := max(3*len(sentence), minWindowTokens)
	step := max(window/3, minWindowStep)
	best := 0.0
	for i := 0; i < len(source); i += step {
		end := min(i+window, len(source))
		if s := ScoreTokens(sentence, source[i:end]); s > best {
			best = s
		}
		if best >= earlyExitScore {
			break
		}
	}
	return best
}
