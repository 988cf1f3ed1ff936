package detect

import (
	"strings"

	"simscan/internal/models"
)

const (
	DefaultGroupSize    = 3
	maxQuerySentenceLen = 200
	maxQueryLen         = 500
)

// BuildQueries groups consecutive sentences into search queries, one per
// group of groupSize.
func BuildQueries(sentences []models.Sentence, groupSize int) []string {
	if groupSize <= 0 {
		groupSize = DefaultGroupSize
	}
	out := make([]string, 0, (len(sentences)+groupSize-1)/groupSize)
	for i := 0; i < len(sentences); i += groupSize {
		end := min(i+groupSize, len(sentences))
		parts := make([]string, 0, end-i)
		for _, s := range sentences[i:end] {
			parts = append(parts, truncateRunes(s.Text, maxQuerySentenceLen))
		}
		out = append(out, truncateRunes(strings.Join(parts, " "), maxQueryLen))
	}
	return out
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
