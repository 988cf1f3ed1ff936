package detect

import (
	"strings"
	"testing"
	"unicode/utf8"

	"simscan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sentencesOf(texts ...string) []models.Sentence {
	out := make([]models.Sentence, 0, len(texts))
	for i, t := range texts {
		out = append(out, models.Sentence{Index: i, Text: t})
	}
	return out
}

func TestBuildQueriesGroupsConsecutiveSentences(t *testing.T) {
	s := sentencesOf("one one one", "two two two", "three three", "four four four", "five five five", "six six", "seven seven")
	got := BuildQueries(s, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "one one one two two two three three", got[0])
	assert.Equal(t, "four four four five five five six six", got[1])
	assert.Equal(t, "seven seven", got[2])
}

func TestBuildQueriesCount(t *testing.T) {
	for n := 0; n <= 10; n++ {
		texts := make([]string, n)
		for i := range texts {
			texts[i] = "sentence text here"
		}
		want := (n + 2) / 3
		assert.Len(t, BuildQueries(sentencesOf(texts...), 3), want, "n=%d", n)
	}
}

func TestBuildQueriesTruncates(t *testing.T) {
	long := strings.Repeat("x", 450)
	got := BuildQueries(sentencesOf(long, long, long), 3)
	require.Len(t, got, 1)
	assert.Equal(t, 500, utf8.RuneCountInString(got[0]))
	assert.True(t, strings.HasPrefix(got[0], strings.Repeat("x", 200)+" "+strings.Repeat("x", 200)+" "+strings.Repeat("x", 98)))
}

func TestBuildQueriesDefaultGroupSize(t *testing.T) {
	assert.Len(t, BuildQueries(sentencesOf("a", "b", "c", "d"), 0), 2)
}

func TestTruncateRunesMultibyte(t *testing.T) {
	assert.Equal(t, "éé", truncateRunes("éééé", 2))
	assert.Equal(t, "ab", truncateRunes("ab", 5))
}
