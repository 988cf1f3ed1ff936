package detect

import (
	"math"
	"sort"
	"strings"

	"simscan/internal/models"
)

const MaxReportedSources = 20

// DedupeSources keeps the first source for each DOI, else id, else title.
func DedupeSources(sources []models.CandidateSource) []models.CandidateSource {
	seen := make(map[string]struct{}, len(sources))
	out := make([]models.CandidateSource, 0, len(sources))
	for _, s := range sources {
		key := DedupeKey(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func DedupeKey(s models.CandidateSource) string {
	if s.DOI != nil && strings.TrimSpace(*s.DOI) != "" {
		return "doi:" + *s.DOI
	}
	if s.ID != "" {
		return "id:" + s.ID
	}
	return "title:" + s.Title
}

// Aggregate matches every source against the document and builds the report.
// text is the original submission, used for citation and quotation checks.
func Aggregate(text string, sentences []models.Sentence, sources []models.CandidateSource, threshold float64) models.Result {
	if len(sentences) == 0 {
		return models.EmptyResult()
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	total := len(sentences)

	matched := make([]models.MatchedSource, 0)
	union := make(map[int]struct{})
	for _, src := range DedupeSources(sources) {
		matches := MatchSource(src, sentences, threshold)
		if len(matches) == 0 {
			continue
		}
		for _, m := range matches {
			union[m.SentenceIndex] = struct{}{}
		}
		matched = append(matched, models.MatchedSource{
			CandidateSource: src,
			Matches:         matches,
			MatchPercentage: Percent(len(matches), total),
		})
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].MatchPercentage > matched[j].MatchPercentage
	})
	top := matched
	if len(top) > MaxReportedSources {
		top = top[:MaxReportedSources]
	}

	indices := make([]int, 0, len(union))
	for idx := range union {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var groups models.MatchGroups
	for _, idx := range indices {
		switch Classify(text, sentences[idx].Text) {
		case BucketCitedAndQuoted:
			groups.CitedAndQuoted.Count++
		case BucketMissingCitation:
			groups.MissingCitation.Count++
		case BucketMissingQuotations:
			groups.MissingQuotations.Count++
		default:
			groups.NotCitedOrQuoted.Count++
		}
	}
	for _, g := range []*models.MatchGroup{&groups.NotCitedOrQuoted, &groups.MissingQuotations, &groups.MissingCitation, &groups.CitedAndQuoted} {
		g.Percent = Percent(g.Count, total)
	}

	var breakdown models.SourceTypeBreakdown
	for _, s := range top {
		switch s.SourceType {
		case models.SourceInternet:
			breakdown.Internet += s.MatchPercentage
		default:
			breakdown.Publications += s.MatchPercentage
		}
	}

	return models.Result{
		OverallScore:           Percent(len(indices), total),
		TotalSentences:         total,
		MatchedSentenceCount:   len(indices),
		Sources:                top,
		MatchedSentenceIndices: indices,
		MatchGroups:            groups,
		SourceTypeBreakdown:    breakdown,
	}
}

// Percent is round(100 * n / total), halves rounded up.
func Percent(n, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(100*float64(n)/float64(total) + 0.5))
}
