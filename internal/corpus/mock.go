package corpus

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"simscan/internal/models"
)

// MockSearcher serves a fixed catalogue, rotated deterministically by query,
// for offline runs and tests.
type MockSearcher struct {
	works []Work
}

func NewMockSearcher(works ...Work) *MockSearcher {
	if len(works) == 0 {
		works = defaultCatalogue()
	}
	return &MockSearcher{works: works}
}

func (m *MockSearcher) Name() string { return "mock" }

func (m *MockSearcher) Search(ctx context.Context, _ models.Credential, query string, limit int) ([]Work, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := len(m.works)
	if n == 0 {
		return []Work{}, nil
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	h := sha256.Sum256([]byte(query))
	start := int(binary.BigEndian.Uint32(h[:4]) % uint32(n))
	out := make([]Work, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, m.works[(start+i)%n])
	}
	return out, nil
}

func defaultCatalogue() []Work {
	return []Work{
		{
			ID:            "mock-1",
			DOI:           "10.0000/mock.0001",
			Title:         "Measuring Lexical Overlap in Student Writing",
			Abstract:      "We study how lexical overlap between student essays and published sources can be measured with word bigram statistics. Sentence level comparison exposes copied passages even after light paraphrasing.",
			Authors:       []Author{{Name: "A. Example"}, {Name: "B. Sample"}},
			YearPublished: 2019,
		},
		{
			ID:          "mock-2",
			Title:       "Notes on Academic Integrity Policies",
			Abstract:    "Universities publish integrity policies that define plagiarism as presenting the words or ideas of others without acknowledgement. Quotation and citation are the two expected forms of acknowledgement.",
			DownloadURL: "https://example.org/integrity-notes.pdf",
		},
		{
			ID:            "mock-3",
			DOI:           "10.0000/mock.0003",
			Title:         "Retrieval Pipelines for Scholarly Search",
			Abstract:      "Scholarly search engines index millions of open access works. Query construction from short passages strongly affects recall when looking for the origin of a sentence.",
			Authors:       []Author{{Name: "C. Placeholder"}},
			YearPublished: 2021,
			Links:         []Link{{Type: "display", URL: "https://example.org/works/mock-3"}},
		},
	}
}
