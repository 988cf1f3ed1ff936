package models

type SourceType string

const (
	SourcePublication SourceType = "Publication"
	SourceInternet    SourceType = "Internet"
)

type Sentence struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// CandidateSource is one deduplicated external work.
type CandidateSource struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Authors     []string   `json:"authors"`
	Year        *int       `json:"year"`
	DOI         *string    `json:"doi"`
	URL         *string    `json:"url"`
	SourceType  SourceType `json:"sourceType"`
	CompareText string     `json:"-"`
}

type Match struct {
	SentenceIndex int     `json:"sentenceIndex"`
	Sentence      string  `json:"sentence"`
	Similarity    float64 `json:"similarity"`
}

type MatchedSource struct {
	CandidateSource
	Matches         []Match `json:"matches"`
	MatchPercentage int     `json:"matchPercentage"`
}

type MatchGroup struct {
	Count   int `json:"count"`
	Percent int `json:"percent"`
}

type MatchGroups struct {
	NotCitedOrQuoted  MatchGroup `json:"notCitedOrQuoted"`
	MissingQuotations MatchGroup `json:"missingQuotations"`
	MissingCitation   MatchGroup `json:"missingCitation"`
	CitedAndQuoted    MatchGroup `json:"citedAndQuoted"`
}

func (g MatchGroups) Total() int {
	return g.NotCitedOrQuoted.Count + g.MissingQuotations.Count + g.MissingCitation.Count + g.CitedAndQuoted.Count
}

type SourceTypeBreakdown struct {
	Internet      int `json:"internet"`
	Publications  int `json:"publications"`
	StudentPapers int `json:"studentPapers"`
}

// Result is the persisted originality report.
type Result struct {
	OverallScore           int                 `json:"overallScore"`
	TotalSentences         int                 `json:"totalSentences"`
	MatchedSentenceCount   int                 `json:"matchedSentenceCount"`
	Sources                []MatchedSource     `json:"sources"`
	MatchedSentenceIndices []int               `json:"matchedSentenceIndices"`
	MatchGroups            MatchGroups         `json:"matchGroups"`
	SourceTypeBreakdown    SourceTypeBreakdown `json:"sourceTypeBreakdown"`
}

// EmptyResult is the zero-score report for documents without qualifying sentences.
func EmptyResult() Result {
	return Result{
		Sources:                []MatchedSource{},
		MatchedSentenceIndices: []int{},
	}
}
