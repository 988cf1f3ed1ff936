package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"simscan/internal/models"
)

// fullTextMinRunes is the length a work's full text must exceed before it
// replaces title and abstract as the comparison text.
const fullTextMinRunes = 100

// WorkID accepts both numeric and string identifiers.
type WorkID string

func (id *WorkID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decode work id: %w", err)
		}
		*id = WorkID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decode work id: %w", err)
	}
	*id = WorkID(n.String())
	return nil
}

type Author struct {
	Name string `json:"name"`
}

type Link struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Work is one search hit as returned by the corpus API.
type Work struct {
	ID            WorkID   `json:"id"`
	DOI           string   `json:"doi"`
	Title         string   `json:"title"`
	Abstract      string   `json:"abstract"`
	FullText      string   `json:"fullText"`
	Authors       []Author `json:"authors"`
	YearPublished int      `json:"yearPublished"`
	Links         []Link   `json:"links"`
	DownloadURL   string   `json:"downloadUrl"`
}

// Candidate converts a search hit into the source shape the matcher works on.
func (w Work) Candidate() models.CandidateSource {
	out := models.CandidateSource{
		ID:          string(w.ID),
		Title:       strings.TrimSpace(w.Title),
		Authors:     make([]string, 0, len(w.Authors)),
		SourceType:  models.SourcePublication,
		CompareText: w.compareText(),
	}
	for _, a := range w.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			out.Authors = append(out.Authors, name)
		}
	}
	if w.YearPublished > 0 {
		year := w.YearPublished
		out.Year = &year
	}
	if doi := strings.TrimSpace(w.DOI); doi != "" {
		out.DOI = &doi
	}
	if u := w.url(); u != "" {
		out.URL = &u
	}
	if out.DOI == nil && out.URL != nil {
		out.SourceType = models.SourceInternet
	}
	return out
}

func (w Work) compareText() string {
	full := strings.TrimSpace(w.FullText)
	if utf8.RuneCountInString(full) > fullTextMinRunes {
		return full
	}
	return strings.TrimSpace(w.Title + " " + w.Abstract)
}

func (w Work) url() string {
	for _, l := range w.Links {
		if strings.EqualFold(l.Type, "display") && strings.TrimSpace(l.URL) != "" {
			return strings.TrimSpace(l.URL)
		}
	}
	if u := strings.TrimSpace(w.DownloadURL); u != "" {
		return u
	}
	for _, l := range w.Links {
		if u := strings.TrimSpace(l.URL); u != "" {
			return u
		}
	}
	return ""
}

// Candidates converts a batch of hits, preserving order.
func Candidates(works []Work) []models.CandidateSource {
	out := make([]models.CandidateSource, 0, len(works))
	for _, w := range works {
		out = append(out, w.Candidate())
	}
	return out
}
