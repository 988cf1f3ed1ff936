package queue

import (
	"context"
	"time"

	"simscan/internal/corpus"
	"simscan/internal/detect"
	"simscan/internal/models"
)

// SearchFunc runs one corpus query. Returning an error aborts the analysis;
// corpus failures that should count as "no results" must be absorbed by the
// implementation.
type SearchFunc func(ctx context.Context, query string) ([]corpus.Work, error)

// Analyzer is the detection pipeline without any persistence.
type Analyzer struct {
	Threshold float64
	GroupSize int
	// RateLimit is slept between consecutive queries.
	RateLimit time.Duration
	Sleep     func(ctx context.Context, d time.Duration) error
}

func (a Analyzer) Analyze(ctx context.Context, text string, search SearchFunc) (models.Result, error) {
	sentences := detect.Segment(text)
	if len(sentences) == 0 {
		return models.EmptyResult(), nil
	}
	sleep := a.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var sources []models.CandidateSource
	for i, q := range detect.BuildQueries(sentences, a.GroupSize) {
		if i > 0 && a.RateLimit > 0 {
			if err := sleep(ctx, a.RateLimit); err != nil {
				return models.Result{}, err
			}
		}
		works, err := search(ctx, q)
		if err != nil {
			return models.Result{}, err
		}
		sources = append(sources, corpus.Candidates(works)...)
	}
	return detect.Aggregate(text, sentences, detect.DedupeSources(sources), a.Threshold), nil
}

// StaticSearch adapts a Searcher with a fixed credential, swallowing search
// errors as empty results. onError, when set, sees each swallowed error.
func StaticSearch(s corpus.Searcher, cred models.Credential, limit int, onError func(error)) SearchFunc {
	return func(ctx context.Context, query string) ([]corpus.Work, error) {
		works, err := s.Search(ctx, cred, query, limit)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if onError != nil {
				onError(err)
			}
			return nil, nil
		}
		return works, nil
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
