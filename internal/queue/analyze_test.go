package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"simscan/internal/config"
	"simscan/internal/corpus"
	"simscan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzerSkipsSearchForEmptyDocument(t *testing.T) {
	called := false
	res, err := Analyzer{}.Analyze(context.Background(), "", func(context.Context, string) ([]corpus.Work, error) {
		called = true
		return nil, nil
	})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, models.EmptyResult(), res)
}

func TestAnalyzerPropagatesSearchFuncErrors(t *testing.T) {
	boom := errors.New("credential store down")
	_, err := Analyzer{}.Analyze(context.Background(), documentText(4), func(context.Context, string) ([]corpus.Work, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestAnalyzerDoesNotSleepAfterLastQuery(t *testing.T) {
	var sleeps int
	a := Analyzer{RateLimit: time.Second, Sleep: func(context.Context, time.Duration) error {
		sleeps++
		return nil
	}}
	_, err := a.Analyze(context.Background(), documentText(3), func(context.Context, string) ([]corpus.Work, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Zero(t, sleeps)
}

func TestStaticSearchSwallowsErrors(t *testing.T) {
	var seen []error
	s := corpus.NewMockSearcher()
	failing := &fakeSearcher{fn: func(context.Context, string) ([]corpus.Work, error) {
		return nil, errors.New("503 unavailable")
	}}

	works, err := StaticSearch(s, models.Credential{}, 2, nil)(context.Background(), "query")
	require.NoError(t, err)
	assert.Len(t, works, 2)

	works, err = StaticSearch(failing, models.Credential{}, 2, func(err error) { seen = append(seen, err) })(context.Background(), "query")
	require.NoError(t, err)
	assert.Nil(t, works)
	assert.Len(t, seen, 1)
}

func TestStaticSearchReturnsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := StaticSearch(corpus.NewMockSearcher(), models.Credential{}, 2, nil)(ctx, "q")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Config{BatchSize: 7, MaxRetries: 4, SearchLimit: 20, RateLimitMillis: 250, MatchThreshold: 0.3, QueryGroupSize: 2, StaleAfterSecs: 60}
	o := OptionsFromConfig(cfg)
	assert.Equal(t, Options{BatchSize: 7, MaxRetries: 4, SearchLimit: 20, RateLimit: 250 * time.Millisecond, Threshold: 0.3, GroupSize: 2, StaleAfter: time.Minute}, o)

	d := Options{}.withDefaults()
	assert.Equal(t, 5, d.BatchSize)
	assert.Equal(t, 3, d.MaxRetries)
	assert.Equal(t, corpus.DefaultLimit, d.SearchLimit)
}
