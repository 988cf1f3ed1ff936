package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"simscan/internal/config"
	"simscan/internal/logging"
	"simscan/internal/metrics"
	"simscan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSeeder struct {
	labels []string
	keys   []string
	err    error
}

func (r *recordingSeeder) EnsureCredential(_ context.Context, label, key string) (models.Credential, error) {
	if r.err != nil {
		return models.Credential{}, r.err
	}
	r.labels = append(r.labels, label)
	r.keys = append(r.keys, key)
	return models.Credential{ID: "id-" + label, Label: label, Active: true}, nil
}

func TestSeedCredentialsFromConfig(t *testing.T) {
	seeder := &recordingSeeder{}
	n, err := SeedCredentials(context.Background(), seeder, config.Config{CorpusKeys: "primary:k1|k2"}, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"k1", "k2"}, seeder.keys)
	assert.Equal(t, "primary", seeder.labels[0])
}

func TestSeedCredentialsMockProviderPlaceholder(t *testing.T) {
	seeder := &recordingSeeder{}
	n, err := SeedCredentials(context.Background(), seeder, config.Config{CorpusProvider: "mock"}, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"mock"}, seeder.labels)
}

func TestSeedCredentialsNothingConfigured(t *testing.T) {
	seeder := &recordingSeeder{}
	n, err := SeedCredentials(context.Background(), seeder, config.Config{CorpusProvider: "core"}, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, seeder.labels)
}

func TestSeedCredentialsPropagatesError(t *testing.T) {
	seeder := &recordingSeeder{err: errors.New("db down")}
	_, err := SeedCredentials(context.Background(), seeder, config.Config{CorpusKeys: "a:b"}, logging.NewNopLogger())
	require.ErrorContains(t, err, "seed credential a")
}

func TestRuntimeCloseRunsInReverse(t *testing.T) {
	var order []int
	rt := &Runtime{closers: []func() error{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return errors.New("redis close") },
	}}
	err := rt.Close()
	require.ErrorContains(t, err, "redis close")
	assert.Equal(t, []int{2, 1}, order)
	require.NoError(t, rt.Close())
}

func TestServeMetricsDisabled(t *testing.T) {
	assert.Nil(t, ServeMetrics("", metrics.New(), logging.NewNopLogger()))
}

func TestMetricsHandlerServes(t *testing.T) {
	rec := httptest.NewRecorder()
	metrics.New().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
