// Package app wires configuration, storage, locking, metrics and the queue
// processor for the binaries under cmd/.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"simscan/internal/config"
	"simscan/internal/corpus"
	"simscan/internal/lock"
	"simscan/internal/logging"
	"simscan/internal/metrics"
	"simscan/internal/models"
	"simscan/internal/queue"
	"simscan/internal/storage"

	"go.temporal.io/sdk/client"
)

type Runtime struct {
	Config    config.Config
	Log       logging.Logger
	DB        *storage.DB
	Metrics   *metrics.Metrics
	Searcher  corpus.Searcher
	Processor *queue.Processor

	closers []func() error
}

func NewLogger(cfg config.Config) (logging.Logger, error) {
	return logging.NewLogger(logging.LogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})
}

// Open connects to postgres, applies the schema, seeds configured
// credentials and builds the processor.
func Open(ctx context.Context, cfg config.Config, log logging.Logger) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Log: log, Metrics: metrics.New()}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := storage.NewDB(dialCtx, cfg.PostgresURL)
	if err != nil {
		return nil, err
	}
	rt.DB = db
	rt.closers = append(rt.closers, func() error { db.Close(); return nil })

	if err := db.Migrate(dialCtx); err != nil {
		_ = rt.Close()
		return nil, err
	}
	if _, err := SeedCredentials(dialCtx, storage.NewCredentialRepo(db), cfg, log); err != nil {
		_ = rt.Close()
		return nil, err
	}

	searcher, err := corpus.NewSearcher(cfg)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Searcher = searcher

	locks, closeLocks, err := lock.NewFactory(dialCtx, cfg.RedisAddr, cfg.LockTTL())
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.closers = append(rt.closers, closeLocks)
	if cfg.RedisAddr == "" {
		log.Warn("no redis address configured; concurrent batches are guarded only by row claims")
	}

	deps := queue.NewDepsFromDB(db)
	deps.Searcher = searcher
	deps.Locks = locks
	deps.Metrics = rt.Metrics
	deps.Logger = log
	rt.Processor = queue.NewProcessor(deps, queue.OptionsFromConfig(cfg))
	return rt, nil
}

// Close releases resources in reverse order of acquisition.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

type CredentialSeeder interface {
	EnsureCredential(ctx context.Context, label, apiKey string) (models.Credential, error)
}

// SeedCredentials registers every key from SIMSCAN_CORPUS_KEYS. The mock
// provider gets a placeholder credential so offline runs have a pool.
func SeedCredentials(ctx context.Context, repo CredentialSeeder, cfg config.Config, log logging.Logger) (int, error) {
	refs := corpus.ParseCredentialList(cfg.CorpusKeys)
	if len(refs) == 0 && strings.EqualFold(strings.TrimSpace(cfg.CorpusProvider), corpus.ProviderMock) {
		refs = []corpus.CredentialRef{{Label: "mock", Key: "mock"}}
	}
	for _, ref := range refs {
		if _, err := repo.EnsureCredential(ctx, ref.Label, ref.Key); err != nil {
			return 0, fmt.Errorf("seed credential %s: %w", ref.Label, err)
		}
	}
	if len(refs) > 0 {
		log.Info("corpus credentials seeded", logging.Int("count", len(refs)))
	}
	return len(refs), nil
}

func DialTemporal(cfg config.Config, log logging.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort: cfg.TemporalAddress,
		Logger:   logging.NewTemporalLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("dial temporal: %w", err)
	}
	return c, nil
}

// ServeMetrics exposes /metrics on addr in the background. An empty addr
// disables the listener.
func ServeMetrics(addr string, m *metrics.Metrics, log logging.Logger) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics listener stopped", logging.String("addr", addr), logging.Err(err))
		}
	}()
	return srv
}
