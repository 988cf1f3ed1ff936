package main

import (
	"context"
	"fmt"
	"os"

	"simscan/internal/activities"
	"simscan/internal/app"
	"simscan/internal/config"
	"simscan/internal/logging"
	"simscan/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "simscan worker:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := app.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	rt, err := app.Open(context.Background(), cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	if srv := app.ServeMetrics(cfg.MetricsAddr, rt.Metrics, log); srv != nil {
		defer srv.Close()
	}

	tc, err := app.DialTemporal(cfg, log)
	if err != nil {
		return err
	}
	defer tc.Close()

	// one batch at a time per worker; the redis lock covers other workers
	w := worker.New(tc, cfg.TemporalTaskQueue, worker.Options{MaxConcurrentActivityExecutionSize: 1})
	workflows.Register(w)
	activities.Register(w, activities.New(rt.Processor))

	log.Info("simscan worker listening",
		logging.String("temporal", cfg.TemporalAddress),
		logging.String("task_queue", cfg.TemporalTaskQueue),
		logging.String("corpus_provider", cfg.CorpusProvider),
		logging.String("metrics_addr", cfg.MetricsAddr))
	return w.Run(worker.InterruptCh())
}
