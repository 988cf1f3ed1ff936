package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"simscan/internal/api"
	"simscan/internal/app"
	"simscan/internal/config"
	"simscan/internal/logging"
	"simscan/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "simscan api:", err)
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	tc, err := app.DialTemporal(cfg, log)
	if err != nil {
		return err
	}
	defer tc.Close()

	srv := api.NewServer(cfg, api.Deps{
		Queue:   storage.NewQueueRepo(rt.DB),
		Scans:   storage.NewScanRepo(rt.DB),
		Drain:   api.NewTemporalDrain(tc, cfg.TemporalTaskQueue),
		DB:      rt.DB,
		Metrics: rt.Metrics,
		Logger:  log,
	})
	httpSrv := &http.Server{Addr: cfg.APIAddr, Handler: srv.Routes(), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	log.Info("simscan api listening",
		logging.String("addr", cfg.APIAddr),
		logging.String("corpus_provider", cfg.CorpusProvider),
		logging.String("task_queue", cfg.TemporalTaskQueue))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
