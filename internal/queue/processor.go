// Package queue drives queued documents through detection: it claims waiting
// items, runs the analysis against the corpus, persists reports and applies
// the retry policy.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"simscan/internal/config"
	"simscan/internal/corpus"
	"simscan/internal/lock"
	"simscan/internal/logging"
	"simscan/internal/metrics"
	"simscan/internal/models"
	"simscan/internal/storage"
	"simscan/internal/util"
)

const batchLockName = "queue-batch"

const (
	outcomeCompleted = "completed"
	outcomeRequeued  = "requeued"
	outcomeFailed    = "failed"
	outcomeSkipped   = "skipped"
)

type QueueStore interface {
	FetchWaiting(ctx context.Context, limit int) ([]models.QueueItem, error)
	MarkProcessing(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, result models.Result) error
	Requeue(ctx context.Context, id string, retryCount int, errMsg string) error
	Fail(ctx context.Context, id string, retryCount int, errMsg string) error
	CountWaiting(ctx context.Context) (int, error)
	ReclaimStale(ctx context.Context, olderThan time.Duration, maxRetries int) ([]models.QueueItem, error)
}

type ScanStore interface {
	UpdateStatus(ctx context.Context, id string, status models.ScanStatus, errMsg string) error
	Complete(ctx context.Context, id string, result models.Result) error
}

type CredentialStore interface {
	LeastUsed(ctx context.Context) (models.Credential, error)
	IncrementUsage(ctx context.Context, id string) error
	IncrementFailure(ctx context.Context, id string) error
}

type Options struct {
	BatchSize   int
	MaxRetries  int
	SearchLimit int
	RateLimit   time.Duration
	Threshold   float64
	GroupSize   int
	StaleAfter  time.Duration
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		BatchSize:   cfg.BatchSize,
		MaxRetries:  cfg.MaxRetries,
		SearchLimit: cfg.SearchLimit,
		RateLimit:   cfg.RateLimit(),
		Threshold:   cfg.MatchThreshold,
		GroupSize:   cfg.QueryGroupSize,
		StaleAfter:  cfg.StaleAfter(),
	}
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 5
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.SearchLimit <= 0 {
		o.SearchLimit = corpus.DefaultLimit
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = 30 * time.Minute
	}
	return o
}

type Deps struct {
	Queue       QueueStore
	Scans       ScanStore
	Credentials CredentialStore
	Searcher    corpus.Searcher
	Locks       lock.Factory
	Metrics     *metrics.Metrics
	Logger      logging.Logger
}

// NewDepsFromDB wires the postgres repositories.
func NewDepsFromDB(db *storage.DB) Deps {
	return Deps{
		Queue:       storage.NewQueueRepo(db),
		Scans:       storage.NewScanRepo(db),
		Credentials: storage.NewCredentialRepo(db),
	}
}

type Processor struct {
	queue    QueueStore
	scans    ScanStore
	creds    CredentialStore
	searcher corpus.Searcher
	locks    lock.Factory
	metrics  *metrics.Metrics
	log      logging.Logger
	opts     Options
	analyzer Analyzer
	now      func() time.Time
}

func NewProcessor(d Deps, opts Options) *Processor {
	opts = opts.withDefaults()
	log := d.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	locks := d.Locks
	if locks == nil {
		locks = lock.NopFactory{}
	}
	return &Processor{
		queue:    d.Queue,
		scans:    d.Scans,
		creds:    d.Credentials,
		searcher: d.Searcher,
		locks:    locks,
		metrics:  d.Metrics,
		log:      log.Named("processor"),
		opts:     opts,
		analyzer: Analyzer{Threshold: opts.Threshold, GroupSize: opts.GroupSize, RateLimit: opts.RateLimit},
		now:      time.Now,
	}
}

// ProcessBatch handles up to BatchSize waiting items, oldest first, one at a
// time. Having no usable credential is fatal and leaves the queue untouched.
func (p *Processor) ProcessBatch(ctx context.Context) (BatchReport, error) {
	var report BatchReport

	mu := p.locks.NewMutex(batchLockName)
	ok, err := mu.TryLock(ctx)
	if err != nil {
		return report, err
	}
	if !ok {
		p.log.Info("another invocation holds the queue, skipping batch")
		p.metrics.ObserveBatch(outcomeSkipped)
		report.Skipped = true
		return report, nil
	}
	defer func() {
		if err := mu.Unlock(context.WithoutCancel(ctx)); err != nil {
			p.log.Warn("release batch lock", logging.Err(err))
		}
	}()

	if _, err := p.creds.LeastUsed(ctx); err != nil {
		return report, fmt.Errorf("select credential: %w", err)
	}
	items, err := p.queue.FetchWaiting(ctx, p.opts.BatchSize)
	if err != nil {
		return report, err
	}
	p.metrics.ObserveBatch("ran")

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		outcome, err := p.processItem(ctx, item)
		if err != nil {
			if ctx.Err() != nil {
				p.log.Warn("batch interrupted, item left for the reaper", logging.String("item_id", item.ID))
				return report, ctx.Err()
			}
			p.log.Error("queue item left unresolved", logging.String("item_id", item.ID), logging.Err(err))
			report.Errored++
			continue
		}
		switch outcome {
		case outcomeCompleted:
			report.Completed++
		case outcomeRequeued:
			report.Requeued++
		case outcomeFailed:
			report.Failed++
		case outcomeSkipped:
			continue
		}
		report.Processed++
	}

	waiting, err := p.queue.CountWaiting(ctx)
	if err != nil {
		return report, err
	}
	report.Waiting = waiting
	p.metrics.SetQueueDepth(waiting)
	p.log.Info("batch finished",
		logging.Int("processed", report.Processed),
		logging.Int("completed", report.Completed),
		logging.Int("requeued", report.Requeued),
		logging.Int("failed", report.Failed),
		logging.Int("errored", report.Errored),
		logging.Int("waiting", report.Waiting))
	return report, nil
}

// Drain runs batches until one processes nothing, nothing is waiting, or
// maxBatches have run. maxBatches <= 0 means no limit.
func (p *Processor) Drain(ctx context.Context, maxBatches int) (DrainSummary, error) {
	var sum DrainSummary
	for maxBatches <= 0 || sum.Batches < maxBatches {
		r, err := p.ProcessBatch(ctx)
		sum.Add(r)
		if err != nil {
			return sum, err
		}
		if r.Done() {
			break
		}
	}
	return sum, nil
}

// ReapStale takes back items a crashed worker left in processing and mirrors
// the terminal ones onto their scans.
func (p *Processor) ReapStale(ctx context.Context) (ReapReport, error) {
	var report ReapReport
	items, err := p.queue.ReclaimStale(ctx, p.opts.StaleAfter, p.opts.MaxRetries)
	if err != nil {
		return report, err
	}
	for _, item := range items {
		status := models.ScanPending
		if item.Status == models.QueueFailed {
			status = models.ScanFailed
			report.Failed++
			p.metrics.ObserveReclaimed(outcomeFailed)
		} else {
			report.Requeued++
			p.metrics.ObserveReclaimed(outcomeRequeued)
		}
		if err := p.scans.UpdateStatus(ctx, item.ScanID, status, item.Error); err != nil {
			p.log.Warn("mirror reclaimed item onto scan", logging.String("scan_id", item.ScanID), logging.Err(err))
		}
		p.log.Warn("reclaimed stale queue item",
			logging.String("item_id", item.ID),
			logging.String("status", string(item.Status)),
			logging.Int("retry_count", item.RetryCount))
	}
	return report, nil
}

// Waiting reports the number of items still waiting and refreshes the depth gauge.
func (p *Processor) Waiting(ctx context.Context) (int, error) {
	n, err := p.queue.CountWaiting(ctx)
	if err != nil {
		return 0, err
	}
	p.metrics.SetQueueDepth(n)
	return n, nil
}

// Analyze runs detection on text against the configured searcher with a
// fixed credential, outside the queue.
func (p *Processor) Analyze(ctx context.Context, text string, cred models.Credential) (models.Result, error) {
	return p.analyzer.Analyze(ctx, text, StaticSearch(p.searcher, cred, p.opts.SearchLimit, p.observeSearchError))
}

type itemState struct {
	itemID  string
	queries int
	cred    *models.Credential
}

func (p *Processor) processItem(ctx context.Context, item models.QueueItem) (string, error) {
	log := p.log.With(logging.String("item_id", item.ID), logging.String("scan_id", item.ScanID))
	if err := p.queue.MarkProcessing(ctx, item.ID); err != nil {
		if errors.Is(err, util.ErrAlreadyClaimed) {
			log.Info("item claimed by another worker")
			return outcomeSkipped, nil
		}
		return "", err
	}

	ReportProgress(ctx, Progress{ItemID: item.ID})

	start := p.now()
	state := &itemState{itemID: item.ID}
	result, err := p.run(ctx, item, state)
	if err == nil {
		p.metrics.ObserveItem(outcomeCompleted, p.now().Sub(start))
		p.metrics.ObserveScore(result.OverallScore)
		log.Info("item completed",
			logging.Int("sentences", result.TotalSentences),
			logging.Int("sources", len(result.Sources)),
			logging.Int("overall_score", result.OverallScore))
		return outcomeCompleted, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	outcome, ferr := p.recordFailure(ctx, item, state, err)
	if ferr != nil {
		return "", ferr
	}
	p.metrics.ObserveItem(outcome, p.now().Sub(start))
	log.Warn("item failed",
		logging.String("outcome", outcome),
		logging.Int("retry_count", item.RetryCount+1),
		logging.Err(err))
	return outcome, nil
}

func (p *Processor) run(ctx context.Context, item models.QueueItem, state *itemState) (models.Result, error) {
	if err := p.scans.UpdateStatus(ctx, item.ScanID, models.ScanProcessing, ""); err != nil {
		return models.Result{}, err
	}
	result, err := p.analyzer.Analyze(ctx, item.Text, p.queueSearch(state))
	if err != nil {
		return models.Result{}, err
	}
	if err := p.scans.Complete(ctx, item.ScanID, result); err != nil {
		return models.Result{}, err
	}
	if err := p.queue.Complete(ctx, item.ID, result); err != nil {
		return models.Result{}, err
	}
	return result, nil
}

// queueSearch picks the least used credential for every query and charges it
// once the query has run, whatever the outcome.
func (p *Processor) queueSearch(state *itemState) SearchFunc {
	return func(ctx context.Context, query string) ([]corpus.Work, error) {
		cred, err := p.creds.LeastUsed(ctx)
		if err != nil {
			return nil, fmt.Errorf("select credential: %w", err)
		}
		state.cred = &cred
		works, err := p.searcher.Search(ctx, cred, query, p.opts.SearchLimit)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.observeSearchError(err)
			works = nil
		} else {
			p.metrics.ObserveSearch("ok")
		}
		if err := p.creds.IncrementUsage(ctx, cred.ID); err != nil {
			return nil, err
		}
		state.queries++
		ReportProgress(ctx, Progress{ItemID: state.itemID, Queries: state.queries})
		return works, nil
	}
}

func (p *Processor) observeSearchError(err error) {
	kind := corpus.ClassifyError(err)
	p.metrics.ObserveSearch(string(kind))
	p.log.Warn("corpus search failed, counting as no results", logging.String("class", string(kind)), logging.Err(err))
}

// chargeFailure increments the failure counter of the credential last used
// for the item, or the least used one when the item never reached a query.
func (p *Processor) chargeFailure(ctx context.Context, state *itemState) {
	cred := state.cred
	if cred == nil {
		c, err := p.creds.LeastUsed(ctx)
		if err != nil {
			p.log.Warn("select credential to charge failure", logging.Err(err))
			return
		}
		cred = &c
	}
	if err := p.creds.IncrementFailure(ctx, cred.ID); err != nil {
		p.log.Warn("increment credential failures", logging.String("credential", cred.Label), logging.Err(err))
	}
}

func (p *Processor) recordFailure(ctx context.Context, item models.QueueItem, state *itemState, cause error) (string, error) {
	p.chargeFailure(ctx, state)
	retries := item.RetryCount + 1
	msg := cause.Error()
	if retries >= p.opts.MaxRetries {
		if err := p.queue.Fail(ctx, item.ID, retries, msg); err != nil {
			return "", err
		}
		if err := p.scans.UpdateStatus(ctx, item.ScanID, models.ScanFailed, msg); err != nil {
			p.log.Warn("mirror failure onto scan", logging.String("scan_id", item.ScanID), logging.Err(err))
		}
		return outcomeFailed, nil
	}
	if err := p.queue.Requeue(ctx, item.ID, retries, msg); err != nil {
		return "", err
	}
	if err := p.scans.UpdateStatus(ctx, item.ScanID, models.ScanPending, ""); err != nil {
		p.log.Warn("mirror requeue onto scan", logging.String("scan_id", item.ScanID), logging.Err(err))
	}
	return outcomeRequeued, nil
}
