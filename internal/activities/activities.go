package activities

import (
	"context"
	"errors"

	"simscan/internal/queue"
	"simscan/internal/util"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

const (
	ProcessBatchName = "ProcessBatchActivity"
	ReapStaleName    = "ReapStaleActivity"
	QueueDepthName   = "QueueDepthActivity"
)

// Batcher is the slice of queue.Processor the activities drive.
type Batcher interface {
	ProcessBatch(ctx context.Context) (queue.BatchReport, error)
	ReapStale(ctx context.Context) (queue.ReapReport, error)
	Waiting(ctx context.Context) (int, error)
}

type Activities struct {
	proc Batcher
}

func New(proc Batcher) *Activities {
	return &Activities{proc: proc}
}

// ProcessBatchActivity runs one guarded batch, heartbeating on every claimed
// item and corpus query. A missing credential pool is not retried by the
// server; the workflow reports it and stops.
func (a *Activities) ProcessBatchActivity(ctx context.Context, in ProcessBatchInput) (queue.BatchReport, error) {
	logger := activity.GetLogger(ctx)
	batchCtx := queue.WithProgress(ctx, func(p queue.Progress) {
		activity.RecordHeartbeat(ctx, in.Batch, p)
	})
	rep, err := a.proc.ProcessBatch(batchCtx)
	if err != nil {
		if errors.Is(err, util.ErrNoCredentials) {
			return queue.BatchReport{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNoCredentials, err)
		}
		return queue.BatchReport{}, err
	}
	logger.Info("batch processed",
		"batch", in.Batch,
		"processed", rep.Processed,
		"completed", rep.Completed,
		"requeued", rep.Requeued,
		"failed", rep.Failed,
		"errored", rep.Errored,
		"waiting", rep.Waiting,
		"skipped", rep.Skipped,
	)
	return rep, nil
}

func (a *Activities) ReapStaleActivity(ctx context.Context) (queue.ReapReport, error) {
	rep, err := a.proc.ReapStale(ctx)
	if err != nil {
		return queue.ReapReport{}, err
	}
	if rep.Total() > 0 {
		activity.GetLogger(ctx).Warn("reclaimed stale items", "requeued", rep.Requeued, "failed", rep.Failed)
	}
	return rep, nil
}

func (a *Activities) QueueDepthActivity(ctx context.Context) (int, error) {
	return a.proc.Waiting(ctx)
}
