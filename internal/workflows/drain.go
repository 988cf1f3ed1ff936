package workflows

import (
	"time"

	"simscan/internal/activities"
	"simscan/internal/queue"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	QueryGetDrainProgress = "GetDrainProgress"
	DrainWorkflowID       = "drain-queue"
)

func drainActivityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        2 * time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        20 * time.Second,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{activities.ErrTypeNoCredentials},
		},
	}
}

// batchActivityOptions bound a batch by heartbeats rather than total time:
// it has no fixed length and heartbeats once per corpus query.
func batchActivityOptions() workflow.ActivityOptions {
	opts := drainActivityOptions()
	opts.StartToCloseTimeout = 4 * time.Hour
	opts.HeartbeatTimeout = 2 * time.Minute
	return opts
}

// DrainQueueWorkflow reclaims stale items and then runs batches until the
// queue is empty, a batch makes no progress, another worker holds the batch
// lock, or MaxBatches is reached.
func DrainQueueWorkflow(ctx workflow.Context, input DrainInput) (queue.DrainSummary, error) {
	var summary queue.DrainSummary
	if err := workflow.SetQueryHandler(ctx, QueryGetDrainProgress, func() (queue.DrainSummary, error) {
		return summary, nil
	}); err != nil {
		return summary, err
	}
	ctx = workflow.WithActivityOptions(ctx, drainActivityOptions())
	logger := workflow.GetLogger(ctx)

	if !input.SkipReap {
		var reap queue.ReapReport
		if err := workflow.ExecuteActivity(ctx, activities.ReapStaleName).Get(ctx, &reap); err != nil {
			// items stay processing until the next run reclaims them
			logger.Warn("reap stale items failed", "error", err)
		} else {
			summary.Reclaimed = reap.Total()
		}
	}

	batchCtx := workflow.WithActivityOptions(ctx, batchActivityOptions())
	for batch := 1; input.MaxBatches <= 0 || batch <= input.MaxBatches; batch++ {
		var rep queue.BatchReport
		err := workflow.ExecuteActivity(batchCtx, activities.ProcessBatchName, activities.ProcessBatchInput{Batch: batch}).Get(ctx, &rep)
		if err != nil {
			logger.Error("batch failed", "batch", batch, "error", err)
			return summary, err
		}
		summary.Add(rep)
		if rep.Done() {
			break
		}
		if input.PauseSeconds > 0 {
			if err := workflow.Sleep(ctx, time.Duration(input.PauseSeconds)*time.Second); err != nil {
				return summary, err
			}
		}
	}

	logger.Info("drain finished",
		"batches", summary.Batches,
		"completed", summary.Completed,
		"failed", summary.Failed,
		"waiting", summary.Waiting)
	return summary, nil
}
