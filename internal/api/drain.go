package api

import (
	"context"
	"errors"
	"fmt"

	"simscan/internal/queue"
	"simscan/internal/workflows"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	tclient "go.temporal.io/sdk/client"
)

var ErrDrainRunning = errors.New("drain workflow already running")

// TemporalDrain starts DrainQueueWorkflow under a fixed id so at most one
// drain runs at a time.
type TemporalDrain struct {
	client    tclient.Client
	taskQueue string
}

func NewTemporalDrain(c tclient.Client, taskQueue string) *TemporalDrain {
	return &TemporalDrain{client: c, taskQueue: taskQueue}
}

func (d *TemporalDrain) StartDrain(ctx context.Context, maxBatches int) (string, string, error) {
	we, err := d.client.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:                                       workflows.DrainWorkflowID,
		TaskQueue:                                d.taskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.DrainQueueWorkflow, workflows.DrainInput{MaxBatches: maxBatches})
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			return "", "", fmt.Errorf("%w: %v", ErrDrainRunning, err)
		}
		return "", "", fmt.Errorf("start drain workflow: %w", err)
	}
	return we.GetID(), we.GetRunID(), nil
}

func (d *TemporalDrain) DrainProgress(ctx context.Context) (queue.DrainSummary, error) {
	var prog queue.DrainSummary
	resp, err := d.client.QueryWorkflow(ctx, workflows.DrainWorkflowID, "", workflows.QueryGetDrainProgress)
	if err != nil {
		return prog, fmt.Errorf("query drain progress: %w", err)
	}
	if err := resp.Get(&prog); err != nil {
		return prog, fmt.Errorf("decode drain progress: %w", err)
	}
	return prog, nil
}
