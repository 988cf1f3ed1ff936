package activities

import (
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
)

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivityWithOptions(a.ProcessBatchActivity, activity.RegisterOptions{Name: ProcessBatchName})
	w.RegisterActivityWithOptions(a.ReapStaleActivity, activity.RegisterOptions{Name: ReapStaleName})
	w.RegisterActivityWithOptions(a.QueueDepthActivity, activity.RegisterOptions{Name: QueueDepthName})
}
