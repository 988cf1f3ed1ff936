package queue

import "context"

// Progress is emitted when an item is claimed and after each of its corpus
// queries.
type Progress struct {
	ItemID  string `json:"item_id"`
	Queries int    `json:"queries"`
}

type progressKey struct{}

// WithProgress returns a context whose batches report to fn. The Temporal
// activity turns these into heartbeats.
func WithProgress(ctx context.Context, fn func(Progress)) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

// ReportProgress calls the function set by WithProgress, if any.
func ReportProgress(ctx context.Context, p Progress) {
	if fn, ok := ctx.Value(progressKey{}).(func(Progress)); ok && fn != nil {
		fn(p)
	}
}
