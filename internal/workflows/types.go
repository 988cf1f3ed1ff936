package workflows

type DrainInput struct {
	// MaxBatches bounds one run; <= 0 drains until the queue stops moving.
	MaxBatches int `json:"max_batches"`
	// PauseSeconds is a durable timer between batches.
	PauseSeconds int  `json:"pause_seconds"`
	SkipReap     bool `json:"skip_reap"`
}
