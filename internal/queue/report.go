package queue

type BatchReport struct {
	Processed int  `json:"processed"`
	Completed int  `json:"completed"`
	Requeued  int  `json:"requeued"`
	Failed    int  `json:"failed"`
	Waiting   int  `json:"waiting"`
	Skipped   bool `json:"skipped"`
	// Errored counts items left untouched by a storage error; they are not progress.
	Errored int `json:"errored"`
}

type ReapReport struct {
	Requeued int `json:"requeued"`
	Failed   int `json:"failed"`
}

func (r ReapReport) Total() int { return r.Requeued + r.Failed }

// DrainSummary accumulates batch reports over one drain run.
type DrainSummary struct {
	Batches   int  `json:"batches"`
	Processed int  `json:"processed"`
	Completed int  `json:"completed"`
	Requeued  int  `json:"requeued"`
	Failed    int  `json:"failed"`
	Reclaimed int  `json:"reclaimed"`
	Waiting   int  `json:"waiting"`
	Skipped   bool `json:"skipped"`
	Errored   int  `json:"errored"`
}

func (s *DrainSummary) Add(r BatchReport) {
	s.Batches++
	s.Processed += r.Processed
	s.Completed += r.Completed
	s.Requeued += r.Requeued
	s.Failed += r.Failed
	s.Errored += r.Errored
	s.Waiting = r.Waiting
	s.Skipped = r.Skipped
}

// Done reports whether another batch would make progress.
func (r BatchReport) Done() bool {
	return r.Skipped || r.Processed == 0 || r.Waiting == 0
}
