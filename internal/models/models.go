package models

import "time"

type QueueStatus string

const (
	QueueWaiting    QueueStatus = "waiting"
	QueueProcessing QueueStatus = "processing"
	QueueCompleted  QueueStatus = "completed"
	QueueFailed     QueueStatus = "failed"
)

func (s QueueStatus) IsTerminal() bool {
	return s == QueueCompleted || s == QueueFailed
}

// ScanStatus mirrors the queue lifecycle for display.
type ScanStatus string

const (
	ScanPending    ScanStatus = "pending"
	ScanProcessing ScanStatus = "processing"
	ScanCompleted  ScanStatus = "completed"
	ScanFailed     ScanStatus = "failed"
)

type QueueItem struct {
	ID          string      `json:"id"`
	ScanID      string      `json:"scan_id"`
	DocumentID  string      `json:"document_id"`
	Text        string      `json:"-"`
	Status      QueueStatus `json:"status"`
	RetryCount  int         `json:"retry_count"`
	Error       string      `json:"error,omitempty"`
	Result      *Result     `json:"result,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

type Scan struct {
	ID           string     `json:"id"`
	DocumentID   string     `json:"document_id"`
	Status       ScanStatus `json:"status"`
	OverallScore *int       `json:"overall_score,omitempty"`
	Result       *Result    `json:"result,omitempty"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type Credential struct {
	ID             string    `json:"id"`
	Label          string    `json:"label"`
	APIKey         string    `json:"-"`
	Active         bool      `json:"active"`
	TotalRequests  int64     `json:"total_requests"`
	FailedRequests int64     `json:"failed_requests"`
	CreatedAt      time.Time `json:"created_at"`
}

type QueueStats struct {
	Waiting    int `json:"waiting"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}
