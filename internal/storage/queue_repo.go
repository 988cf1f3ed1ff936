package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"simscan/internal/models"
	"simscan/internal/util"
)

const queueColumns = `id::text, scan_id::text, document_id, input_text, status, retry_count,
       COALESCE(error,''), result, created_at, started_at, completed_at`

// StaleError is recorded on items the reaper takes back from a dead worker.
const StaleError = "processing timed out"

type rowScanner interface {
	Scan(dest ...any) error
}

type QueueRepo struct {
	db *DB
}

func NewQueueRepo(db *DB) *QueueRepo {
	return &QueueRepo{db: db}
}

// Submit creates the scan record and its queue item in one transaction.
func (r *QueueRepo) Submit(ctx context.Context, scan models.Scan, item models.QueueItem) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin submit: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `INSERT INTO scans (id, document_id, status) VALUES ($1, $2, $3)`,
		scan.ID, scan.DocumentID, models.ScanPending); err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO scan_queue (id, scan_id, document_id, input_text, status, retry_count)
VALUES ($1, $2, $3, $4, $5, 0)`,
		item.ID, scan.ID, item.DocumentID, item.Text, models.QueueWaiting); err != nil {
		return fmt.Errorf("insert queue item: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit submit: %w", err)
	}
	return nil
}

func (r *QueueRepo) Enqueue(ctx context.Context, item models.QueueItem) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO scan_queue (id, scan_id, document_id, input_text, status, retry_count)
VALUES ($1, $2, $3, $4, $5, 0)`,
		item.ID, item.ScanID, item.DocumentID, item.Text, models.QueueWaiting)
	if err != nil {
		return fmt.Errorf("enqueue item: %w", err)
	}
	return nil
}

// FetchWaiting returns up to limit waiting items, oldest first.
func (r *QueueRepo) FetchWaiting(ctx context.Context, limit int) ([]models.QueueItem, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT `+queueColumns+`
FROM scan_queue
WHERE status=$1
ORDER BY created_at ASC
LIMIT $2`, models.QueueWaiting, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch waiting items: %w", err)
	}
	defer rows.Close()

	out := make([]models.QueueItem, 0, limit)
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate waiting items: %w", err)
	}
	return out, nil
}

// MarkProcessing claims a waiting item. util.ErrAlreadyClaimed means another
// worker got there first.
func (r *QueueRepo) MarkProcessing(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE scan_queue SET status=$2, started_at=NOW()
WHERE id=$1 AND status=$3`, id, models.QueueProcessing, models.QueueWaiting)
	if err != nil {
		return fmt.Errorf("mark item processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark item %s processing: %w", id, util.ErrAlreadyClaimed)
	}
	return nil
}

func (r *QueueRepo) Complete(ctx context.Context, id string, result models.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
UPDATE scan_queue SET status=$2, result=$3, error=NULL, completed_at=NOW()
WHERE id=$1`, id, models.QueueCompleted, payload)
	if err != nil {
		return fmt.Errorf("complete item: %w", err)
	}
	return nil
}

func (r *QueueRepo) Requeue(ctx context.Context, id string, retryCount int, errMsg string) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE scan_queue SET status=$2, retry_count=$3, error=NULLIF($4,''), started_at=NULL
WHERE id=$1`, id, models.QueueWaiting, retryCount, errMsg)
	if err != nil {
		return fmt.Errorf("requeue item: %w", err)
	}
	return nil
}

func (r *QueueRepo) Fail(ctx context.Context, id string, retryCount int, errMsg string) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE scan_queue SET status=$2, retry_count=$3, error=NULLIF($4,''), completed_at=NOW()
WHERE id=$1`, id, models.QueueFailed, retryCount, errMsg)
	if err != nil {
		return fmt.Errorf("fail item: %w", err)
	}
	return nil
}

func (r *QueueRepo) CountWaiting(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM scan_queue WHERE status=$1`, models.QueueWaiting).Scan(&n); err != nil {
		return 0, fmt.Errorf("count waiting items: %w", err)
	}
	return n, nil
}

func (r *QueueRepo) Get(ctx context.Context, id string) (models.QueueItem, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+queueColumns+` FROM scan_queue WHERE id=$1`, id)
	item, err := scanQueueItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.QueueItem{}, fmt.Errorf("queue item %s: %w", id, util.ErrNotFound)
	}
	return item, err
}

func (r *QueueRepo) Stats(ctx context.Context) (models.QueueStats, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT status, COUNT(*) FROM scan_queue GROUP BY status`)
	if err != nil {
		return models.QueueStats{}, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	var out models.QueueStats
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return models.QueueStats{}, fmt.Errorf("scan queue stats: %w", err)
		}
		switch models.QueueStatus(status) {
		case models.QueueWaiting:
			out.Waiting = n
		case models.QueueProcessing:
			out.Processing = n
		case models.QueueCompleted:
			out.Completed = n
		case models.QueueFailed:
			out.Failed = n
		}
	}
	if err := rows.Err(); err != nil {
		return models.QueueStats{}, fmt.Errorf("iterate queue stats: %w", err)
	}
	return out, nil
}

// ReclaimStale counts an item stuck in processing for longer than olderThan
// as one failed attempt. It goes back to waiting, or to failed once
// maxRetries is reached. The touched items are returned.
func (r *QueueRepo) ReclaimStale(ctx context.Context, olderThan time.Duration, maxRetries int) ([]models.QueueItem, error) {
	rows, err := r.db.Pool.Query(ctx, `
UPDATE scan_queue SET
  retry_count = retry_count + 1,
  status = CASE WHEN retry_count + 1 >= $2 THEN 'failed' ELSE 'waiting' END,
  error = $3,
  started_at = CASE WHEN retry_count + 1 >= $2 THEN started_at ELSE NULL END,
  completed_at = CASE WHEN retry_count + 1 >= $2 THEN NOW() ELSE NULL END
WHERE status = 'processing' AND started_at < NOW() - make_interval(secs => $1)
RETURNING `+queueColumns, olderThan.Seconds(), maxRetries, StaleError)
	if err != nil {
		return nil, fmt.Errorf("reclaim stale items: %w", err)
	}
	defer rows.Close()

	out := make([]models.QueueItem, 0)
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale items: %w", err)
	}
	return out, nil
}

func scanQueueItem(row rowScanner) (models.QueueItem, error) {
	var (
		item   models.QueueItem
		status string
		result []byte
	)
	err := row.Scan(&item.ID, &item.ScanID, &item.DocumentID, &item.Text, &status, &item.RetryCount,
		&item.Error, &result, &item.CreatedAt, &item.StartedAt, &item.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.QueueItem{}, err
		}
		return models.QueueItem{}, fmt.Errorf("scan queue item: %w", err)
	}
	item.Status = models.QueueStatus(status)
	if len(result) > 0 {
		var res models.Result
		if err := json.Unmarshal(result, &res); err != nil {
			return models.QueueItem{}, fmt.Errorf("decode item result: %w", err)
		}
		item.Result = &res
	}
	return item, nil
}
