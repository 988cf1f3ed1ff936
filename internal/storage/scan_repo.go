package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"simscan/internal/models"
	"simscan/internal/util"
)

type ScanRepo struct {
	db *DB
}

func NewScanRepo(db *DB) *ScanRepo {
	return &ScanRepo{db: db}
}

func (r *ScanRepo) Create(ctx context.Context, scan models.Scan) error {
	status := scan.Status
	if status == "" {
		status = models.ScanPending
	}
	_, err := r.db.Pool.Exec(ctx, `INSERT INTO scans (id, document_id, status) VALUES ($1, $2, $3)`, scan.ID, scan.DocumentID, status)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

func (r *ScanRepo) Get(ctx context.Context, id string) (models.Scan, error) {
	var (
		s      models.Scan
		status string
		result []byte
	)
	err := r.db.Pool.QueryRow(ctx, `
SELECT id::text, document_id, status, overall_score, result, COALESCE(error,''), created_at, updated_at
FROM scans
WHERE id=$1`, id).
		Scan(&s.ID, &s.DocumentID, &status, &s.OverallScore, &result, &s.Error, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Scan{}, fmt.Errorf("scan %s: %w", id, util.ErrNotFound)
	}
	if err != nil {
		return models.Scan{}, fmt.Errorf("get scan: %w", err)
	}
	s.Status = models.ScanStatus(status)
	if len(result) > 0 {
		var res models.Result
		if err := json.Unmarshal(result, &res); err != nil {
			return models.Scan{}, fmt.Errorf("decode scan result: %w", err)
		}
		s.Result = &res
	}
	return s, nil
}

func (r *ScanRepo) UpdateStatus(ctx context.Context, id string, status models.ScanStatus, errMsg string) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE scans SET status=$2, error=NULLIF($3,''), updated_at=NOW() WHERE id=$1`, id, status, errMsg)
	if err != nil {
		return fmt.Errorf("update scan status: %w", err)
	}
	return nil
}

func (r *ScanRepo) Complete(ctx context.Context, id string, result models.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
UPDATE scans SET status=$2, overall_score=$3, result=$4, error=NULL, updated_at=NOW()
WHERE id=$1`, id, models.ScanCompleted, result.OverallScore, payload)
	if err != nil {
		return fmt.Errorf("complete scan: %w", err)
	}
	return nil
}
