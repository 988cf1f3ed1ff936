package storage

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS scans (
  id UUID PRIMARY KEY,
  document_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  overall_score INT,
  result JSONB,
  error TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS scan_queue (
  id UUID PRIMARY KEY,
  scan_id UUID NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
  document_id TEXT NOT NULL,
  input_text TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'waiting',
  retry_count INT NOT NULL DEFAULT 0,
  error TEXT,
  result JSONB,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  started_at TIMESTAMPTZ,
  completed_at TIMESTAMPTZ
)`,
	`CREATE INDEX IF NOT EXISTS scan_queue_status_created_idx ON scan_queue (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS corpus_credentials (
  id UUID PRIMARY KEY,
  label TEXT NOT NULL UNIQUE,
  api_key TEXT NOT NULL,
  active BOOLEAN NOT NULL DEFAULT TRUE,
  total_requests BIGINT NOT NULL DEFAULT 0,
  failed_requests BIGINT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
}

// Migrate creates the tables the service needs. Every statement is idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schemaStatements {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
