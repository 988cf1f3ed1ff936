package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"simscan/internal/models"
	"simscan/internal/util"
)

const credentialColumns = `id::text, label, api_key, active, total_requests, failed_requests, created_at`

type CredentialRepo struct {
	db *DB
}

func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

// LeastUsed picks the active credential with the fewest recorded requests.
func (r *CredentialRepo) LeastUsed(ctx context.Context) (models.Credential, error) {
	c, err := scanCredential(r.db.Pool.QueryRow(ctx, `
SELECT `+credentialColumns+`
FROM corpus_credentials
WHERE active
ORDER BY total_requests ASC, created_at ASC
LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Credential{}, util.ErrNoCredentials
	}
	if err != nil {
		return models.Credential{}, fmt.Errorf("select least used credential: %w", err)
	}
	return c, nil
}

func (r *CredentialRepo) IncrementUsage(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE corpus_credentials SET total_requests = total_requests + 1 WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("increment credential usage: %w", err)
	}
	return nil
}

func (r *CredentialRepo) IncrementFailure(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE corpus_credentials SET failed_requests = failed_requests + 1 WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("increment credential failures: %w", err)
	}
	return nil
}

// EnsureCredential inserts the labelled key, or rotates the key of an
// existing label. Counters and the active flag are kept, so startup seeding
// never re-enables a credential an operator disabled.
func (r *CredentialRepo) EnsureCredential(ctx context.Context, label, apiKey string) (models.Credential, error) {
	c, err := scanCredential(r.db.Pool.QueryRow(ctx, `
INSERT INTO corpus_credentials (id, label, api_key, active)
VALUES ($1, $2, $3, TRUE)
ON CONFLICT (label)
DO UPDATE SET api_key = EXCLUDED.api_key
RETURNING `+credentialColumns, uuid.NewString(), label, apiKey))
	if err != nil {
		return models.Credential{}, fmt.Errorf("ensure credential %s: %w", label, err)
	}
	return c, nil
}

func (r *CredentialRepo) SetActive(ctx context.Context, label string, active bool) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE corpus_credentials SET active=$2 WHERE label=$1`, label, active)
	if err != nil {
		return fmt.Errorf("set credential active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("credential %s: %w", label, util.ErrNotFound)
	}
	return nil
}

func (r *CredentialRepo) List(ctx context.Context) ([]models.Credential, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+credentialColumns+` FROM corpus_credentials ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	out := make([]models.Credential, 0)
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return out, nil
}

func scanCredential(row rowScanner) (models.Credential, error) {
	var c models.Credential
	err := row.Scan(&c.ID, &c.Label, &c.APIKey, &c.Active, &c.TotalRequests, &c.FailedRequests, &c.CreatedAt)
	return c, err
}
