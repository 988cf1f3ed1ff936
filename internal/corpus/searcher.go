// Package corpus talks to the external scholarly search API that supplies
// candidate sources for overlap detection.
package corpus

import (
	"context"

	"simscan/internal/models"
)

type Searcher interface {
	Name() string
	Search(ctx context.Context, cred models.Credential, query string, limit int) ([]Work, error)
}
