package corpus

import (
	"fmt"
	"strings"

	"simscan/internal/config"
)

const (
	ProviderCore = "core"
	ProviderMock = "mock"
)

// NewSearcher builds the searcher named by the configured corpus provider.
func NewSearcher(cfg config.Config) (Searcher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.CorpusProvider)) {
	case "", ProviderCore:
		return NewCoreClient(cfg.CorpusBaseURL, nil), nil
	case ProviderMock:
		return NewMockSearcher(), nil
	default:
		return nil, fmt.Errorf("unsupported corpus provider: %s", cfg.CorpusProvider)
	}
}
