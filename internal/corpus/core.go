package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"simscan/internal/models"
	"simscan/internal/util"
)

const (
	DefaultBaseURL   = "https://api.core.ac.uk/v3"
	DefaultLimit     = 10
	maxResponseBytes = 16 << 20
	maxErrorSnippet  = 300
)

// CoreClient searches the CORE v3 works index.
type CoreClient struct {
	baseURL string
	client  *http.Client
}

func NewCoreClient(baseURL string, client *http.Client) *CoreClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &CoreClient{baseURL: baseURL, client: client}
}

func (c *CoreClient) Name() string { return "core" }

func (c *CoreClient) Search(ctx context.Context, cred models.Credential, query string, limit int) ([]Work, error) {
	if strings.TrimSpace(cred.APIKey) == "" {
		return nil, fmt.Errorf("core key missing for credential %q: %w", cred.Label, util.ErrPermanent)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	u, err := url.Parse(c.baseURL + "/search/works")
	if err != nil {
		return nil, fmt.Errorf("parse core url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build core request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.APIKey)
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("core search request: %w", ctx.Err())
		}
		return nil, fmt.Errorf("core search request failed: %w: %w", util.ErrTransient, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read core response: %w: %w", util.ErrTransient, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("core search error %d: %s: %w", resp.StatusCode, snippet(body), statusError(resp.StatusCode))
	}
	var parsed struct {
		TotalHits int    `json:"totalHits"`
		Results   []Work `json:"results"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode core response: %w", err)
	}
	if parsed.Results == nil {
		return []Work{}, nil
	}
	return parsed.Results, nil
}

func statusError(code int) error {
	switch {
	case code == http.StatusTooManyRequests:
		return util.ErrRateLimited
	case code == http.StatusPaymentRequired:
		return util.ErrQuotaExhausted
	case code >= 500:
		return util.ErrTransient
	default:
		return util.ErrPermanent
	}
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorSnippet {
		s = s[:maxErrorSnippet]
	}
	return s
}
