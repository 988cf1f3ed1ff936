package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"simscan/internal/corpus"
	"simscan/internal/lock"
	"simscan/internal/models"
	"simscan/internal/util"
)

type memQueue struct {
	mu        sync.Mutex
	items     map[string]*models.QueueItem
	order     []string
	completed map[string]models.Result
	reclaim   []models.QueueItem
	marked    []string
}

func newMemQueue(items ...models.QueueItem) *memQueue {
	q := &memQueue{items: map[string]*models.QueueItem{}, completed: map[string]models.Result{}}
	for i := range items {
		it := items[i]
		if it.Status == "" {
			it.Status = models.QueueWaiting
		}
		q.items[it.ID] = &it
		q.order = append(q.order, it.ID)
	}
	return q
}

func (q *memQueue) get(id string) models.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	return *q.items[id]
}

func (q *memQueue) FetchWaiting(_ context.Context, limit int) ([]models.QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.QueueItem, 0, limit)
	for _, id := range q.order {
		if len(out) == limit {
			break
		}
		if it := q.items[id]; it.Status == models.QueueWaiting {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (q *memQueue) MarkProcessing(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	it := q.items[id]
	if it.Status != models.QueueWaiting {
		return fmt.Errorf("mark %s: %w", id, util.ErrAlreadyClaimed)
	}
	now := time.Now()
	it.Status = models.QueueProcessing
	it.StartedAt = &now
	q.marked = append(q.marked, id)
	return nil
}

func (q *memQueue) Complete(_ context.Context, id string, result models.Result) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	it := q.items[id]
	it.Status = models.QueueCompleted
	it.Error = ""
	it.Result = &result
	q.completed[id] = result
	return nil
}

func (q *memQueue) Requeue(_ context.Context, id string, retryCount int, errMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	it := q.items[id]
	it.Status = models.QueueWaiting
	it.RetryCount = retryCount
	it.Error = errMsg
	it.StartedAt = nil
	return nil
}

func (q *memQueue) Fail(_ context.Context, id string, retryCount int, errMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	it := q.items[id]
	it.Status = models.QueueFailed
	it.RetryCount = retryCount
	it.Error = errMsg
	return nil
}

func (q *memQueue) CountWaiting(context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, it := range q.items {
		if it.Status == models.QueueWaiting {
			n++
		}
	}
	return n, nil
}

func (q *memQueue) ReclaimStale(context.Context, time.Duration, int) ([]models.QueueItem, error) {
	return q.reclaim, nil
}

type memScans struct {
	mu          sync.Mutex
	status      map[string]models.ScanStatus
	errs        map[string]string
	results     map[string]models.Result
	completeErr error
	history     map[string][]models.ScanStatus
}

func newMemScans() *memScans {
	return &memScans{
		status:  map[string]models.ScanStatus{},
		errs:    map[string]string{},
		results: map[string]models.Result{},
		history: map[string][]models.ScanStatus{},
	}
}

func (s *memScans) UpdateStatus(_ context.Context, id string, status models.ScanStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[id] = status
	s.errs[id] = errMsg
	s.history[id] = append(s.history[id], status)
	return nil
}

func (s *memScans) Complete(_ context.Context, id string, result models.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completeErr != nil {
		return s.completeErr
	}
	s.status[id] = models.ScanCompleted
	s.results[id] = result
	s.history[id] = append(s.history[id], models.ScanCompleted)
	return nil
}

type memCreds struct {
	mu    sync.Mutex
	creds []*models.Credential
}

func newMemCreds(labels ...string) *memCreds {
	c := &memCreds{}
	for _, l := range labels {
		c.creds = append(c.creds, &models.Credential{ID: "id-" + l, Label: l, APIKey: "key-" + l, Active: true})
	}
	return c
}

func (c *memCreds) LeastUsed(context.Context) (models.Credential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	active := make([]*models.Credential, 0, len(c.creds))
	for _, cr := range c.creds {
		if cr.Active {
			active = append(active, cr)
		}
	}
	if len(active) == 0 {
		return models.Credential{}, util.ErrNoCredentials
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].TotalRequests < active[j].TotalRequests })
	return *active[0], nil
}

func (c *memCreds) find(id string) *models.Credential {
	for _, cr := range c.creds {
		if cr.ID == id {
			return cr
		}
	}
	return nil
}

func (c *memCreds) IncrementUsage(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.find(id).TotalRequests++
	return nil
}

func (c *memCreds) IncrementFailure(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.find(id).FailedRequests++
	return nil
}

type fakeSearcher struct {
	mu      sync.Mutex
	fn      func(ctx context.Context, query string) ([]corpus.Work, error)
	queries []string
	labels  []string
}

func (f *fakeSearcher) Name() string { return "fake" }

func (f *fakeSearcher) Search(ctx context.Context, cred models.Credential, query string, _ int) ([]corpus.Work, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.labels = append(f.labels, cred.Label)
	f.mu.Unlock()
	if f.fn == nil {
		return nil, nil
	}
	return f.fn(ctx, query)
}

type heldLocks struct{}

func (heldLocks) NewMutex(string) lock.Mutex { return heldMutex{} }

type heldMutex struct{}

func (heldMutex) TryLock(context.Context) (bool, error) { return false, nil }
func (heldMutex) Unlock(context.Context) error          { return errors.New("not held") }
