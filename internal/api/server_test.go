package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"simscan/internal/config"
	"simscan/internal/metrics"
	"simscan/internal/models"
	"simscan/internal/queue"
	"simscan/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	scanID = "6f1c2a9e-0b7d-4c55-9a61-2d8f3e4b5a01"
	itemID = "9b2e7c41-5d3a-4f08-8e19-7a6c5b4d3e02"
)

type fakeQueue struct {
	scans []models.Scan
	items []models.QueueItem
	stats models.QueueStats
	err   error
}

func (f *fakeQueue) Submit(_ context.Context, scan models.Scan, item models.QueueItem) error {
	if f.err != nil {
		return f.err
	}
	f.scans = append(f.scans, scan)
	f.items = append(f.items, item)
	return nil
}

func (f *fakeQueue) Get(_ context.Context, id string) (models.QueueItem, error) {
	for _, it := range f.items {
		if it.ID == id {
			return it, nil
		}
	}
	return models.QueueItem{}, fmt.Errorf("get queue item: %w", util.ErrNotFound)
}

func (f *fakeQueue) Stats(context.Context) (models.QueueStats, error) { return f.stats, f.err }

type fakeScans map[string]models.Scan

func (f fakeScans) Get(_ context.Context, id string) (models.Scan, error) {
	s, ok := f[id]
	if !ok {
		return models.Scan{}, fmt.Errorf("get scan: %w", util.ErrNotFound)
	}
	return s, nil
}

type fakeDrain struct {
	started  []int
	startErr error
	progress queue.DrainSummary
}

func (f *fakeDrain) StartDrain(_ context.Context, maxBatches int) (string, string, error) {
	if f.startErr != nil {
		return "", "", f.startErr
	}
	f.started = append(f.started, maxBatches)
	return "drain-queue", "run-1", nil
}

func (f *fakeDrain) DrainProgress(context.Context) (queue.DrainSummary, error) {
	return f.progress, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type testServer struct {
	queue *fakeQueue
	scans fakeScans
	drain *fakeDrain
	h     http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{queue: &fakeQueue{}, scans: fakeScans{}, drain: &fakeDrain{}}
	cfg := config.Config{MaxUploadMegabytes: 1, DrainMaxBatches: 50}
	ts.h = NewServer(cfg, Deps{
		Queue:   ts.queue,
		Scans:   ts.scans,
		Drain:   ts.drain,
		DB:      fakePinger{},
		Metrics: metrics.New(),
	}).Routes()
	return ts
}

func (ts *testServer) do(method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, "missing error envelope: %s", rec.Body.String())
	return e["code"].(string)
}

func TestSubmitJSONDocument(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/documents", bytes.NewBufferString(`{"document_id":"essay-7","text":"An essay about rivers.\u0000"}`), "application/json")

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "essay-7", body["document_id"])
	assert.Equal(t, "pending", body["status"])

	require.Len(t, ts.queue.items, 1)
	item := ts.queue.items[0]
	assert.Equal(t, "An essay about rivers.", item.Text)
	assert.Equal(t, ts.queue.scans[0].ID, item.ScanID)
	assert.Equal(t, body["scan_id"], item.ScanID)
	assert.Equal(t, body["queue_item_id"], item.ID)
}

func TestSubmitDefaultsDocumentIDToFingerprint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/documents", bytes.NewBufferString(`{"text":"Some essay text."}`), "application/json")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, util.DocumentFingerprint("Some essay text."), ts.queue.items[0].DocumentID)
}

func TestSubmitRejectsEmptyText(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/documents", bytes.NewBufferString(`{"text":"  \n "}`), "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "SS-API-4001", errorCode(t, rec))
	assert.Empty(t, ts.queue.items)
}

func TestSubmitRejectsMalformedJSON(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/documents", bytes.NewBufferString(`{"text":`), "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Malformed JSON request body.", body["error"].(map[string]any)["message"])
}

func TestSubmitMultipartTextFile(t *testing.T) {
	ts := newTestServer(t)
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	require.NoError(t, mw.WriteField("document_id", "upload-1"))
	fw, err := mw.CreateFormFile("file", "essay.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("Uploaded essay body.\r\n"))
	require.NoError(t, mw.Close())

	rec := ts.do(http.MethodPost, "/documents", buf, mw.FormDataContentType())
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Len(t, ts.queue.items, 1)
	assert.Equal(t, "upload-1", ts.queue.items[0].DocumentID)
	assert.Equal(t, "Uploaded essay body.", ts.queue.items[0].Text)
}

func TestSubmitMultipartMissingFile(t *testing.T) {
	ts := newTestServer(t)
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	require.NoError(t, mw.WriteField("document_id", "upload-1"))
	require.NoError(t, mw.Close())

	rec := ts.do(http.MethodPost, "/documents", buf, mw.FormDataContentType())
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "No document file was provided.", body["error"].(map[string]any)["message"])
}

func TestSubmitTooLarge(t *testing.T) {
	ts := newTestServer(t)
	big := strings.Repeat("a", 2<<20)
	rec := ts.do(http.MethodPost, "/documents", bytes.NewBufferString(`{"text":"`+big+`"}`), "application/json")
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "SS-API-4013", errorCode(t, rec))
}

func TestSubmitStorageFailureHidesDetail(t *testing.T) {
	ts := newTestServer(t)
	ts.queue.err = errors.New("insert scan: pq secret detail")
	rec := ts.do(http.MethodPost, "/documents", bytes.NewBufferString(`{"text":"hello there"}`), "application/json")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "SS-API-5000", errorCode(t, rec))
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestGetScan(t *testing.T) {
	ts := newTestServer(t)
	score := 20
	ts.scans[scanID] = models.Scan{ID: scanID, DocumentID: "d1", Status: models.ScanCompleted, OverallScore: &score}

	rec := ts.do(http.MethodGet, "/scans/"+scanID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "completed", body["status"])
	assert.EqualValues(t, 20, body["overall_score"])

	rec = ts.do(http.MethodGet, "/scans/2c0d5e7f-1111-4222-8333-944455556666", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SS-API-4004", errorCode(t, rec))

	rec = ts.do(http.MethodGet, "/scans/not-a-uuid", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodDelete, "/scans/"+scanID, nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetQueueItem(t *testing.T) {
	ts := newTestServer(t)
	ts.queue.items = []models.QueueItem{{ID: itemID, ScanID: scanID, Status: models.QueueFailed, RetryCount: 3, Error: "boom", Text: "hidden"}}

	rec := ts.do(http.MethodGet, "/queue/items/"+itemID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "failed", body["status"])
	assert.Equal(t, "boom", body["error"])
	assert.NotContains(t, rec.Body.String(), "hidden")
}

func TestQueueStats(t *testing.T) {
	ts := newTestServer(t)
	ts.queue.stats = models.QueueStats{Waiting: 4, Processing: 1, Completed: 9, Failed: 2}
	rec := ts.do(http.MethodGet, "/queue/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.QueueStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, ts.queue.stats, got)
}

func TestStartDrain(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/queue/drain", nil, "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []int{50}, ts.drain.started)

	rec = ts.do(http.MethodPost, "/queue/drain", bytes.NewBufferString(`{"max_batches":2}`), "application/json")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []int{50, 2}, ts.drain.started)
	assert.Equal(t, "drain-queue", decodeBody(t, rec)["workflow_id"])
}

func TestStartDrainAlreadyRunning(t *testing.T) {
	ts := newTestServer(t)
	ts.drain.startErr = fmt.Errorf("%w: started", ErrDrainRunning)
	rec := ts.do(http.MethodPost, "/queue/drain", nil, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SS-API-4009", errorCode(t, rec))
}

func TestDrainProgress(t *testing.T) {
	ts := newTestServer(t)
	ts.drain.progress = queue.DrainSummary{Batches: 2, Completed: 7}
	rec := ts.do(http.MethodGet, "/queue/drain", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got queue.DrainSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, ts.drain.progress, got)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	h := NewServer(config.Config{}, Deps{DB: fakePinger{err: errors.New("down")}}).Routes()
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SS-API-5030", errorCode(t, rec))
}

func TestMetricsAndCORS(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodOptions, "/documents", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
