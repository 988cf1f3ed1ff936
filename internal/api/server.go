package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"simscan/internal/config"
	"simscan/internal/logging"
	"simscan/internal/metrics"
	"simscan/internal/models"
	"simscan/internal/queue"
	"simscan/internal/util"

	"github.com/google/uuid"
)

type QueueStore interface {
	Submit(ctx context.Context, scan models.Scan, item models.QueueItem) error
	Get(ctx context.Context, id string) (models.QueueItem, error)
	Stats(ctx context.Context) (models.QueueStats, error)
}

type ScanReader interface {
	Get(ctx context.Context, id string) (models.Scan, error)
}

// DrainStarter launches and inspects the queue drain run.
type DrainStarter interface {
	StartDrain(ctx context.Context, maxBatches int) (workflowID, runID string, err error)
	DrainProgress(ctx context.Context) (queue.DrainSummary, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Queue   QueueStore
	Scans   ScanReader
	Drain   DrainStarter
	DB      Pinger
	Metrics *metrics.Metrics
	Logger  logging.Logger
}

type Server struct {
	cfg     config.Config
	queue   QueueStore
	scans   ScanReader
	drain   DrainStarter
	db      Pinger
	metrics *metrics.Metrics
	log     logging.Logger
}

func NewServer(cfg config.Config, d Deps) *Server {
	log := d.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Server{
		cfg:     cfg,
		queue:   d.Queue,
		scans:   d.Scans,
		drain:   d.Drain,
		db:      d.DB,
		metrics: d.Metrics,
		log:     log.Named("api"),
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/documents", s.handleDocuments)
	mux.HandleFunc("/scans/", s.handleScan)
	mux.HandleFunc("/queue/stats", s.handleQueueStats)
	mux.HandleFunc("/queue/items/", s.handleQueueItem)
	mux.HandleFunc("/queue/drain", s.handleDrain)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			writeErr(w, http.StatusServiceUnavailable, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type submitRequest struct {
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	limit := int64(s.cfg.MaxUploadMegabytes) << 20
	if limit <= 0 {
		limit = 32 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var (
		req submitRequest
		err error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		req, err = readUpload(r, limit)
	} else {
		err = json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			err = fmt.Errorf("invalid json: %w", err)
		}
		req.Text = util.NormalizeDocument(req.Text)
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeErr(w, http.StatusRequestEntityTooLarge, err)
		case errors.Is(err, util.ErrNoExtractableText):
			writeErr(w, http.StatusUnprocessableEntity, err)
		default:
			writeErr(w, http.StatusBadRequest, err)
		}
		return
	}
	if req.Text == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("text is required"))
		return
	}

	docID := strings.TrimSpace(req.DocumentID)
	if docID == "" {
		docID = util.DocumentFingerprint(req.Text)
	}
	scan := models.Scan{ID: uuid.NewString(), DocumentID: docID, Status: models.ScanPending}
	item := models.QueueItem{ID: uuid.NewString(), ScanID: scan.ID, DocumentID: docID, Text: req.Text}
	if err := s.queue.Submit(r.Context(), scan, item); err != nil {
		s.log.Error("submit document", logging.String("document_id", docID), logging.Err(err))
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	s.log.Info("document queued",
		logging.String("scan_id", scan.ID),
		logging.String("item_id", item.ID),
		logging.String("document_id", docID),
		logging.Int("chars", len([]rune(req.Text))))
	writeJSON(w, http.StatusAccepted, map[string]any{
		"scan_id":       scan.ID,
		"queue_item_id": item.ID,
		"document_id":   docID,
		"status":        scan.Status,
	})
}

// readUpload accepts a "file" part (PDF or plain text) and an optional
// "document_id" field.
func readUpload(r *http.Request, limit int64) (submitRequest, error) {
	if err := r.ParseMultipartForm(limit); err != nil {
		return submitRequest{}, fmt.Errorf("parse multipart: %w", err)
	}
	req := submitRequest{DocumentID: r.FormValue("document_id")}
	f, fh, err := r.FormFile("file")
	if err != nil {
		return submitRequest{}, fmt.Errorf("no file provided: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return submitRequest{}, fmt.Errorf("read upload: %w", err)
	}
	if util.IsPDF(fh.Filename, data) {
		text, err := util.ExtractPDFBytes(data)
		if err != nil {
			return submitRequest{}, err
		}
		req.Text = text
		return req, nil
	}
	req.Text = util.NormalizeDocument(string(data))
	return req, nil
}

func pathID(r *http.Request, prefix string) string {
	return strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
}

// validID rejects anything that is not a UUID before it reaches a uuid column.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	id := pathID(r, "/scans/")
	if !validID(id) {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	scan, err := s.scans.Get(r.Context(), id)
	if err != nil {
		writeLookupErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

func (s *Server) handleQueueItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	id := pathID(r, "/queue/items/")
	if !validID(id) {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	item, err := s.queue.Get(r.Context(), id)
	if err != nil {
		writeLookupErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	stats, err := s.queue.Stats(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.SetQueueDepth(stats.Waiting)
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if s.drain == nil {
		writeErr(w, http.StatusServiceUnavailable, fmt.Errorf("drain scheduler not configured"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		prog, err := s.drain.DrainProgress(r.Context())
		if err != nil {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, prog)
	case http.MethodPost:
		var req struct {
			MaxBatches *int `json:"max_batches"`
		}
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
				writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
				return
			}
		}
		maxBatches := s.cfg.DrainMaxBatches
		if req.MaxBatches != nil {
			maxBatches = *req.MaxBatches
		}
		wfID, runID, err := s.drain.StartDrain(r.Context(), maxBatches)
		if err != nil {
			if errors.Is(err, ErrDrainRunning) {
				writeErr(w, http.StatusConflict, err)
				return
			}
			s.log.Error("start drain workflow", logging.Err(err))
			writeErr(w, http.StatusBadGateway, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"workflow_id": wfID, "run_id": runID, "max_batches": maxBatches})
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func writeLookupErr(w http.ResponseWriter, err error) {
	if errors.Is(err, util.ErrNotFound) {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	writeErr(w, http.StatusInternalServerError, err)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
