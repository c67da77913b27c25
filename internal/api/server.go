// Package api exposes the engine's small HTTP surface: error submission,
// status, and liveness.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/remedystack/remedy-engine/internal/models"
	"github.com/remedystack/remedy-engine/internal/orchestrator"
)

// Engine is the orchestrator surface the API depends on.
type Engine interface {
	Submit(event models.ErrorEvent) error
	Status() models.StatusSnapshot
}

// ReviewStore is the review-queue surface exposed to humans.
type ReviewStore interface {
	ListPending(ctx context.Context, limit int) ([]models.ReviewQueueItem, error)
	MarkResolved(ctx context.Context, id string) error
}

// Server carries the HTTP handlers and their dependencies.
type Server struct {
	engine  Engine
	reviews ReviewStore
	logger  *slog.Logger
	http    *http.Server
}

// NewServer builds a Server listening on addr. reviews may be nil; the
// review endpoints then answer 404.
func NewServer(addr string, engine Engine, reviews ReviewStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{engine: engine, reviews: reviews, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/errors", s.handleSubmit)
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/reviews", s.handleListReviews)
	mux.HandleFunc("POST /api/v1/reviews/{id}/resolve", s.handleResolveReview)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler is exposed for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("api server listening", slog.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type submitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var event models.ErrorEvent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&event); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if event.RawError == "" && event.Type == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "raw_error or type is required"})
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.DetectedAt.IsZero() {
		event.DetectedAt = time.Now().UTC()
	}

	switch err := s.engine.Submit(event); {
	case err == nil:
		writeJSON(w, http.StatusAccepted, submitResponse{ID: event.ID, Status: "queued"})
	case errors.Is(err, orchestrator.ErrDuplicate):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, orchestrator.ErrNotAccepting):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("submit failed", slog.String("error_id", event.ID), slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	if s.reviews == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "review queue not configured"})
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	items, err := s.reviews.ListPending(r.Context(), limit)
	if err != nil {
		s.logger.Error("list pending reviews", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	if items == nil {
		items = []models.ReviewQueueItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleResolveReview(w http.ResponseWriter, r *http.Request) {
	if s.reviews == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "review queue not configured"})
		return
	}
	id := r.PathValue("id")
	if err := s.reviews.MarkResolved(r.Context(), id); err != nil {
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{ID: id, Status: "resolved"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
