package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jobgrid/matchd/internal/embedder"
	"github.com/jobgrid/matchd/internal/indexer"
	"github.com/jobgrid/matchd/internal/recommend"
)

// Recommender is the slice of the recommendation service the HTTP layer needs.
type Recommender interface {
	RecommendForJob(ctx context.Context, req recommend.JobRequest) (*recommend.Response, error)
	RecommendForCandidate(ctx context.Context, req recommend.CandidateRequest) (*recommend.Response, error)
}

// Syncer triggers index synchronization.
type Syncer interface {
	SyncAll(ctx context.Context) (indexer.SyncReport, error)
	SyncJob(ctx context.Context, id uuid.UUID) error
	SyncProfile(ctx context.Context, id uuid.UUID) error
}

// Handler holds the HTTP handlers for the recommendation API.
type Handler struct {
	recommender Recommender
	syncer      Syncer
	ready       func(ctx context.Context) error
	logger      *slog.Logger
}

// NewHandler creates a Handler. ready is called by the readiness probe;
// nil means always ready.
func NewHandler(recommender Recommender, syncer Syncer, ready func(ctx context.Context) error, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		recommender: recommender,
		syncer:      syncer,
		ready:       ready,
		logger:      logger,
	}
}

// JobRecommendations handles GET /v1/jobs/{id}/recommendations.
func (h *Handler) JobRecommendations(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	req := recommend.JobRequest{JobID: jobID}
	if !parseListParams(w, r, &req.Limit, &req.MinScore) {
		return
	}
	req.IncludeApplied = r.URL.Query().Get("include_applied") == "true"

	resp, err := h.recommender.RecommendForJob(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CandidateRecommendations handles GET /v1/candidates/{id}/recommendations.
func (h *Handler) CandidateRecommendations(w http.ResponseWriter, r *http.Request) {
	candidateID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	req := recommend.CandidateRequest{CandidateID: candidateID}
	if !parseListParams(w, r, &req.Limit, &req.MinScore) {
		return
	}

	resp, err := h.recommender.RecommendForCandidate(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// TriggerSync handles POST /v1/admin/sync. It runs a full reindex
// synchronously and reports counts.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	report, err := h.syncer.SyncAll(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// SyncJob handles POST /v1/admin/sync/jobs/{id}.
func (h *Handler) SyncJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.syncer.SyncJob(r.Context(), jobID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "synced"})
}

// SyncProfile handles POST /v1/admin/sync/candidates/{id}.
func (h *Handler) SyncProfile(w http.ResponseWriter, r *http.Request) {
	candidateID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.syncer.SyncProfile(r.Context(), candidateID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "synced"})
}

// Readiness handles GET /readyz.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.logger.Warn("readiness check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recommend.ErrAnchorNotFound):
		writeError(w, http.StatusNotFound, "entity not found")
	case errors.Is(err, recommend.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, embedder.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "embedding backend unavailable")
	default:
		h.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+param+": must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// maxLimit caps the requested result count. Retrieval overfetches beyond
// the limit, so an unbounded value would turn into an oversized vector
// query and per-hit entity loads.
const maxLimit = 100

// parseListParams parses the shared limit and min_score query parameters.
// Returns false after writing a 400 response when a value is malformed.
func parseListParams(w http.ResponseWriter, r *http.Request, limit *int, minScore *float32) bool {
	q := r.URL.Query()

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxLimit {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: must be between 1 and %d", maxLimit))
			return false
		}
		*limit = n
	}

	if raw := q.Get("min_score"); raw != "" {
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil || f < 0 || f > 1 {
			writeError(w, http.StatusBadRequest, "invalid min_score: must be between 0 and 1")
			return false
		}
		*minScore = float32(f)
	}

	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
