package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/model"
	"github.com/opensource-finance/kestrel/internal/scoring"
	"github.com/opensource-finance/kestrel/internal/velocity"
)

// scoreEventTTL bounds how long score events stay in the lookup cache.
const scoreEventTTL = 10 * time.Minute

// Handler holds dependencies for API handlers.
type Handler struct {
	holder   *model.Holder
	engine   *scoring.Engine
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	recorder *velocity.Recorder
	version  string

	audit chan auditJob
	done  chan struct{}
}

// auditJob carries the post-response work for one scored request: the audit
// record and the velocity observation.
type auditJob struct {
	event    domain.ScoreEvent
	snapshot *model.Model
	request  domain.ScoreRequest
}

// NewHandler creates a new API handler and starts its audit writer.
func NewHandler(holder *model.Holder, engine *scoring.Engine, repo domain.Repository, cache domain.Cache, bus domain.EventBus, recorder *velocity.Recorder, version string) *Handler {
	h := &Handler{
		holder:   holder,
		engine:   engine,
		repo:     repo,
		cache:    cache,
		bus:      bus,
		recorder: recorder,
		version:  version,
		audit:    make(chan auditJob, 256),
		done:     make(chan struct{}),
	}
	go h.auditLoop()
	return h
}

// ScoreResponse is the response for POST /api/v1/score.
type ScoreResponse struct {
	Decision       string           `json:"decision"`
	Risk           int              `json:"risk"`
	Reasons        []map[string]any `json:"reasons"`
	ModelVersion   string           `json:"modelVersion"`
	ModelUpdatedAt string           `json:"modelUpdatedAt"`
}

// ModelResponse is the response for GET /api/v1/model.
type ModelResponse struct {
	Version   string `json:"version"`
	UpdatedAt string `json:"updatedAt"`
}

// UpdateModelRequest is the body for POST /api/v1/model/admin/update.
type UpdateModelRequest struct {
	Filename string `json:"filename"`
}

// Score handles POST /api/v1/score. The snapshot is read once; the response
// reports exactly the snapshot the request was evaluated against, even if a
// newer model is published mid-flight.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	var req domain.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "amount must be positive",
		})
		return
	}
	if req.Currency == "" || req.Timestamp == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "currency and timestamp are required",
		})
		return
	}

	snapshot := h.holder.Current()

	result, err := h.engine.Score(snapshot, &req)
	if err != nil {
		slog.Error("scoring failed",
			"error", err,
			"request_id", r.Context().Value(RequestIDKey),
		)
		// Opaque failure: server error, empty body, no partial score.
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	reasons := make([]map[string]any, 0, len(result.Reasons))
	for _, reason := range result.Reasons {
		reasons = append(reasons, reason.Attributes())
	}

	event := domain.ScoreEvent{
		ID:             uuid.New().String(),
		Decision:       string(result.Decision),
		Risk:           result.Risk,
		ModelVersion:   result.ModelVersion,
		ModelUpdatedAt: result.ModelUpdatedAt,
		CreatedAt:      time.Now().UTC(),
	}
	event.Reasons, _ = json.Marshal(reasons)

	h.enqueueAudit(auditJob{event: event, snapshot: snapshot, request: req})

	writeJSON(w, http.StatusOK, ScoreResponse{
		Decision:       string(result.Decision),
		Risk:           result.Risk,
		Reasons:        reasons,
		ModelVersion:   result.ModelVersion,
		ModelUpdatedAt: result.ModelUpdatedAt.UTC().Format(time.RFC3339),
	})
}

// GetModel handles GET /api/v1/model.
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	m := h.holder.Current()
	writeJSON(w, http.StatusOK, ModelResponse{
		Version:   m.Version,
		UpdatedAt: m.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// UpdateModel handles POST /api/v1/model/admin/update. It publishes the
// notice to the update topic and returns immediately; the caller gets no
// confirmation that a swap occurred.
func (h *Handler) UpdateModel(w http.ResponseWriter, r *http.Request) {
	var req UpdateModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Filename == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "filename is required",
		})
		return
	}

	notice := domain.UpdateNotice{
		Filename:  req.Filename,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	payload, _ := json.Marshal(notice)

	if err := h.bus.Publish(r.Context(), domain.TopicModelUpdate, payload); err != nil {
		slog.Error("failed to publish update notice",
			"filename", req.Filename,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to publish update notice",
		})
		return
	}

	slog.Info("model update requested", "filename", req.Filename)
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "accepted",
	})
}

// GetScoreEvent handles GET /api/v1/scores/{id}.
func (h *Handler) GetScoreEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "score event id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "audit log not available",
		})
		return
	}

	// Cache first
	if h.cache != nil {
		if cached, err := h.cache.Get(r.Context(), "score:"+id); err == nil && cached != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}
	}

	event, err := h.repo.GetScoreEvent(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "score event not found",
		})
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if h.cache != nil {
		_ = h.cache.Set(r.Context(), "score:"+id, body, scoreEventTTL)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready reports whether a model has been published.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	m := h.holder.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"ready":        true,
		"modelVersion": m.Version,
	})
}

// enqueueAudit hands post-response work to the audit writer without
// blocking the scoring path. A full queue drops the job.
func (h *Handler) enqueueAudit(job auditJob) {
	select {
	case h.audit <- job:
	default:
		slog.Warn("audit queue full, dropping score event", "event_id", job.event.ID)
	}
}

// auditLoop persists score events and records velocity observations off the
// request path.
func (h *Handler) auditLoop() {
	defer close(h.done)

	for job := range h.audit {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if h.repo != nil {
			if err := h.repo.SaveScoreEvent(ctx, &job.event); err != nil {
				slog.Error("failed to save score event",
					"event_id", job.event.ID,
					"error", err,
				)
			}
		}
		if h.recorder != nil {
			h.recorder.Record(ctx, job.snapshot, &job.request)
		}

		cancel()
	}
}

// Close drains the audit queue.
func (h *Handler) Close() {
	close(h.audit)
	<-h.done
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
