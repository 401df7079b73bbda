// Package server exposes the grader's operational HTTP API: health, metrics,
// breaker state, the model price list and assignment progress.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ahrav/go-grader/internal/cost"
	"github.com/ahrav/go-grader/internal/domain"
	"github.com/ahrav/go-grader/internal/llm/circuitbreaker"
	"github.com/ahrav/go-grader/internal/storage"
)

// AssignmentReader is the read side of the store used by the API.
type AssignmentReader interface {
	AssignmentStatus(ctx context.Context, id string) (domain.ProcessStatus, error)
	ListSteps(ctx context.Context, assignmentID string) ([]storage.StepRecord, error)
	ListUsage(ctx context.Context, assignmentID string) ([]domain.UsageRecord, error)
}

// Handler serves the API.
type Handler struct {
	store    AssignmentReader
	breakers *circuitbreaker.Registry
	models   *cost.ModelRegistry
	metrics  http.Handler
	logger   *slog.Logger
}

// NewHandler returns a Handler. metrics may be nil to omit /metrics.
func NewHandler(store AssignmentReader, breakers *circuitbreaker.Registry, models *cost.ModelRegistry, metrics http.Handler) *Handler {
	return &Handler{
		store:    store,
		breakers: breakers,
		models:   models,
		metrics:  metrics,
		logger:   slog.Default().With("component", "http"),
	}
}

// Router builds the route table.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/breakers", h.ListBreakers).Methods(http.MethodGet)
	api.HandleFunc("/breakers/reset", h.ResetBreakers).Methods(http.MethodPost)
	api.HandleFunc("/models", h.ListModels).Methods(http.MethodGet)
	api.HandleFunc("/assignments/{id}", h.GetAssignment).Methods(http.MethodGet)
	api.HandleFunc("/assignments/{id}/usage", h.GetUsage).Methods(http.MethodGet)
	return r
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListBreakers handles GET /v1/breakers.
func (h *Handler) ListBreakers(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.breakers.Snapshot())
}

// ResetBreakers handles POST /v1/breakers/reset.
func (h *Handler) ResetBreakers(w http.ResponseWriter, _ *http.Request) {
	h.breakers.Reset()
	h.logger.Info("circuit breakers reset")
	w.WriteHeader(http.StatusNoContent)
}

// ListModels handles GET /v1/models.
func (h *Handler) ListModels(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.models.Entries())
}

// AssignmentResponse reports an assignment's progress.
type AssignmentResponse struct {
	ID     string               `json:"id"`
	Status domain.ProcessStatus `json:"status"`
	Steps  []storage.StepRecord `json:"steps"`
}

// GetAssignment handles GET /v1/assignments/{id}.
func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	status, err := h.store.AssignmentStatus(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	steps, err := h.store.ListSteps(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, AssignmentResponse{ID: id, Status: status, Steps: steps})
}

// UsageResponse lists usage records with their totals.
type UsageResponse struct {
	AssignmentID string               `json:"assignment_id"`
	Records      []domain.UsageRecord `json:"records"`
	TotalTokens  int64                `json:"total_tokens"`
	TotalCost    domain.MicroUSD      `json:"total_cost_micro_usd"`
	TotalCostUSD string               `json:"total_cost_usd"`
}

// GetUsage handles GET /v1/assignments/{id}/usage.
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	recs, err := h.store.ListUsage(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := UsageResponse{AssignmentID: id, Records: recs}
	if resp.Records == nil {
		resp.Records = []domain.UsageRecord{}
	}
	for _, rec := range recs {
		resp.TotalTokens += rec.TokenCount
		resp.TotalCost = resp.TotalCost.Add(rec.Cost)
	}
	resp.TotalCostUSD = resp.TotalCost.String()
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	h.logger.Error("request failed", "error", err)
	h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encoding response failed", "error", err)
	}
}
