package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dispatchly/ghostload/internal/assignment"
	"github.com/dispatchly/ghostload/internal/matching"
	"github.com/dispatchly/ghostload/internal/opportunity"
	"github.com/dispatchly/ghostload/pkg/cache"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const analyticsCacheTTL = 10 * time.Second

// APIHandler serves the opportunity and match query surface.
type APIHandler struct {
	registry  *opportunity.Registry
	optimizer *matching.Optimizer
	workflow  *assignment.Workflow
	cache     cache.Cache
	logger    *zap.Logger
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(
	registry *opportunity.Registry,
	optimizer *matching.Optimizer,
	workflow *assignment.Workflow,
	c cache.Cache,
	logger *zap.Logger,
) *APIHandler {
	return &APIHandler{
		registry:  registry,
		optimizer: optimizer,
		workflow:  workflow,
		cache:     c,
		logger:    logger,
	}
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleListOpportunities handles GET /api/opportunities?status=<status>.
func (h *APIHandler) HandleListOpportunities(w http.ResponseWriter, r *http.Request) {
	var opps []opportunity.Opportunity

	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := opportunity.Status(statusStr)
		if !status.Valid() {
			h.writeError(w, "unknown status: "+statusStr, http.StatusBadRequest)
			return
		}
		opps = h.registry.ListByStatus(status)
	} else {
		opps = h.registry.ListByStatus()
	}

	if opps == nil {
		opps = []opportunity.Opportunity{}
	}

	h.writeJSON(w, http.StatusOK, opps)
}

// HandleGetOpportunity handles GET /api/opportunities/{id}.
func (h *APIHandler) HandleGetOpportunity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	opp, ok := h.registry.Get(id)
	if !ok {
		h.writeError(w, "opportunity not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, opp)
}

// HandleListMatches handles GET /api/matches. It returns the current ranked
// candidate list, best first.
func (h *APIHandler) HandleListMatches(w http.ResponseWriter, r *http.Request) {
	matches := h.optimizer.TopMatches()
	if matches == nil {
		matches = []matching.Candidate{}
	}

	h.writeJSON(w, http.StatusOK, matches)
}

// HandleCommitMatch handles POST /api/matches/{id}/commit.
func (h *APIHandler) HandleCommitMatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	a, err := h.workflow.Commit(r.Context(), id)
	switch {
	case errors.Is(err, assignment.ErrNotFound):
		h.writeError(w, "match not found", http.StatusNotFound)
		return
	case errors.Is(err, assignment.ErrAlreadyAssigned):
		h.writeError(w, "opportunity or vehicle already assigned", http.StatusConflict)
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.writeError(w, "request cancelled", http.StatusRequestTimeout)
		return
	case err != nil:
		h.logger.Error("commit-failed", zap.String("match-id", id), zap.Error(err))
		h.writeError(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, a)
}

// HandleListAssignments handles GET /api/assignments.
func (h *APIHandler) HandleListAssignments(w http.ResponseWriter, r *http.Request) {
	active := h.workflow.Active()
	if active == nil {
		active = []assignment.Assignment{}
	}

	h.writeJSON(w, http.StatusOK, active)
}

// HandleAnalytics handles GET /api/analytics. Responses are cached briefly
// since the snapshot walks the whole registry.
func (h *APIHandler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		if cached, found := h.cache.Get("analytics"); found {
			if snapshot, ok := cached.(opportunity.Analytics); ok {
				h.writeJSON(w, http.StatusOK, snapshot)
				return
			}
		}
	}

	snapshot := h.registry.Snapshot()

	if h.cache != nil {
		h.cache.Set("analytics", snapshot, analyticsCacheTTL)
	}

	h.writeJSON(w, http.StatusOK, snapshot)
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("response-encode-failed", zap.Error(err))
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, msg string, status int) {
	h.writeJSON(w, status, ErrorResponse{Error: msg})
}
