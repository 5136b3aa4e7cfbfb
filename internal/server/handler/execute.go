package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

// ExecutionService defines the manual execution entry point the handler
// requires from the service layer.
type ExecutionService interface {
	ExecuteManual(ctx context.Context, op domain.OperationType) (domain.ExecutionRecord, error)
}

// ExecuteHandler serves the manual execution trigger and execution history.
type ExecuteHandler struct {
	exec       ExecutionService
	executions domain.ExecutionStore
	logger     *slog.Logger
}

// NewExecuteHandler creates an ExecuteHandler.
func NewExecuteHandler(exec ExecutionService, executions domain.ExecutionStore, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		exec:       exec,
		executions: executions,
		logger:     logger,
	}
}

// executeRequest is the POST body for a manual execution.
type executeRequest struct {
	Operation string `json:"operation"`
}

// Execute runs one manual recenter/adjustment sequence and returns its
// record. The caller owns the decision; only execution-mode availability and
// the in-flight lock gate it.
// POST /api/execute
func (h *ExecuteHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	op := domain.OperationType(req.Operation)
	switch op {
	case domain.OpFullRecenter, domain.OpLPOnly, domain.OpShortsOnly:
	default:
		writeError(w, http.StatusBadRequest, "operation must be full_recenter, lp_only, or shorts_only")
		return
	}

	rec, err := h.exec.ExecuteManual(r.Context(), op)
	switch {
	case errors.Is(err, domain.ErrExecutionMode):
		writeError(w, http.StatusConflict, "execution is not enabled on this deployment")
		return
	case errors.Is(err, domain.ErrExecutionLocked), errors.Is(err, domain.ErrLockHeld):
		writeError(w, http.StatusConflict, "another execution is already in flight")
		return
	case err != nil && len(rec.Steps) == 0:
		h.logger.ErrorContext(r.Context(), "handler: execute failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "execution failed to start")
		return
	}

	// A partially failed sequence still returns its record; the step
	// results carry the failure detail.
	writeJSON(w, http.StatusOK, rec)
}

// listExecutionsResponse wraps the history endpoint output.
type listExecutionsResponse struct {
	Executions []domain.ExecutionRecord `json:"executions"`
	Count      int                      `json:"count"`
}

// ListExecutions returns the newest execution records first.
// GET /api/executions?limit=50
func (h *ExecuteHandler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)

	records, err := h.executions.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list executions failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list executions")
		return
	}
	writeJSON(w, http.StatusOK, listExecutionsResponse{
		Executions: records,
		Count:      len(records),
	})
}
