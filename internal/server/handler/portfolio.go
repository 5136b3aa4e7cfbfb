package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/hedgemon/internal/service"
)

// StatusProvider defines what the portfolio handler needs from the monitor:
// the latest published cycle view. Declared locally so the handler package
// does not depend on the concrete monitor implementation.
type StatusProvider interface {
	Status() (service.Status, bool)
}

// PortfolioHandler serves the read-only decision-cycle endpoints. Every
// endpoint reads the monitor's last published status instead of triggering
// collaborator I/O on request.
type PortfolioHandler struct {
	monitor StatusProvider
	logger  *slog.Logger
}

// NewPortfolioHandler creates a PortfolioHandler.
func NewPortfolioHandler(monitor StatusProvider, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		monitor: monitor,
		logger:  logger,
	}
}

// status fetches the last cycle view, writing a 503 when no cycle has
// completed yet.
func (h *PortfolioHandler) status(w http.ResponseWriter) (service.Status, bool) {
	status, ok := h.monitor.Status()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no monitor cycle completed yet")
	}
	return status, ok
}

// GetStatus returns the full last cycle view.
// GET /api/portfolio
func (h *PortfolioHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := h.status(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// GetExposures returns the aggregated LP and hedge exposures with the marks
// used to price them.
// GET /api/portfolio/exposures
func (h *PortfolioHandler) GetExposures(w http.ResponseWriter, r *http.Request) {
	status, ok := h.status(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"timestamp":      status.Timestamp,
		"lp_exposure":    status.Snapshot.LPExposure,
		"hedge_exposure": status.Snapshot.HedgeExposure,
		"prices":         status.Snapshot.Prices,
		"net_worth":      status.Snapshot.NetWorth,
	})
}

// GetSuggestions returns the hedge reconciliation verdicts.
// GET /api/portfolio/suggestions
func (h *PortfolioHandler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	status, ok := h.status(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"timestamp":   status.Timestamp,
		"suggestions": status.Suggestions,
	})
}

// GetAllocation returns the capital allocation classification.
// GET /api/portfolio/allocation
func (h *PortfolioHandler) GetAllocation(w http.ResponseWriter, r *http.Request) {
	status, ok := h.status(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, status.Allocation)
}

// GetTrigger returns the recenter trigger state.
// GET /api/trigger
func (h *PortfolioHandler) GetTrigger(w http.ResponseWriter, r *http.Request) {
	status, ok := h.status(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, status.Trigger)
}

// GetSafety returns the latest safety report.
// GET /api/safety
func (h *PortfolioHandler) GetSafety(w http.ResponseWriter, r *http.Request) {
	status, ok := h.status(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, status.Safety)
}
