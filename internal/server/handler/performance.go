package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

// PerformanceService defines the unit accounting reads the performance
// handler requires from the service layer.
type PerformanceService interface {
	Performance(ctx context.Context) (domain.PerformanceMetrics, error)
	UnitSeries(ctx context.Context) ([]domain.QuotaSnapshot, error)
}

// PerformanceHandler serves the unit accounting endpoints.
type PerformanceHandler struct {
	perf   PerformanceService
	logger *slog.Logger
}

// NewPerformanceHandler creates a PerformanceHandler.
func NewPerformanceHandler(perf PerformanceService, logger *slog.Logger) *PerformanceHandler {
	return &PerformanceHandler{
		perf:   perf,
		logger: logger,
	}
}

// GetMetrics returns the performance summary of the unit-value series.
// GET /api/performance
func (h *PerformanceHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.perf.Performance(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: performance failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to compute performance")
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

// seriesResponse wraps the series endpoint output.
type seriesResponse struct {
	Series []domain.QuotaSnapshot `json:"series"`
	Count  int                    `json:"count"`
}

// GetSeries returns the recomputed unit-price series.
// GET /api/performance/series
func (h *PerformanceHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	series, err := h.perf.UnitSeries(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: unit series failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to compute unit series")
		return
	}
	writeJSON(w, http.StatusOK, seriesResponse{
		Series: series,
		Count:  len(series),
	})
}
