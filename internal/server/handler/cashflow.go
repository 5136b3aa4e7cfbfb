package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

// CashFlowService defines the cash-flow operations the handler requires from
// the service layer.
type CashFlowService interface {
	RecordCashFlow(ctx context.Context, flowType domain.CashFlowType, amountUSD float64, note string) (domain.CashFlow, error)
	ListCashFlows(ctx context.Context) ([]domain.CashFlow, error)
}

// CashFlowHandler serves the deposit/withdrawal recording endpoints.
type CashFlowHandler struct {
	flows  CashFlowService
	logger *slog.Logger
}

// NewCashFlowHandler creates a CashFlowHandler.
func NewCashFlowHandler(flows CashFlowService, logger *slog.Logger) *CashFlowHandler {
	return &CashFlowHandler{
		flows:  flows,
		logger: logger,
	}
}

// recordCashFlowRequest is the POST body for recording a flow.
type recordCashFlowRequest struct {
	Type      string  `json:"type"`
	AmountUSD float64 `json:"amount_usd"`
	Note      string  `json:"note"`
}

// RecordCashFlow records one deposit or withdrawal.
// POST /api/cashflows
func (h *CashFlowHandler) RecordCashFlow(w http.ResponseWriter, r *http.Request) {
	var req recordCashFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	flowType := domain.CashFlowType(req.Type)
	if flowType != domain.CashFlowDeposit && flowType != domain.CashFlowWithdrawal {
		writeError(w, http.StatusBadRequest, "type must be deposit or withdrawal")
		return
	}
	if req.AmountUSD <= 0 {
		writeError(w, http.StatusBadRequest, "amount_usd must be positive")
		return
	}

	cf, err := h.flows.RecordCashFlow(r.Context(), flowType, req.AmountUSD, req.Note)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: record cash flow failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to record cash flow")
		return
	}
	writeJSON(w, http.StatusCreated, cf)
}

// listCashFlowsResponse wraps the list endpoint output.
type listCashFlowsResponse struct {
	CashFlows []domain.CashFlow `json:"cash_flows"`
	Count     int               `json:"count"`
}

// ListCashFlows returns the full cash-flow log, oldest first.
// GET /api/cashflows
func (h *CashFlowHandler) ListCashFlows(w http.ResponseWriter, r *http.Request) {
	flows, err := h.flows.ListCashFlows(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list cash flows failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list cash flows")
		return
	}
	writeJSON(w, http.StatusOK, listCashFlowsResponse{
		CashFlows: flows,
		Count:     len(flows),
	})
}
