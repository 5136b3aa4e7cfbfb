package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

// Event types the monitor emits. The notify.events config list filters on
// these names.
const (
	EventRecenterTriggered  = "recenter_triggered"
	EventHedgeDrift         = "hedge_drift"
	EventAllocationRisk     = "allocation_risk"
	EventExecutionCompleted = "execution_completed"
	EventError              = "error"
)

// RecenterTriggered formats and sends the recenter-signal alert.
func (n *Notifier) RecenterTriggered(ctx context.Context, state domain.TriggerState) error {
	msg := fmt.Sprintf(
		"Price %.4f deviates %.2f%% from range center (range %.4f - %.4f).\nReason: %s",
		state.CurrentPrice, state.DeviationPct, state.RangeLower, state.RangeUpper, state.Reason,
	)
	return n.Notify(ctx, EventRecenterTriggered, "Recenter triggered", msg)
}

// HedgeDrift formats and sends an alert for out-of-tolerance hedge
// suggestions. Suggestions with no required action are skipped.
func (n *Notifier) HedgeDrift(ctx context.Context, suggestions []domain.HedgeSuggestion) error {
	var lines []string
	for _, s := range suggestions {
		if !s.NeedsAdjustment() {
			continue
		}
		lines = append(lines, fmt.Sprintf(
			"%s: %s %.6f (drift %.2f%%, $%.2f, %s)",
			s.Token, s.Action, s.AdjustmentAmount, s.DifferencePct, s.AdjustmentValueUSD, s.Priority,
		))
	}
	if len(lines) == 0 {
		return nil
	}
	return n.Notify(ctx, EventHedgeDrift, "Hedge drift detected", strings.Join(lines, "\n"))
}

// AllocationRisk sends the capital allocation alert when the split leaves
// the ideal band.
func (n *Notifier) AllocationRisk(ctx context.Context, status domain.AllocationStatus) error {
	if !status.NeedsRebalancing {
		return nil
	}
	msg := fmt.Sprintf(
		"%s\nLP %.1f%% / hedge %.1f%% of $%.2f. Suggested transfer: $%.2f",
		status.Alert, status.LPPercentage, status.HedgePercentage, status.TotalCapital, status.SuggestedTransferUSD,
	)
	return n.Notify(ctx, EventAllocationRisk, "Capital allocation outside ideal band", msg)
}

// ExecutionCompleted reports the outcome of one orchestrated sequence.
func (n *Notifier) ExecutionCompleted(ctx context.Context, rec domain.ExecutionRecord) error {
	outcome := "succeeded"
	if !rec.Success {
		outcome = "FAILED"
	}
	var lines []string
	for _, st := range rec.Steps {
		line := fmt.Sprintf("%s: %s", st.Name, st.Status)
		if st.Error != "" {
			line += " (" + st.Error + ")"
		}
		lines = append(lines, line)
	}
	msg := fmt.Sprintf("Execution %s (%s, %s) %s.\n%s",
		rec.ID, rec.Mode, rec.Operation, outcome, strings.Join(lines, "\n"))
	return n.Notify(ctx, EventExecutionCompleted, "Execution "+outcome, msg)
}

// Error reports a monitoring or sync failure.
func (n *Notifier) Error(ctx context.Context, component string, err error) error {
	return n.Notify(ctx, EventError, "Error in "+component, err.Error())
}
