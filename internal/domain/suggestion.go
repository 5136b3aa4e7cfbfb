package domain

// HedgeStatus classifies how a token's hedge compares to its LP exposure.
type HedgeStatus string

const (
	StatusBalanced    HedgeStatus = "balanced"
	StatusUnderHedged HedgeStatus = "under_hedged"
	StatusOverHedged  HedgeStatus = "over_hedged"
)

// HedgeAction is the adjustment a suggestion asks for.
type HedgeAction string

const (
	ActionNone          HedgeAction = "none"
	ActionIncreaseShort HedgeAction = "increase_short"
	ActionDecreaseShort HedgeAction = "decrease_short"
)

// Priority ranks a suggestion by its economic significance relative to total
// capital. PriorityUnknown is returned when no price or capital context was
// available to classify; callers that only act on PriorityRequired can treat
// it like optional, but the distinction is surfaced rather than conflated.
type Priority string

const (
	PriorityRequired Priority = "required"
	PriorityOptional Priority = "optional"
	PriorityUnknown  Priority = "unknown"
)

// HedgeSuggestion is the reconciliation verdict for one token.
//
// Difference = LPBalance - ShortBalance; positive means the LP side is
// larger than the short (under-hedged). AdjustmentAmount is always >= 0.
type HedgeSuggestion struct {
	Token              string
	LPBalance          float64
	ShortBalance       float64
	Difference         float64
	DifferencePct      float64
	Status             HedgeStatus
	Action             HedgeAction
	AdjustmentAmount   float64
	AdjustmentValueUSD float64
	Priority           Priority
}

// NeedsAdjustment reports whether the suggestion asks for an actual trade.
func (s HedgeSuggestion) NeedsAdjustment() bool {
	return s.Action != ActionNone
}
