package domain

import "time"

// ExecutionMode selects how a recenter/adjustment sequence is initiated.
type ExecutionMode string

const (
	// ModeManual requires an explicit caller invocation; no safety gate
	// beyond execution-mode availability.
	ModeManual ExecutionMode = "manual"
	// ModeAuto requires a passing safety report before any step runs.
	ModeAuto ExecutionMode = "auto"
)

// OperationType selects which part of the sequence runs.
type OperationType string

const (
	OpFullRecenter OperationType = "full_recenter"
	OpLPOnly       OperationType = "lp_only"
	OpShortsOnly   OperationType = "shorts_only"
)

// RecenterPlan describes one LP re-center plus the hedge adjustments that go
// with it. Amounts are in native token units unless suffixed USD.
type RecenterPlan struct {
	Pool         string
	CurrentPrice float64

	// New range
	NewTickLower      int
	NewTickUpper      int
	NewRangeLower     float64
	NewRangeUpper     float64

	// LP adjustments
	LiquidityToRemove float64
	Token0FromLP      float64
	Token1FromLP      float64

	// Optional rebalancing swap between removing and re-adding liquidity.
	SwapNeeded    bool
	SwapTokenIn   string
	SwapTokenOut  string
	SwapAmountIn  float64
	SwapAmountOut float64
	SwapSlippageBps int

	// New LP deposit
	NewToken0Amount float64
	NewToken1Amount float64
	NewLPValueUSD   float64

	// Hedge adjustments, one target size per token.
	ShortTargets []ShortTarget

	// Cost estimates feeding the safety gate.
	EstimatedGasNative   float64
	EstimatedSlippageUSD float64
	TotalCostUSD         float64
}

// ShortTarget is the desired absolute short size for one token after the
// adjustment.
type ShortTarget struct {
	Token      string
	TargetSize float64
	Adjustment float64 // signed: positive = increase short
}

// StepStatus reports how one execution step ended.
type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// StepResult records the outcome of one orchestrated step.
type StepResult struct {
	Name   string
	Status StepStatus
	TxID   string
	Error  string
}

// ExecutionRecord is the persisted outcome of one orchestrated sequence.
// A failure at any step does not roll back prior steps; the record keeps
// whatever completed.
type ExecutionRecord struct {
	ID          string
	Mode        ExecutionMode
	Operation   OperationType
	Success     bool
	Steps       []StepResult
	StartedAt   time.Time
	CompletedAt time.Time
}
