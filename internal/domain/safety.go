package domain

// Severity grades a safety check outcome.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// SafetyCheckResult is the outcome of a single safety check. Pure value
// object, produced per invocation and never persisted.
type SafetyCheckResult struct {
	Passed    bool
	CheckName string
	Message   string
	Severity  Severity
}

// SafetyReport aggregates a full battery of safety checks. AutoModeAllowed
// is true exactly when every check passed; it is the single gate in front of
// automatic execution.
type SafetyReport struct {
	AllPassed       bool
	AutoModeAllowed bool
	Results         []SafetyCheckResult
	Errors          []SafetyCheckResult // failed checks
	Warnings        []SafetyCheckResult // passed but degraded
}

// SafetyInput carries the observed values the safety gate evaluates. All
// fields are already-validated numeric inputs; the gate itself does no I/O.
type SafetyInput struct {
	GasBalance           float64 // native gas asset balance (ETH)
	HedgeCashBalance     float64 // free collateral on the hedge venue, USD
	AUM                  float64 // total capital, USD
	EstimatedSlippageBps int
	EstimatedGasNative   float64 // estimated gas cost in the gas asset
	LPVenueHealthy       bool
	HedgeVenueHealthy    bool
	PoolLiquidityUSD     float64
}
