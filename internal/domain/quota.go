package domain

import "time"

// CashFlowType distinguishes money entering and leaving the portfolio.
type CashFlowType string

const (
	CashFlowDeposit    CashFlowType = "deposit"
	CashFlowWithdrawal CashFlowType = "withdrawal"
)

// CashFlow is a deposit or withdrawal event. Cash flows buy or redeem units
// at the prevailing unit value so they never distort the unit-value series.
type CashFlow struct {
	ID        string
	Timestamp time.Time
	Type      CashFlowType
	AmountUSD float64
	Note      string
}

// NetWorthPoint is one observed net-worth sample from a sync cycle.
type NetWorthPoint struct {
	Timestamp time.Time
	NetWorth  float64
}

// QuotaSnapshot is one point of the unit-price series. Appended sequentially
// as sync snapshots arrive; the whole series is recomputed deterministically
// from the ordered event log on full replay.
type QuotaSnapshot struct {
	Timestamp  time.Time
	NetWorth   float64
	TotalUnits float64
	UnitValue  float64
}

// PerformanceMetrics summarizes the unit-value series.
type PerformanceMetrics struct {
	InceptionReturnPct float64
	MTDReturnPct       float64
	YTDReturnPct       float64
	CurrentUnitValue   float64
	TotalUnits         float64
	CurrentNetWorth    float64
	TotalDeposits      float64
	TotalWithdrawals   float64
	NetInvested        float64
	ProfitLoss         float64
}
