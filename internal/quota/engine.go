// Package quota implements fund-style unit accounting: deposits and
// withdrawals buy and redeem units at the prevailing unit value, so the
// unit-value series reflects market performance only, never cash-flow
// timing.
package quota

import (
	"sort"
	"time"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

// BootstrapUnitValue is the unit price used while no units exist (before the
// first deposit) and the baseline for inception return.
const BootstrapUnitValue = 1.0

// Engine converts net-worth history plus cash-flow events into the unit
// series. Stateless; every call is a full deterministic replay, which is how
// transaction backfills recompute the series.
type Engine struct{}

// NewEngine creates an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// ComputeSeries replays snapshots in timestamp order. Before recording each
// snapshot, every not-yet-applied cash flow with timestamp <= the snapshot's
// is applied in order: a deposit issues amount/unit_value units, a
// withdrawal redeems amount/unit_value units capped at the outstanding
// total. Flows are priced against a running NAV (the previous snapshot's net
// worth plus the flows applied since), so a flow changes TotalUnits and
// never UnitValue; only market movement between snapshots moves the unit
// price.
func (e *Engine) ComputeSeries(points []domain.NetWorthPoint, flows []domain.CashFlow) []domain.QuotaSnapshot {
	if len(points) == 0 {
		return nil
	}

	sortedPoints := make([]domain.NetWorthPoint, len(points))
	copy(sortedPoints, points)
	sort.SliceStable(sortedPoints, func(i, j int) bool {
		return sortedPoints[i].Timestamp.Before(sortedPoints[j].Timestamp)
	})

	sortedFlows := make([]domain.CashFlow, len(flows))
	copy(sortedFlows, flows)
	sort.SliceStable(sortedFlows, func(i, j int) bool {
		return sortedFlows[i].Timestamp.Before(sortedFlows[j].Timestamp)
	})

	series := make([]domain.QuotaSnapshot, 0, len(sortedPoints))
	totalUnits := 0.0
	runningNAV := 0.0
	flowIdx := 0

	for _, p := range sortedPoints {
		for flowIdx < len(sortedFlows) && !sortedFlows[flowIdx].Timestamp.After(p.Timestamp) {
			flow := sortedFlows[flowIdx]
			unitValue := unitValueAt(runningNAV, totalUnits)

			switch flow.Type {
			case domain.CashFlowDeposit:
				totalUnits += flow.AmountUSD / unitValue
				runningNAV += flow.AmountUSD
			case domain.CashFlowWithdrawal:
				redeemed := flow.AmountUSD / unitValue
				if redeemed > totalUnits {
					redeemed = totalUnits
				}
				totalUnits -= redeemed
				runningNAV -= redeemed * unitValue
				if runningNAV < 0 {
					runningNAV = 0
				}
			}
			flowIdx++
		}

		series = append(series, domain.QuotaSnapshot{
			Timestamp:  p.Timestamp,
			NetWorth:   p.NetWorth,
			TotalUnits: totalUnits,
			UnitValue:  unitValueAt(p.NetWorth, totalUnits),
		})
		runningNAV = p.NetWorth
	}

	return series
}

func unitValueAt(netWorth, totalUnits float64) float64 {
	if totalUnits > 0 {
		return netWorth / totalUnits
	}
	return BootstrapUnitValue
}

// Metrics derives performance figures from a unit series and the cash flows
// that produced it. Period returns locate the nearest snapshot at or before
// the period start; with no prior snapshot the period return falls back to
// the first snapshot in the series.
func (e *Engine) Metrics(series []domain.QuotaSnapshot, flows []domain.CashFlow) domain.PerformanceMetrics {
	m := domain.PerformanceMetrics{
		CurrentUnitValue: BootstrapUnitValue,
	}

	for _, f := range flows {
		switch f.Type {
		case domain.CashFlowDeposit:
			m.TotalDeposits += f.AmountUSD
		case domain.CashFlowWithdrawal:
			m.TotalWithdrawals += f.AmountUSD
		}
	}
	m.NetInvested = m.TotalDeposits - m.TotalWithdrawals

	if len(series) == 0 {
		return m
	}

	latest := series[len(series)-1]
	m.CurrentUnitValue = latest.UnitValue
	m.TotalUnits = latest.TotalUnits
	m.CurrentNetWorth = latest.NetWorth
	m.ProfitLoss = latest.NetWorth - m.NetInvested

	m.InceptionReturnPct = (latest.UnitValue/BootstrapUnitValue - 1) * 100

	now := latest.Timestamp
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())

	m.MTDReturnPct = periodReturn(series, monthStart, latest.UnitValue)
	m.YTDReturnPct = periodReturn(series, yearStart, latest.UnitValue)

	return m
}

// periodReturn computes the return from the last snapshot at or before
// periodStart to the current unit value. Falls back to the first snapshot
// when the series begins after periodStart.
func periodReturn(series []domain.QuotaSnapshot, periodStart time.Time, currentUnitValue float64) float64 {
	base := series[0].UnitValue
	for _, s := range series {
		if s.Timestamp.After(periodStart) {
			break
		}
		base = s.UnitValue
	}
	if base == 0 {
		return 0
	}
	return (currentUnitValue/base - 1) * 100
}
