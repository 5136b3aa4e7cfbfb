package quota

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

func ts(day, hour int) time.Time {
	return time.Date(2025, 3, day, hour, 0, 0, 0, time.UTC)
}

func TestComputeSeriesEmpty(t *testing.T) {
	e := NewEngine()
	assert.Nil(t, e.ComputeSeries(nil, nil))
}

func TestComputeSeriesFirstDeposit(t *testing.T) {
	e := NewEngine()

	series := e.ComputeSeries(
		[]domain.NetWorthPoint{{Timestamp: ts(1, 12), NetWorth: 10_000}},
		[]domain.CashFlow{{Timestamp: ts(1, 10), Type: domain.CashFlowDeposit, AmountUSD: 10_000}},
	)

	require.Len(t, series, 1)
	// First deposit buys units at the bootstrap value of 1.0.
	assert.InDelta(t, 10_000, series[0].TotalUnits, 1e-9)
	assert.InDelta(t, 1.0, series[0].UnitValue, 1e-9)
}

// A deposit changes TotalUnits, not UnitValue: with the same net worth the
// unit price before and after must match, and units grow by amount/price.
func TestDepositDoesNotMoveUnitValue(t *testing.T) {
	e := NewEngine()

	points := []domain.NetWorthPoint{
		{Timestamp: ts(1, 0), NetWorth: 10_000},
		{Timestamp: ts(2, 0), NetWorth: 11_000}, // +10% market move
		{Timestamp: ts(3, 0), NetWorth: 16_500}, // 11000 + 5500 deposit
	}
	flows := []domain.CashFlow{
		{Timestamp: ts(1, 0), Type: domain.CashFlowDeposit, AmountUSD: 10_000},
		{Timestamp: ts(3, 0), Type: domain.CashFlowDeposit, AmountUSD: 5_500},
	}

	series := e.ComputeSeries(points, flows)
	require.Len(t, series, 3)

	assert.InDelta(t, 1.1, series[1].UnitValue, 1e-9)
	// The deposit prices at the prevailing unit value of 1.1 and issues
	// 5000 units; with the deposit included in the snapshot's net worth the
	// unit value stays at 1.1.
	assert.InDelta(t, 15_000, series[2].TotalUnits, 1e-6)
	assert.InDelta(t, 1.1, series[2].UnitValue, 1e-9)
}

// Depositing A then withdrawing A at the same unit price returns units to
// the pre-deposit level.
func TestDepositWithdrawRoundTrip(t *testing.T) {
	e := NewEngine()

	points := []domain.NetWorthPoint{
		{Timestamp: ts(1, 0), NetWorth: 10_000},
		{Timestamp: ts(2, 0), NetWorth: 13_000}, // 10000 + 3000 deposit, price still 1.0
		{Timestamp: ts(3, 0), NetWorth: 10_000}, // 13000 - 3000 withdrawal
	}
	flows := []domain.CashFlow{
		{Timestamp: ts(1, 0), Type: domain.CashFlowDeposit, AmountUSD: 10_000},
		{Timestamp: ts(2, 0), Type: domain.CashFlowDeposit, AmountUSD: 3_000},
		{Timestamp: ts(3, 0), Type: domain.CashFlowWithdrawal, AmountUSD: 3_000},
	}

	series := e.ComputeSeries(points, flows)
	require.Len(t, series, 3)

	assert.InDelta(t, 10_000, series[2].TotalUnits, 1e-6)
	assert.InDelta(t, 1.0, series[2].UnitValue, 1e-9)
}

// Withdrawing more than the outstanding units redeems everything and leaves
// zero units, never negative.
func TestWithdrawalCappedAtTotalUnits(t *testing.T) {
	e := NewEngine()

	points := []domain.NetWorthPoint{
		{Timestamp: ts(1, 0), NetWorth: 1_000},
		{Timestamp: ts(2, 0), NetWorth: 0},
	}
	flows := []domain.CashFlow{
		{Timestamp: ts(1, 0), Type: domain.CashFlowDeposit, AmountUSD: 1_000},
		{Timestamp: ts(2, 0), Type: domain.CashFlowWithdrawal, AmountUSD: 5_000},
	}

	series := e.ComputeSeries(points, flows)
	require.Len(t, series, 2)
	assert.Zero(t, series[1].TotalUnits)
	assert.InDelta(t, BootstrapUnitValue, series[1].UnitValue, 1e-9)
}

func TestComputeSeriesUnsortedInput(t *testing.T) {
	e := NewEngine()

	series := e.ComputeSeries(
		[]domain.NetWorthPoint{
			{Timestamp: ts(3, 0), NetWorth: 1_100},
			{Timestamp: ts(1, 0), NetWorth: 1_000},
		},
		[]domain.CashFlow{
			{Timestamp: ts(1, 0), Type: domain.CashFlowDeposit, AmountUSD: 1_000},
		},
	)

	require.Len(t, series, 2)
	assert.True(t, series[0].Timestamp.Before(series[1].Timestamp))
	assert.InDelta(t, 1.1, series[1].UnitValue, 1e-9)
}

func TestMetrics(t *testing.T) {
	e := NewEngine()

	points := []domain.NetWorthPoint{
		{Timestamp: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), NetWorth: 10_000},
		{Timestamp: time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), NetWorth: 11_000},
		{Timestamp: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), NetWorth: 12_100},
	}
	flows := []domain.CashFlow{
		{Timestamp: time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), Type: domain.CashFlowDeposit, AmountUSD: 10_000},
	}

	series := e.ComputeSeries(points, flows)
	m := e.Metrics(series, flows)

	assert.InDelta(t, 21.0, m.InceptionReturnPct, 1e-6)
	// MTD: from the 2025-02-28 snapshot (unit value 1.1) to 1.21.
	assert.InDelta(t, 10.0, m.MTDReturnPct, 1e-6)
	// YTD: from the 2024-12-31 snapshot (unit value 1.0) to 1.21.
	assert.InDelta(t, 21.0, m.YTDReturnPct, 1e-6)
	assert.InDelta(t, 10_000, m.NetInvested, 1e-9)
	assert.InDelta(t, 2_100, m.ProfitLoss, 1e-9)
}

func TestMetricsEmptySeries(t *testing.T) {
	e := NewEngine()

	m := e.Metrics(nil, []domain.CashFlow{
		{Type: domain.CashFlowDeposit, AmountUSD: 500},
		{Type: domain.CashFlowWithdrawal, AmountUSD: 200},
	})

	assert.Zero(t, m.InceptionReturnPct)
	assert.InDelta(t, 500.0, m.TotalDeposits, 1e-9)
	assert.InDelta(t, 200.0, m.TotalWithdrawals, 1e-9)
	assert.InDelta(t, 300.0, m.NetInvested, 1e-9)
	assert.InDelta(t, BootstrapUnitValue, m.CurrentUnitValue, 1e-9)
}
