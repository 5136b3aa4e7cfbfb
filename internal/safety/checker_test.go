package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

func newTestChecker() *Checker {
	return NewChecker(Config{
		GasReserveMin:       0.01,
		GasReserveTarget:    0.05,
		HedgeCashMinPct:     0.02,
		HedgeCashTargetPct:  0.05,
		MaxSlippageBps:      50,
		GasCapNative:        0.02,
		MinPoolLiquidityUSD: 100_000,
	})
}

func healthyInput() domain.SafetyInput {
	return domain.SafetyInput{
		GasBalance:           0.1,
		HedgeCashBalance:     1_000,
		AUM:                  10_000,
		EstimatedSlippageBps: 10,
		EstimatedGasNative:   0.005,
		LPVenueHealthy:       true,
		HedgeVenueHealthy:    true,
		PoolLiquidityUSD:     500_000,
	}
}

func TestRunAllChecksAllPass(t *testing.T) {
	c := newTestChecker()

	report := c.RunAllChecks(healthyInput())

	assert.True(t, report.AllPassed)
	assert.True(t, report.AutoModeAllowed)
	assert.Empty(t, report.Errors)
	require.Len(t, report.Results, 7)
}

// auto_mode_allowed is false exactly when at least one check failed.
func TestAutoModeDeniedOnAnyFailure(t *testing.T) {
	c := newTestChecker()

	mutations := map[string]func(*domain.SafetyInput){
		"gas reserve":    func(in *domain.SafetyInput) { in.GasBalance = 0.001 },
		"hedge cash":     func(in *domain.SafetyInput) { in.HedgeCashBalance = 100 },
		"slippage":       func(in *domain.SafetyInput) { in.EstimatedSlippageBps = 80 },
		"gas cost":       func(in *domain.SafetyInput) { in.EstimatedGasNative = 0.05 },
		"lp health":      func(in *domain.SafetyInput) { in.LPVenueHealthy = false },
		"hedge health":   func(in *domain.SafetyInput) { in.HedgeVenueHealthy = false },
		"pool liquidity": func(in *domain.SafetyInput) { in.PoolLiquidityUSD = 50_000 },
	}

	for name, mutate := range mutations {
		in := healthyInput()
		mutate(&in)
		report := c.RunAllChecks(in)
		assert.False(t, report.AutoModeAllowed, "case %s", name)
		assert.NotEmpty(t, report.Errors, "case %s", name)
	}
}

func TestGasReserveWarningBand(t *testing.T) {
	c := newTestChecker()

	r := c.CheckGasReserve(0.03) // above min, below target
	assert.True(t, r.Passed)
	assert.Equal(t, domain.SeverityWarning, r.Severity)
}

func TestHedgeCashReservePctOfAUM(t *testing.T) {
	c := newTestChecker()

	// 2% of 10k = 200 minimum.
	r := c.CheckHedgeCashReserve(150, 10_000)
	assert.False(t, r.Passed)

	r = c.CheckHedgeCashReserve(300, 10_000) // above min, below 500 target
	assert.True(t, r.Passed)
	assert.Equal(t, domain.SeverityWarning, r.Severity)

	r = c.CheckHedgeCashReserve(600, 10_000)
	assert.True(t, r.Passed)
	assert.Equal(t, domain.SeverityInfo, r.Severity)
}

func TestWarningsDoNotBlockAuto(t *testing.T) {
	c := newTestChecker()

	in := healthyInput()
	in.GasBalance = 0.03 // warning band

	report := c.RunAllChecks(in)
	assert.True(t, report.AutoModeAllowed)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "gas_reserve", report.Warnings[0].CheckName)
}
