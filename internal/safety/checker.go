// Package safety runs the pre-execution check battery. Every hard stop in
// front of automatic execution funnels through RunAllChecks; everything else
// in the system is advisory.
package safety

import (
	"fmt"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

// Config holds the safety thresholds.
type Config struct {
	// GasReserveMin / GasReserveTarget are native gas-asset balances (ETH).
	GasReserveMin    float64
	GasReserveTarget float64
	// HedgeCashMinPct / HedgeCashTargetPct express the hedge-venue free
	// collateral floor as a fraction of AUM (0.02 = 2%).
	HedgeCashMinPct    float64
	HedgeCashTargetPct float64
	MaxSlippageBps     int
	GasCapNative       float64
	MinPoolLiquidityUSD float64
}

// Checker evaluates safety checks. All checks are pure given their inputs;
// no check performs I/O.
type Checker struct {
	cfg Config
}

// NewChecker creates a Checker with the given thresholds.
func NewChecker(cfg Config) *Checker {
	return &Checker{cfg: cfg}
}

// CheckGasReserve verifies the native gas balance against minimum and target.
// Below minimum fails; between minimum and target passes with a warning.
func (c *Checker) CheckGasReserve(balance float64) domain.SafetyCheckResult {
	switch {
	case balance < c.cfg.GasReserveMin:
		return result(false, "gas_reserve", domain.SeverityError,
			"gas balance %.4f below minimum %.4f", balance, c.cfg.GasReserveMin)
	case balance < c.cfg.GasReserveTarget:
		return result(true, "gas_reserve", domain.SeverityWarning,
			"gas balance %.4f below target %.4f but above minimum", balance, c.cfg.GasReserveTarget)
	default:
		return result(true, "gas_reserve", domain.SeverityInfo,
			"gas balance %.4f ok (target %.4f)", balance, c.cfg.GasReserveTarget)
	}
}

// CheckHedgeCashReserve verifies free collateral on the hedge venue against
// the configured percentage-of-AUM floor and target.
func (c *Checker) CheckHedgeCashReserve(balance, aum float64) domain.SafetyCheckResult {
	minUSD := aum * c.cfg.HedgeCashMinPct
	targetUSD := aum * c.cfg.HedgeCashTargetPct

	switch {
	case balance < minUSD:
		return result(false, "hedge_cash_reserve", domain.SeverityError,
			"hedge venue cash $%.2f below minimum $%.2f (%.2f%% of AUM)",
			balance, minUSD, c.cfg.HedgeCashMinPct*100)
	case balance < targetUSD:
		return result(true, "hedge_cash_reserve", domain.SeverityWarning,
			"hedge venue cash $%.2f below target $%.2f but above minimum", balance, targetUSD)
	default:
		return result(true, "hedge_cash_reserve", domain.SeverityInfo,
			"hedge venue cash $%.2f ok (target $%.2f)", balance, targetUSD)
	}
}

// CheckSlippage verifies the estimated slippage against the cap.
func (c *Checker) CheckSlippage(estimatedBps int) domain.SafetyCheckResult {
	if estimatedBps > c.cfg.MaxSlippageBps {
		return result(false, "slippage", domain.SeverityError,
			"estimated slippage %d bps exceeds cap %d bps", estimatedBps, c.cfg.MaxSlippageBps)
	}
	return result(true, "slippage", domain.SeverityInfo,
		"estimated slippage %d bps within cap %d bps", estimatedBps, c.cfg.MaxSlippageBps)
}

// CheckGasCost verifies the estimated gas cost against the native-unit cap.
func (c *Checker) CheckGasCost(estimatedNative float64) domain.SafetyCheckResult {
	if estimatedNative > c.cfg.GasCapNative {
		return result(false, "gas_cost", domain.SeverityError,
			"estimated gas %.4f exceeds cap %.4f", estimatedNative, c.cfg.GasCapNative)
	}
	return result(true, "gas_cost", domain.SeverityInfo,
		"estimated gas %.4f within cap %.4f", estimatedNative, c.cfg.GasCapNative)
}

// CheckVenueHealth reports one result per venue API.
func (c *Checker) CheckVenueHealth(lpHealthy, hedgeHealthy bool) []domain.SafetyCheckResult {
	results := make([]domain.SafetyCheckResult, 0, 2)

	if lpHealthy {
		results = append(results, result(true, "lp_venue_health", domain.SeverityInfo, "LP venue API healthy"))
	} else {
		results = append(results, result(false, "lp_venue_health", domain.SeverityError, "LP venue API not responding"))
	}

	if hedgeHealthy {
		results = append(results, result(true, "hedge_venue_health", domain.SeverityInfo, "hedge venue API healthy"))
	} else {
		results = append(results, result(false, "hedge_venue_health", domain.SeverityError, "hedge venue API not responding"))
	}

	return results
}

// CheckPoolLiquidity verifies the pool is deep enough to absorb the recenter.
func (c *Checker) CheckPoolLiquidity(liquidityUSD float64) domain.SafetyCheckResult {
	if liquidityUSD < c.cfg.MinPoolLiquidityUSD {
		return result(false, "pool_liquidity", domain.SeverityError,
			"pool liquidity $%.0f below minimum $%.0f", liquidityUSD, c.cfg.MinPoolLiquidityUSD)
	}
	return result(true, "pool_liquidity", domain.SeverityInfo,
		"pool liquidity $%.0f sufficient", liquidityUSD)
}

// RunAllChecks executes the full battery and aggregates. AutoModeAllowed is
// the AND of every check's pass flag.
func (c *Checker) RunAllChecks(in domain.SafetyInput) domain.SafetyReport {
	results := []domain.SafetyCheckResult{
		c.CheckGasReserve(in.GasBalance),
		c.CheckHedgeCashReserve(in.HedgeCashBalance, in.AUM),
		c.CheckSlippage(in.EstimatedSlippageBps),
		c.CheckGasCost(in.EstimatedGasNative),
	}
	results = append(results, c.CheckVenueHealth(in.LPVenueHealthy, in.HedgeVenueHealthy)...)
	results = append(results, c.CheckPoolLiquidity(in.PoolLiquidityUSD))

	report := domain.SafetyReport{Results: results, AllPassed: true}
	for _, r := range results {
		if !r.Passed {
			report.AllPassed = false
			report.Errors = append(report.Errors, r)
		} else if r.Severity == domain.SeverityWarning {
			report.Warnings = append(report.Warnings, r)
		}
	}
	report.AutoModeAllowed = report.AllPassed

	return report
}

func result(passed bool, name string, sev domain.Severity, format string, args ...any) domain.SafetyCheckResult {
	return domain.SafetyCheckResult{
		Passed:    passed,
		CheckName: name,
		Message:   fmt.Sprintf(format, args...),
		Severity:  sev,
	}
}
