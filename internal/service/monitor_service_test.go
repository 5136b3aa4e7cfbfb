package service

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hedgemon/internal/domain"
	"github.com/alanyoungcy/hedgemon/internal/platform/uniswap"
)

func testMonitor() *MonitorService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMonitorService(nil, nil, nil, nil, nil, nil, nil, nil, MonitorConfig{
		PoolID:          "0xpool",
		FeeTier:         500,
		SwapSlippageBps: 50,
	}, logger)
}

// testPosition is a WETH/USDC position at tick 0 with sqrtPrice 2^96, which
// keeps the fixed-point math simple.
func testPosition() uniswap.Position {
	return uniswap.Position{
		ID:        "1",
		Liquidity: "1000000",
		TickLower: -1000,
		TickUpper: 1000,
		Pool: uniswap.PoolState{
			ID:             "0xpool",
			Token0Symbol:   "WETH",
			Token0Decimals: 18,
			Token1Symbol:   "USDC",
			Token1Decimals: 6,
			Tick:           0,
			SqrtPriceX96:   "79228162514264337593543950336", // 2^96
			Token0PriceUSD: 2000,
			Token1PriceUSD: 1,
		},
	}
}

func TestBuildPlanPreservesRangeWidth(t *testing.T) {
	m := testMonitor()
	pos := testPosition()
	pos.Pool.Tick = 505

	plan, err := m.buildPlan(pos, nil)
	require.NoError(t, err)

	// Width 2000 centered near tick 505, snapped to spacing 10.
	assert.Equal(t, 2000, plan.NewTickUpper-plan.NewTickLower)
	assert.Equal(t, 0, plan.NewTickLower%10)
	assert.LessOrEqual(t, plan.NewTickLower, pos.Pool.Tick)
	assert.GreaterOrEqual(t, plan.NewTickUpper, pos.Pool.Tick)
	assert.Greater(t, plan.NewRangeUpper, plan.NewRangeLower)
}

func TestBuildPlanShortTargetsFromSuggestions(t *testing.T) {
	m := testMonitor()

	suggestions := []domain.HedgeSuggestion{
		{
			Token:            "ETH",
			LPBalance:        10,
			ShortBalance:     8,
			Action:           domain.ActionIncreaseShort,
			AdjustmentAmount: 2,
		},
		{
			Token:            "BTC",
			LPBalance:        1,
			ShortBalance:     1.5,
			Action:           domain.ActionDecreaseShort,
			AdjustmentAmount: 0.5,
		},
		{Token: "USDC", Action: domain.ActionNone},
	}

	plan, err := m.buildPlan(testPosition(), suggestions)
	require.NoError(t, err)
	require.Len(t, plan.ShortTargets, 2)

	assert.Equal(t, "ETH", plan.ShortTargets[0].Token)
	assert.Equal(t, 2.0, plan.ShortTargets[0].Adjustment)
	assert.Equal(t, 10.0, plan.ShortTargets[0].TargetSize)

	assert.Equal(t, "BTC", plan.ShortTargets[1].Token)
	assert.Equal(t, -0.5, plan.ShortTargets[1].Adjustment)
}

func TestBuildPlanSwapEqualizesLegs(t *testing.T) {
	m := testMonitor()

	// Narrow range far above the current tick: the position is entirely
	// token0, so the plan must swap roughly half its value into token1.
	pos := testPosition()
	pos.TickLower = 10000
	pos.TickUpper = 12000

	plan, err := m.buildPlan(pos, nil)
	require.NoError(t, err)

	require.True(t, plan.SwapNeeded)
	assert.Equal(t, "WETH", plan.SwapTokenIn)
	assert.Equal(t, "USDC", plan.SwapTokenOut)
	assert.Greater(t, plan.SwapAmountIn, 0.0)
	assert.Greater(t, plan.EstimatedSlippageUSD, 0.0)

	// The planned deposit legs end up near parity.
	value0 := plan.NewToken0Amount * pos.Pool.Token0PriceUSD
	value1 := plan.NewToken1Amount * pos.Pool.Token1PriceUSD
	assert.InDelta(t, value0, value1, (value0+value1)*0.02)
}

func TestBuildPlanGasScalesWithSteps(t *testing.T) {
	m := testMonitor()

	noShorts, err := m.buildPlan(testPosition(), nil)
	require.NoError(t, err)

	withShorts, err := m.buildPlan(testPosition(), []domain.HedgeSuggestion{
		{Token: "ETH", LPBalance: 10, Action: domain.ActionIncreaseShort, AdjustmentAmount: 2},
	})
	require.NoError(t, err)

	assert.Greater(t, withShorts.EstimatedGasNative, noShorts.EstimatedGasNative)
}

func TestShortsOnlyPlanNeedsNoPosition(t *testing.T) {
	// A zero position cannot produce token amounts, so a shorts-only run
	// without an open LP position must not go through buildPlan.
	m := testMonitor()
	_, err := m.buildPlan(uniswap.Position{}, nil)
	require.Error(t, err)

	plan := shortsOnlyPlan([]domain.HedgeSuggestion{
		{Token: "ETH", LPBalance: 10, Action: domain.ActionIncreaseShort, AdjustmentAmount: 2},
		{Token: "USDC", Action: domain.ActionNone},
	})

	require.Len(t, plan.ShortTargets, 1)
	assert.Equal(t, "ETH", plan.ShortTargets[0].Token)
	assert.Equal(t, 2.0, plan.ShortTargets[0].Adjustment)
	assert.False(t, plan.SwapNeeded)
	assert.Zero(t, plan.LiquidityToRemove)
	assert.Greater(t, plan.EstimatedGasNative, 0.0)
}

func TestSafetyPoolIDFollowsManagedPosition(t *testing.T) {
	m := testMonitor()
	m.cfg.PoolID = ""

	// Unpinned config still checks the depth of the pool actually managed.
	assert.Equal(t, "0xabc", m.safetyPoolID(uniswap.Position{Pool: uniswap.PoolState{ID: "0xabc"}}, true))
	assert.Empty(t, m.safetyPoolID(uniswap.Position{}, false))

	m.cfg.PoolID = "0xpinned"
	assert.Equal(t, "0xabc", m.safetyPoolID(uniswap.Position{Pool: uniswap.PoolState{ID: "0xabc"}}, true))
	assert.Equal(t, "0xpinned", m.safetyPoolID(uniswap.Position{}, false))
}

func TestSnapTick(t *testing.T) {
	cases := []struct {
		tick, spacing, want int
	}{
		{105, 10, 100},
		{100, 10, 100},
		{-105, 10, -110},
		{-100, 10, -100},
		{7, 60, 0},
		{-7, 60, -60},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, snapTick(tc.tick, tc.spacing), "tick %d spacing %d", tc.tick, tc.spacing)
	}
}

func TestTickSpacingByFeeTier(t *testing.T) {
	assert.Equal(t, 1, tickSpacing(100))
	assert.Equal(t, 10, tickSpacing(500))
	assert.Equal(t, 60, tickSpacing(3000))
	assert.Equal(t, 200, tickSpacing(10000))
	assert.Equal(t, 60, tickSpacing(0))
}
