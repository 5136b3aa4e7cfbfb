package uniswap

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sqrtPriceX96 for a raw price ratio, for building test positions.
func sqrtPriceX96For(rawPrice float64) string {
	sqrtP := math.Sqrt(rawPrice)
	f := new(big.Float).Mul(big.NewFloat(sqrtP), q96)
	i, _ := f.Int(nil)
	return i.String()
}

func TestTickToPrice(t *testing.T) {
	// Tick 0 with equal decimals is price 1.
	assert.InDelta(t, 1.0, TickToPrice(0, 18, 18), 1e-12)

	// One tick moves the price by a factor of 1.0001.
	assert.InDelta(t, 1.0001, TickToPrice(1, 18, 18), 1e-9)

	// Decimal adjustment: WETH(18)/USDC(6) at tick 0 gives 1e12.
	assert.InDelta(t, 1e12, TickToPrice(0, 18, 6), 1e3)
}

func TestTokenAmountsInRange(t *testing.T) {
	// Price exactly mid-range on an 18/18 pool: both tokens present.
	p := Position{
		Liquidity: "1000000000000000000", // 1e18
		TickLower: -1000,
		TickUpper: 1000,
		Pool: PoolState{
			Token0Decimals: 18,
			Token1Decimals: 18,
			SqrtPriceX96:   sqrtPriceX96For(1.0),
		},
	}

	a0, a1, err := p.TokenAmounts()
	require.NoError(t, err)
	assert.Greater(t, a0, 0.0)
	assert.Greater(t, a1, 0.0)
	// Symmetric range around the current price holds near-equal raw value.
	assert.InDelta(t, a0, a1, a0*0.01)
}

func TestTokenAmountsBelowRange(t *testing.T) {
	p := Position{
		Liquidity: "1000000000000000000",
		TickLower: 1000,
		TickUpper: 2000,
		Pool: PoolState{
			Token0Decimals: 18,
			Token1Decimals: 18,
			SqrtPriceX96:   sqrtPriceX96For(1.0), // tick 0, below the range
		},
	}

	a0, a1, err := p.TokenAmounts()
	require.NoError(t, err)
	assert.Greater(t, a0, 0.0)
	assert.Zero(t, a1)
}

func TestTokenAmountsAboveRange(t *testing.T) {
	p := Position{
		Liquidity: "1000000000000000000",
		TickLower: -2000,
		TickUpper: -1000,
		Pool: PoolState{
			Token0Decimals: 18,
			Token1Decimals: 18,
			SqrtPriceX96:   sqrtPriceX96For(1.0), // tick 0, above the range
		},
	}

	a0, a1, err := p.TokenAmounts()
	require.NoError(t, err)
	assert.Zero(t, a0)
	assert.Greater(t, a1, 0.0)
}

func TestTokenAmountsInvalidLiquidity(t *testing.T) {
	p := Position{Liquidity: "not-a-number", Pool: PoolState{SqrtPriceX96: sqrtPriceX96For(1.0)}}
	_, _, err := p.TokenAmounts()
	require.Error(t, err)
}

func TestRangePrices(t *testing.T) {
	p := Position{
		TickLower: -1000,
		TickUpper: 1000,
		Pool:      PoolState{Token0Decimals: 18, Token1Decimals: 18},
	}

	lower, upper := p.RangePrices()
	assert.Less(t, lower, 1.0)
	assert.Greater(t, upper, 1.0)
	assert.InDelta(t, math.Pow(1.0001, -1000), lower, 1e-9)
	assert.InDelta(t, math.Pow(1.0001, 1000), upper, 1e-6)
}

func TestCurrentPriceRoundTrip(t *testing.T) {
	p := Position{
		Pool: PoolState{
			Token0Decimals: 18,
			Token1Decimals: 18,
			SqrtPriceX96:   sqrtPriceX96For(1234.5),
		},
	}

	assert.InDelta(t, 1234.5, p.CurrentPrice(), 0.01)
}
