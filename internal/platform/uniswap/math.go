package uniswap

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
)

// q96 is 2^96, the fixed-point scale of sqrtPriceX96.
var q96 = new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 96))

// tickBase is the price ratio of one tick.
const tickBase = 1.0001

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// sqrtPriceAtTick returns sqrt(1.0001^tick) in raw (unadjusted) terms.
func sqrtPriceAtTick(tick int) float64 {
	return math.Pow(tickBase, float64(tick)/2)
}

// TickToPrice converts a tick to the human price of token0 in token1 units,
// adjusted for token decimals.
func TickToPrice(tick, token0Decimals, token1Decimals int) float64 {
	raw := math.Pow(tickBase, float64(tick))
	return raw * math.Pow10(token0Decimals-token1Decimals)
}

// TokenAmounts computes the position's current token0 and token1 amounts in
// human units from its liquidity, tick range, and the pool's current sqrt
// price. Standard concentrated-liquidity amounts: below range the position is
// all token0, above range all token1, in range a mix.
func (p Position) TokenAmounts() (amount0, amount1 float64, err error) {
	liq, ok := new(big.Float).SetString(p.Liquidity)
	if !ok {
		return 0, 0, fmt.Errorf("invalid liquidity %q", p.Liquidity)
	}
	l, _ := liq.Float64()

	sqrtPX96, ok := new(big.Float).SetString(p.Pool.SqrtPriceX96)
	if !ok {
		return 0, 0, fmt.Errorf("invalid sqrtPrice %q", p.Pool.SqrtPriceX96)
	}
	sqrtP, _ := new(big.Float).Quo(sqrtPX96, q96).Float64()

	sqrtA := sqrtPriceAtTick(p.TickLower)
	sqrtB := sqrtPriceAtTick(p.TickUpper)
	if sqrtA > sqrtB {
		sqrtA, sqrtB = sqrtB, sqrtA
	}

	var raw0, raw1 float64
	switch {
	case sqrtP <= sqrtA:
		raw0 = l * (sqrtB - sqrtA) / (sqrtA * sqrtB)
	case sqrtP >= sqrtB:
		raw1 = l * (sqrtB - sqrtA)
	default:
		raw0 = l * (sqrtB - sqrtP) / (sqrtP * sqrtB)
		raw1 = l * (sqrtP - sqrtA)
	}

	amount0 = raw0 / math.Pow10(p.Pool.Token0Decimals)
	amount1 = raw1 / math.Pow10(p.Pool.Token1Decimals)
	return amount0, amount1, nil
}

// LiquidityAmount returns the position's raw liquidity as a float. The loss
// of integer precision is acceptable for planning; exact removal amounts use
// the on-chain value at execution time.
func (p Position) LiquidityAmount() float64 {
	return parseFloat(p.Liquidity)
}

// RangePrices returns the position's lower and upper bound as human prices of
// token0 in token1 units.
func (p Position) RangePrices() (lower, upper float64) {
	lower = TickToPrice(p.TickLower, p.Pool.Token0Decimals, p.Pool.Token1Decimals)
	upper = TickToPrice(p.TickUpper, p.Pool.Token0Decimals, p.Pool.Token1Decimals)
	if lower > upper {
		lower, upper = upper, lower
	}
	return lower, upper
}

// CurrentPrice returns the pool's current human price of token0 in token1
// units derived from sqrtPriceX96.
func (p Position) CurrentPrice() float64 {
	sqrtPX96, ok := new(big.Float).SetString(p.Pool.SqrtPriceX96)
	if !ok {
		return 0
	}
	sqrtP, _ := new(big.Float).Quo(sqrtPX96, q96).Float64()
	return sqrtP * sqrtP * math.Pow10(p.Pool.Token0Decimals-p.Pool.Token1Decimals)
}
