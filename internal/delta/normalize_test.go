package delta

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"WETH", "ETH"},
		{"weth", "ETH"},
		{"WBTC", "BTC"},
		{"cbBTC", "BTC"},
		{"ETH", "ETH"},
		{"PEPE", "PEPE"},
		{" wavax ", "AVAX"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeSymbol(tt.in), "normalize %q", tt.in)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	lp, hedge := Aggregate(nil)
	assert.Empty(t, lp)
	assert.Empty(t, hedge)
}

func TestAggregateSumsAfterNormalization(t *testing.T) {
	lp, hedge := Aggregate([]domain.RawBalance{
		{Source: "uniswap_v3", Kind: domain.VenueLP, Symbol: "WETH", Amount: 1.0},
		{Source: "aerodrome", Kind: domain.VenueLP, Symbol: "ETH", Amount: 0.5},
		{Source: "uniswap_v3", Kind: domain.VenueLP, Symbol: "WBTC", Amount: 0.02},
		{Source: "hyperliquid", Kind: domain.VenueHedge, Symbol: "ETH", Amount: -1.4},
		{Source: "hyperliquid", Kind: domain.VenueHedge, Symbol: "BTC", Amount: -0.02},
	})

	assert.InDelta(t, 1.5, lp["ETH"], 1e-12)
	assert.InDelta(t, 0.02, lp["BTC"], 1e-12)
	assert.InDelta(t, 1.4, hedge["ETH"], 1e-12)
	assert.InDelta(t, 0.02, hedge["BTC"], 1e-12)
}

// Long hedge-venue positions are not hedges; they must not show up in the
// hedge exposure.
func TestAggregateIgnoresLongsAndWallet(t *testing.T) {
	lp, hedge := Aggregate([]domain.RawBalance{
		{Source: "hyperliquid", Kind: domain.VenueHedge, Symbol: "ETH", Amount: 2.0},
		{Source: "wallet", Kind: domain.VenueWallet, Symbol: "USDC", Amount: 500},
	})

	assert.Empty(t, lp)
	assert.Empty(t, hedge)
}
