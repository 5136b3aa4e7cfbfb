package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

func newTestClassifier() *Classifier {
	return NewClassifier(Config{
		MinIdeal:   70,
		Target:     80,
		MaxIdeal:   90,
		HedgeVenue: "hyperliquid",
	})
}

func TestClassifyIdeal(t *testing.T) {
	c := newTestClassifier()

	status := c.Classify(map[string]float64{
		"uniswap_v3":  8000,
		"hyperliquid": 2000,
	}, 0)

	assert.Equal(t, domain.RiskIdeal, status.RiskLevel)
	assert.False(t, status.NeedsRebalancing)
	assert.Zero(t, status.SuggestedTransferUSD)
	assert.InDelta(t, 80.0, status.LPPercentage, 1e-9)
	assert.InDelta(t, 20.0, status.HedgePercentage, 1e-9)
}

func TestClassifyHighLiquidationRisk(t *testing.T) {
	c := newTestClassifier()

	status := c.Classify(map[string]float64{
		"uniswap_v3":  9500,
		"hyperliquid": 500,
	}, 0)

	assert.Equal(t, domain.RiskHighLiquidation, status.RiskLevel)
	assert.True(t, status.NeedsRebalancing)
	// 95% - 90% = 5% of 10k.
	assert.InDelta(t, 500.0, status.SuggestedTransferUSD, 1e-9)
}

func TestClassifyMediumProfitabilityRisk(t *testing.T) {
	c := newTestClassifier()

	status := c.Classify(map[string]float64{
		"uniswap_v3":  6000,
		"hyperliquid": 4000,
	}, 0)

	assert.Equal(t, domain.RiskMediumProfitability, status.RiskLevel)
	assert.True(t, status.NeedsRebalancing)
	// 70% - 60% = 10% of 10k.
	assert.InDelta(t, 1000.0, status.SuggestedTransferUSD, 1e-9)
}

func TestClassifyPercentagesSumTo100(t *testing.T) {
	c := newTestClassifier()

	status := c.Classify(map[string]float64{
		"uniswap_v3":       5123.45,
		"revert_finance":   1877.12,
		"hyperliquid perps": 2144.01,
	}, 987.65)

	sum := status.LPPercentage + status.HedgePercentage + status.WalletPercentage
	assert.InDelta(t, 100.0, sum, 1e-6)
}

// Pushing the LP share past the max band must always land in the
// liquidation zone, never the profitability zone.
func TestClassifyMonotonicPastMax(t *testing.T) {
	c := newTestClassifier()

	for _, lpShare := range []float64{90.01, 92, 95, 99, 100} {
		status := c.Classify(map[string]float64{
			"uniswap_v3":  lpShare,
			"hyperliquid": 100 - lpShare,
		}, 0)
		assert.Equal(t, domain.RiskHighLiquidation, status.RiskLevel,
			"lp share %.2f%%", lpShare)
	}
}

func TestClassifyZeroCapital(t *testing.T) {
	c := newTestClassifier()

	status := c.Classify(map[string]float64{}, 0)

	assert.Equal(t, domain.RiskIdeal, status.RiskLevel)
	assert.False(t, status.NeedsRebalancing)
	assert.Zero(t, status.TotalCapital)
}

func TestClassifyVenueBucketing(t *testing.T) {
	c := newTestClassifier()

	status := c.Classify(map[string]float64{
		"Hyperliquid Perps": 2000,
		"uniswap_v3":        7000,
	}, 1000)

	require.Len(t, status.Venues, 3)
	// Sorted descending by USD value.
	assert.Equal(t, "uniswap_v3", status.Venues[0].Name)
	assert.Equal(t, domain.VenueLP, status.Venues[0].Kind)
	assert.Equal(t, domain.VenueHedge, status.Venues[1].Kind)
	assert.Equal(t, "wallet", status.Venues[2].Name)
	assert.Equal(t, domain.VenueWallet, status.Venues[2].Kind)
}
