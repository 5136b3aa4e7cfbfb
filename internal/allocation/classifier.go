// Package allocation classifies how total capital is split between
// LP venues, the hedge venue, and the idle wallet, and proposes advisory
// transfers back into the ideal band.
package allocation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

// Config is the ideal-band configuration for the LP share of total capital,
// in percent. Validated by config.Validate before reaching the classifier:
// 0 <= MinIdeal <= Target <= MaxIdeal <= 100.
type Config struct {
	MinIdeal float64
	Target   float64
	MaxIdeal float64
	// HedgeVenue is the venue name that counts as the hedging bucket.
	// Matching is case-insensitive on substring, so "hyperliquid" matches
	// "Hyperliquid Perps".
	HedgeVenue string
}

// Classifier partitions venue balances and assigns a risk zone. Pure
// function of the snapshot; holds no state between calls and never mutates
// venue balances. All rebalancing output is advisory.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a Classifier with the given band config.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify buckets each venue as hedge or LP, computes the capital split,
// and derives the risk zone plus a suggested transfer to re-enter the band.
func (c *Classifier) Classify(venueBalances map[string]float64, walletBalance float64) domain.AllocationStatus {
	status := domain.AllocationStatus{
		MinIdeal: c.cfg.MinIdeal,
		Target:   c.cfg.Target,
		MaxIdeal: c.cfg.MaxIdeal,
	}

	hedgeNeedle := strings.ToLower(c.cfg.HedgeVenue)

	for name, usd := range venueBalances {
		vb := domain.VenueBalance{Name: name, ValueUSD: usd}
		if hedgeNeedle != "" && strings.Contains(strings.ToLower(name), hedgeNeedle) {
			vb.Kind = domain.VenueHedge
			status.HedgeTotal += usd
		} else {
			vb.Kind = domain.VenueLP
			status.LPTotal += usd
		}
		status.Venues = append(status.Venues, vb)
	}

	status.WalletTotal = walletBalance
	if walletBalance > 0 {
		status.Venues = append(status.Venues, domain.VenueBalance{
			Name:     "wallet",
			Kind:     domain.VenueWallet,
			ValueUSD: walletBalance,
		})
	}

	status.TotalCapital = status.LPTotal + status.HedgeTotal + status.WalletTotal
	if status.TotalCapital == 0 {
		status.RiskLevel = domain.RiskIdeal
		status.Alert = "no capital to analyze"
		return status
	}

	status.LPPercentage = status.LPTotal / status.TotalCapital * 100
	status.HedgePercentage = status.HedgeTotal / status.TotalCapital * 100
	status.WalletPercentage = status.WalletTotal / status.TotalCapital * 100

	for i := range status.Venues {
		status.Venues[i].Percentage = status.Venues[i].ValueUSD / status.TotalCapital * 100
	}
	sort.SliceStable(status.Venues, func(i, j int) bool {
		return status.Venues[i].ValueUSD > status.Venues[j].ValueUSD
	})

	switch {
	case status.LPPercentage > c.cfg.MaxIdeal:
		status.RiskLevel = domain.RiskHighLiquidation
		status.NeedsRebalancing = true
		status.SuggestedTransferUSD = (status.LPPercentage - c.cfg.MaxIdeal) / 100 * status.TotalCapital
		status.Alert = fmt.Sprintf(
			"high liquidation risk: %.1f%% in LPs (max %.0f%%), hedge margin thin; move $%.2f from LPs to %s",
			status.LPPercentage, c.cfg.MaxIdeal, status.SuggestedTransferUSD, c.cfg.HedgeVenue,
		)
	case status.LPPercentage < c.cfg.MinIdeal:
		status.RiskLevel = domain.RiskMediumProfitability
		status.NeedsRebalancing = true
		status.SuggestedTransferUSD = (c.cfg.MinIdeal - status.LPPercentage) / 100 * status.TotalCapital
		status.Alert = fmt.Sprintf(
			"medium profitability risk: %.1f%% in LPs (min %.0f%%), capital underutilized; move $%.2f from %s to LPs",
			status.LPPercentage, c.cfg.MinIdeal, status.SuggestedTransferUSD, c.cfg.HedgeVenue,
		)
	default:
		status.RiskLevel = domain.RiskIdeal
		status.Alert = fmt.Sprintf(
			"allocation inside ideal band (%.0f-%.0f%% in LPs)",
			c.cfg.MinIdeal, c.cfg.MaxIdeal,
		)
	}

	return status
}
