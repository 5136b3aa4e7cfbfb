package domain

// RiskLevel classifies the capital split between LP venues and the hedge
// venue.
type RiskLevel string

const (
	// RiskIdeal: LP percentage sits inside the configured ideal band.
	RiskIdeal RiskLevel = "ideal"
	// RiskHighLiquidation: too much capital in LPs, operating margin on the
	// hedge venue is thin and shorts can get liquidated on a fast move up.
	RiskHighLiquidation RiskLevel = "high_liquidation_risk"
	// RiskMediumProfitability: too little capital in LPs, the book is
	// underutilized.
	RiskMediumProfitability RiskLevel = "medium_profitability_risk"
)

// VenueBalance is one venue's share of total capital.
type VenueBalance struct {
	Name       string
	Kind       VenueKind
	ValueUSD   float64
	Percentage float64
}

// AllocationStatus is the snapshot-scoped verdict of the capital allocation
// classifier. LPPercentage + HedgePercentage + WalletPercentage sums to 100
// within floating tolerance whenever TotalCapital > 0.
type AllocationStatus struct {
	TotalCapital     float64
	LPTotal          float64
	LPPercentage     float64
	HedgeTotal       float64
	HedgePercentage  float64
	WalletTotal      float64
	WalletPercentage float64

	// Configured ideal band for the LP share, in percent of total capital.
	MinIdeal float64
	Target   float64
	MaxIdeal float64

	RiskLevel        RiskLevel
	NeedsRebalancing bool
	Alert            string
	// SuggestedTransferUSD is the advisory amount to move between the LP
	// bucket and the hedge venue to re-enter the ideal band. 0 when the
	// allocation is already ideal. Direction follows RiskLevel: out of LPs
	// for high liquidation risk, into LPs for medium profitability risk.
	SuggestedTransferUSD float64

	Venues []VenueBalance
}
