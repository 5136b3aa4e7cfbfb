package domain

import "time"

// VenueKind categorizes where a balance lives for capital-allocation and
// exposure purposes.
type VenueKind string

const (
	// VenueLP marks balances held inside liquidity-provision positions
	// (Uniswap, Aerodrome, Revert, etc.).
	VenueLP VenueKind = "lp"
	// VenueHedge marks positions held on the derivatives venue used for
	// hedging (Hyperliquid).
	VenueHedge VenueKind = "hedge"
	// VenueWallet marks idle balances sitting in the wallet.
	VenueWallet VenueKind = "wallet"
)

// RawBalance is a single per-venue balance record as produced by the platform
// adapters. Amount is in native token units. For hedge-venue positions the
// amount is the signed position size (negative = short); for LP sources it is
// the token balance held inside the position.
//
// Adapters populate this record at the collaborator boundary; everything
// downstream works on this one representation.
type RawBalance struct {
	Source   string    // venue tag, e.g. "uniswap_v3", "hyperliquid"
	Kind     VenueKind
	Symbol   string    // venue-specific symbol, e.g. "WETH"
	Amount   float64
	PriceUSD float64   // latest mark price, 0 if unknown
}

// Exposure maps a canonical token symbol to an aggregated amount in native
// units.
type Exposure map[string]float64

// TokenExposure is the per-token view after aggregation: how much of the
// token is held across LP venues versus shorted on the hedge venue.
// Recomputed fresh on every reconciliation cycle, never persisted.
type TokenExposure struct {
	Token       string
	LPAmount    float64
	HedgeAmount float64 // absolute short size
	PriceUSD    float64 // 0 if unknown
}

// PortfolioSnapshot bundles everything one sync cycle observed: exposures for
// reconciliation, per-venue USD balances for allocation, and the total net
// worth for unit accounting.
type PortfolioSnapshot struct {
	Timestamp     time.Time
	LPExposure    Exposure
	HedgeExposure Exposure
	Prices        map[string]float64 // canonical symbol → mark price USD
	VenueBalances map[string]float64 // venue name → USD value
	WalletBalance float64            // idle wallet USD value
	NetWorth      float64
}
