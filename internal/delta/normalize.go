// Package delta implements the delta-neutral decision core: symbol
// normalization, exposure aggregation, and the hedge reconciliation engine
// that compares LP exposure against hedge-venue shorts.
package delta

import (
	"strings"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

// wrappedSymbols maps wrapped-asset symbols to their canonical underlying.
// Unknown symbols pass through unchanged.
var wrappedSymbols = map[string]string{
	"WETH":   "ETH",
	"WBTC":   "BTC",
	"CBBTC":  "BTC",
	"WMATIC": "MATIC",
	"WAVAX":  "AVAX",
	"WSOL":   "SOL",
}

// NormalizeSymbol maps a venue-specific token symbol to its canonical
// underlying symbol. Comparison is case-insensitive; the result is always
// upper case.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if canonical, ok := wrappedSymbols[s]; ok {
		return canonical
	}
	return s
}

// Aggregate folds raw per-venue balance records into two exposure maps keyed
// by canonical symbol: LP holdings and hedge-venue short sizes. Hedge records
// contribute only when their signed size is negative (short); the stored
// value is the absolute size. Wallet records are ignored here; they matter
// for allocation, not for delta. Deterministic and side-effect free; empty
// input yields empty maps.
func Aggregate(balances []domain.RawBalance) (lp, hedge domain.Exposure) {
	lp = domain.Exposure{}
	hedge = domain.Exposure{}

	for _, b := range balances {
		symbol := NormalizeSymbol(b.Symbol)
		if symbol == "" {
			continue
		}
		switch b.Kind {
		case domain.VenueLP:
			if b.Amount > 0 {
				lp[symbol] += b.Amount
			}
		case domain.VenueHedge:
			if b.Amount < 0 {
				hedge[symbol] += -b.Amount
			}
		}
	}

	return lp, hedge
}
