// Package service composes the platform adapters, decision engines, and
// stores into the portfolio, sync, and monitor workflows.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/hedgemon/internal/allocation"
	"github.com/alanyoungcy/hedgemon/internal/delta"
	"github.com/alanyoungcy/hedgemon/internal/domain"
	"github.com/alanyoungcy/hedgemon/internal/platform/hyperliquid"
	"github.com/alanyoungcy/hedgemon/internal/platform/octav"
	"github.com/alanyoungcy/hedgemon/internal/platform/uniswap"
)

// PortfolioService assembles one consistent view of the book: LP exposure
// from the subgraph, short exposure from the hedge venue, per-venue capital
// from the aggregator, and mark prices. The decision engines it wraps are
// pure; all I/O happens in Snapshot.
type PortfolioService struct {
	lp         *uniswap.Client
	hedge      *hyperliquid.Client
	aggregator *octav.Client
	prices     domain.PriceCache
	reconciler *delta.Reconciler
	classifier *allocation.Classifier

	walletAddress string
	hedgeVenue    string
	logger        *slog.Logger
}

// NewPortfolioService creates a PortfolioService with all required
// dependencies.
func NewPortfolioService(
	lp *uniswap.Client,
	hedge *hyperliquid.Client,
	aggregator *octav.Client,
	prices domain.PriceCache,
	reconciler *delta.Reconciler,
	classifier *allocation.Classifier,
	walletAddress string,
	hedgeVenue string,
	logger *slog.Logger,
) *PortfolioService {
	return &PortfolioService{
		lp:            lp,
		hedge:         hedge,
		aggregator:    aggregator,
		prices:        prices,
		reconciler:    reconciler,
		classifier:    classifier,
		walletAddress: walletAddress,
		hedgeVenue:    hedgeVenue,
		logger:        logger,
	}
}

// Snapshot fetches every collaborator once and folds the results into a
// PortfolioSnapshot. The three position sources are required; price lookups
// degrade gracefully since the reconciler reports unknown priority rather
// than failing when a mark is missing.
func (s *PortfolioService) Snapshot(ctx context.Context) (domain.PortfolioSnapshot, error) {
	lpBalances, err := s.lp.FetchBalances(ctx, s.walletAddress)
	if err != nil {
		return domain.PortfolioSnapshot{}, fmt.Errorf("portfolio_service: fetch lp balances: %w", err)
	}

	state, err := s.hedge.FetchAccountState(ctx)
	if err != nil {
		return domain.PortfolioSnapshot{}, fmt.Errorf("portfolio_service: fetch hedge state: %w", err)
	}
	hedgeBalances := state.ToRawBalances(s.hedgeVenue)

	portfolio, err := s.aggregator.FetchPortfolio(ctx, s.walletAddress)
	if err != nil {
		return domain.PortfolioSnapshot{}, fmt.Errorf("portfolio_service: fetch aggregated portfolio: %w", err)
	}

	all := make([]domain.RawBalance, 0, len(lpBalances)+len(hedgeBalances))
	all = append(all, lpBalances...)
	all = append(all, hedgeBalances...)
	lpExp, hedgeExp := delta.Aggregate(all)

	// The aggregator lags the venue API, so the hedge bucket uses the
	// venue-reported account value instead of the aggregator's figure.
	venueBalances := portfolio.VenueBalancesUSD()
	venueBalances[s.hedgeVenue] = state.AccountValueUSD()

	snap := domain.PortfolioSnapshot{
		Timestamp:     time.Now().UTC(),
		LPExposure:    lpExp,
		HedgeExposure: hedgeExp,
		Prices:        s.resolvePrices(ctx, lpExp, hedgeExp, all),
		VenueBalances: venueBalances,
		WalletBalance: portfolio.WalletValueUSD(),
		NetWorth:      portfolio.NetWorthUSD,
	}
	return snap, nil
}

// Reconcile runs hedge reconciliation against a snapshot. Pure given the
// snapshot.
func (s *PortfolioService) Reconcile(snap domain.PortfolioSnapshot) []domain.HedgeSuggestion {
	return s.reconciler.Reconcile(snap.LPExposure, snap.HedgeExposure, snap.Prices, snap.NetWorth)
}

// Allocation classifies the snapshot's capital split. Pure given the
// snapshot.
func (s *PortfolioService) Allocation(snap domain.PortfolioSnapshot) domain.AllocationStatus {
	return s.classifier.Classify(snap.VenueBalances, snap.WalletBalance)
}

// resolvePrices builds the mark price map for every token in either exposure
// map. Venue mids win, adapter-reported prices come second, and the price
// cache backstops tokens neither source covered this cycle.
func (s *PortfolioService) resolvePrices(
	ctx context.Context,
	lp, hedge domain.Exposure,
	balances []domain.RawBalance,
) map[string]float64 {
	tokens := make(map[string]struct{}, len(lp)+len(hedge))
	for t := range lp {
		tokens[t] = struct{}{}
	}
	for t := range hedge {
		tokens[t] = struct{}{}
	}

	prices := make(map[string]float64, len(tokens))

	mids, err := s.hedge.FetchMids(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "portfolio_service: fetch mids failed",
			slog.String("error", err.Error()),
		)
		mids = nil
	}
	for token := range tokens {
		if mid, ok := mids[token]; ok && mid > 0 {
			prices[token] = mid
		}
	}

	for _, b := range balances {
		token := delta.NormalizeSymbol(b.Symbol)
		if _, need := tokens[token]; !need {
			continue
		}
		if prices[token] == 0 && b.PriceUSD > 0 {
			prices[token] = b.PriceUSD
		}
	}

	var missing []string
	for token := range tokens {
		if prices[token] == 0 {
			missing = append(missing, token)
		}
	}
	if len(missing) == 0 {
		return prices
	}

	cached, err := s.prices.GetPrices(ctx, missing)
	if err != nil {
		s.logger.WarnContext(ctx, "portfolio_service: price cache lookup failed",
			slog.Int("tokens", len(missing)),
			slog.String("error", err.Error()),
		)
		return prices
	}
	for token, px := range cached {
		if px > 0 {
			prices[token] = px
		}
	}
	return prices
}
