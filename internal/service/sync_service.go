package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	s3blob "github.com/alanyoungcy/hedgemon/internal/blob/s3"
	"github.com/alanyoungcy/hedgemon/internal/domain"
	"github.com/alanyoungcy/hedgemon/internal/notify"
	"github.com/alanyoungcy/hedgemon/internal/quota"
)

// archiveEvery limits how often the retention sweep runs; snapshots age out
// slowly, so once a day is plenty.
const archiveEvery = 24 * time.Hour

// SyncService runs the periodic portfolio sync: observe net worth, persist
// the point, refresh the price cache, and age out history past the retention
// window. It also owns cash-flow recording and the unit accounting reads,
// since both operate on the same event log.
type SyncService struct {
	portfolio *PortfolioService
	snapshots domain.SnapshotStore
	flows     domain.CashFlowStore
	prices    domain.PriceCache
	engine    *quota.Engine
	archiver  *s3blob.Archiver
	notifier  *notify.Notifier

	interval  time.Duration
	retention time.Duration // 0 disables archival
	logger    *slog.Logger

	mu          sync.Mutex
	lastArchive time.Time
	lastSync    time.Time
}

// NewSyncService creates a SyncService. retention is how long history stays
// in the primary store before it is archived; zero keeps everything.
func NewSyncService(
	portfolio *PortfolioService,
	snapshots domain.SnapshotStore,
	flows domain.CashFlowStore,
	prices domain.PriceCache,
	engine *quota.Engine,
	archiver *s3blob.Archiver,
	notifier *notify.Notifier,
	interval time.Duration,
	retention time.Duration,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		portfolio: portfolio,
		snapshots: snapshots,
		flows:     flows,
		prices:    prices,
		engine:    engine,
		archiver:  archiver,
		notifier:  notifier,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Run executes sync cycles until the context is cancelled. Individual cycle
// failures are reported and the loop keeps going.
func (s *SyncService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "sync_service: starting",
		slog.Duration("interval", s.interval),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.SyncOnce(ctx); err != nil {
			s.logger.ErrorContext(ctx, "sync_service: cycle failed",
				slog.String("error", err.Error()),
			)
			if notifyErr := s.notifier.Error(ctx, "sync", err); notifyErr != nil {
				s.logger.WarnContext(ctx, "sync_service: error notification failed",
					slog.String("error", notifyErr.Error()),
				)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SyncOnce runs a single sync cycle: snapshot the portfolio, append the net
// worth point, and push observed marks into the price cache. The price cache
// writes are best effort; the persisted point is not.
func (s *SyncService) SyncOnce(ctx context.Context) error {
	snap, err := s.portfolio.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("sync_service: snapshot: %w", err)
	}

	point := domain.NetWorthPoint{Timestamp: snap.Timestamp, NetWorth: snap.NetWorth}
	if err := s.snapshots.Append(ctx, point); err != nil {
		return fmt.Errorf("sync_service: append snapshot: %w", err)
	}

	for token, px := range snap.Prices {
		if err := s.prices.SetPrice(ctx, token, px, snap.Timestamp); err != nil {
			s.logger.WarnContext(ctx, "sync_service: price cache write failed",
				slog.String("token", token),
				slog.String("error", err.Error()),
			)
		}
	}

	s.mu.Lock()
	s.lastSync = snap.Timestamp
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "sync_service: cycle complete",
		slog.Float64("net_worth", snap.NetWorth),
		slog.Int("tokens", len(snap.Prices)),
	)

	s.maybeArchive(ctx)
	return nil
}

// LastSync returns the timestamp of the most recent successful cycle, zero
// if none completed yet.
func (s *SyncService) LastSync() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync
}

// maybeArchive sweeps history past the retention window into object storage
// at most once per archiveEvery. Rows are deleted from the primary store
// only after the upload succeeded.
func (s *SyncService) maybeArchive(ctx context.Context) {
	if s.retention <= 0 || s.archiver == nil {
		return
	}

	s.mu.Lock()
	due := time.Since(s.lastArchive) >= archiveEvery
	if due {
		s.lastArchive = time.Now()
	}
	s.mu.Unlock()
	if !due {
		return
	}

	cutoff := time.Now().UTC().Add(-s.retention)
	count, err := s.archiver.ArchiveSnapshots(ctx, cutoff)
	if err != nil {
		s.logger.ErrorContext(ctx, "sync_service: archive failed",
			slog.String("error", err.Error()),
		)
		return
	}
	if count == 0 {
		return
	}

	deleted, err := s.snapshots.DeleteBefore(ctx, cutoff)
	if err != nil {
		// Archived but not deleted: the next sweep re-uploads the same
		// rows, which the monthly object key makes idempotent.
		s.logger.ErrorContext(ctx, "sync_service: post-archive delete failed",
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.InfoContext(ctx, "sync_service: archived history",
		slog.Int64("archived", count),
		slog.Int64("deleted", deleted),
		slog.Time("cutoff", cutoff),
	)
}

// RecordCashFlow validates and persists one deposit or withdrawal event.
func (s *SyncService) RecordCashFlow(
	ctx context.Context,
	flowType domain.CashFlowType,
	amountUSD float64,
	note string,
) (domain.CashFlow, error) {
	if flowType != domain.CashFlowDeposit && flowType != domain.CashFlowWithdrawal {
		return domain.CashFlow{}, fmt.Errorf("sync_service: invalid flow type %q", flowType)
	}
	if amountUSD <= 0 {
		return domain.CashFlow{}, fmt.Errorf("sync_service: amount must be positive, got %f", amountUSD)
	}

	cf := domain.CashFlow{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Type:      flowType,
		AmountUSD: amountUSD,
		Note:      note,
	}
	if err := s.flows.Create(ctx, cf); err != nil {
		return domain.CashFlow{}, fmt.Errorf("sync_service: record cash flow: %w", err)
	}

	s.logger.InfoContext(ctx, "sync_service: cash flow recorded",
		slog.String("id", cf.ID),
		slog.String("type", string(cf.Type)),
		slog.Float64("amount_usd", cf.AmountUSD),
	)
	return cf, nil
}

// ListCashFlows returns the full cash-flow log, oldest first.
func (s *SyncService) ListCashFlows(ctx context.Context) ([]domain.CashFlow, error) {
	flows, err := s.flows.ListAsc(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync_service: list cash flows: %w", err)
	}
	return flows, nil
}

// Performance replays the full event log and summarizes the unit-value
// series. The replay is deterministic, so reading always recomputes instead
// of trusting any persisted series.
func (s *SyncService) Performance(ctx context.Context) (domain.PerformanceMetrics, error) {
	series, flows, err := s.series(ctx)
	if err != nil {
		return domain.PerformanceMetrics{}, err
	}
	return s.engine.Metrics(series, flows), nil
}

// UnitSeries returns the recomputed unit-price series.
func (s *SyncService) UnitSeries(ctx context.Context) ([]domain.QuotaSnapshot, error) {
	series, _, err := s.series(ctx)
	return series, err
}

func (s *SyncService) series(ctx context.Context) ([]domain.QuotaSnapshot, []domain.CashFlow, error) {
	points, err := s.snapshots.ListAsc(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("sync_service: list snapshots: %w", err)
	}
	flows, err := s.flows.ListAsc(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("sync_service: list cash flows: %w", err)
	}
	return s.engine.ComputeSeries(points, flows), flows, nil
}
