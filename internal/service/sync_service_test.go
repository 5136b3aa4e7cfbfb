package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hedgemon/internal/domain"
	"github.com/alanyoungcy/hedgemon/internal/quota"
)

type fakeSnapshotStore struct {
	points  []domain.NetWorthPoint
	deleted time.Time
}

func (f *fakeSnapshotStore) Append(_ context.Context, p domain.NetWorthPoint) error {
	f.points = append(f.points, p)
	return nil
}

func (f *fakeSnapshotStore) ListAsc(context.Context) ([]domain.NetWorthPoint, error) {
	return f.points, nil
}

func (f *fakeSnapshotStore) ListBefore(_ context.Context, cutoff time.Time, _ int) ([]domain.NetWorthPoint, error) {
	var out []domain.NetWorthPoint
	for _, p := range f.points {
		if p.Timestamp.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeSnapshotStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.deleted = cutoff
	var kept []domain.NetWorthPoint
	var n int64
	for _, p := range f.points {
		if p.Timestamp.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, p)
	}
	f.points = kept
	return n, nil
}

func (f *fakeSnapshotStore) Latest(context.Context) (domain.NetWorthPoint, error) {
	if len(f.points) == 0 {
		return domain.NetWorthPoint{}, domain.ErrNotFound
	}
	return f.points[len(f.points)-1], nil
}

type fakeCashFlowStore struct {
	flows     []domain.CashFlow
	createErr error
}

func (f *fakeCashFlowStore) Create(_ context.Context, cf domain.CashFlow) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.flows = append(f.flows, cf)
	return nil
}

func (f *fakeCashFlowStore) ListAsc(context.Context) ([]domain.CashFlow, error) {
	return f.flows, nil
}

func newTestSyncService(snapshots *fakeSnapshotStore, flows *fakeCashFlowStore) *SyncService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSyncService(nil, snapshots, flows, nil, quota.NewEngine(), nil, nil,
		time.Minute, 0, logger)
}

func TestRecordCashFlowPersists(t *testing.T) {
	flows := &fakeCashFlowStore{}
	svc := newTestSyncService(&fakeSnapshotStore{}, flows)

	cf, err := svc.RecordCashFlow(context.Background(), domain.CashFlowDeposit, 5000, "initial funding")
	require.NoError(t, err)

	assert.NotEmpty(t, cf.ID)
	assert.Equal(t, domain.CashFlowDeposit, cf.Type)
	assert.Equal(t, 5000.0, cf.AmountUSD)
	assert.False(t, cf.Timestamp.IsZero())
	require.Len(t, flows.flows, 1)
	assert.Equal(t, cf.ID, flows.flows[0].ID)
}

func TestRecordCashFlowRejectsInvalidInput(t *testing.T) {
	svc := newTestSyncService(&fakeSnapshotStore{}, &fakeCashFlowStore{})

	_, err := svc.RecordCashFlow(context.Background(), "transfer", 100, "")
	assert.Error(t, err)

	_, err = svc.RecordCashFlow(context.Background(), domain.CashFlowDeposit, 0, "")
	assert.Error(t, err)

	_, err = svc.RecordCashFlow(context.Background(), domain.CashFlowWithdrawal, -50, "")
	assert.Error(t, err)
}

func TestRecordCashFlowPropagatesStoreError(t *testing.T) {
	flows := &fakeCashFlowStore{createErr: errors.New("connection refused")}
	svc := newTestSyncService(&fakeSnapshotStore{}, flows)

	_, err := svc.RecordCashFlow(context.Background(), domain.CashFlowDeposit, 100, "")
	assert.Error(t, err)
}

func TestPerformanceReplaysEventLog(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	snapshots := &fakeSnapshotStore{points: []domain.NetWorthPoint{
		{Timestamp: base.Add(1 * time.Hour), NetWorth: 10_000},
		{Timestamp: base.Add(48 * time.Hour), NetWorth: 11_000},
	}}
	flows := &fakeCashFlowStore{flows: []domain.CashFlow{
		{ID: "d1", Timestamp: base, Type: domain.CashFlowDeposit, AmountUSD: 10_000},
	}}
	svc := newTestSyncService(snapshots, flows)

	metrics, err := svc.Performance(context.Background())
	require.NoError(t, err)

	// 10k deposited at unit value 1, market moved the book to 11k: the
	// unit value gained 10% and no flow distorted it.
	assert.InDelta(t, 10_000, metrics.TotalUnits, 1e-9)
	assert.InDelta(t, 1.1, metrics.CurrentUnitValue, 1e-9)
	assert.InDelta(t, 10, metrics.InceptionReturnPct, 1e-9)
	assert.Equal(t, 11_000.0, metrics.CurrentNetWorth)
	assert.Equal(t, 10_000.0, metrics.NetInvested)
	assert.InDelta(t, 1_000, metrics.ProfitLoss, 1e-9)
}

func TestUnitSeriesDepositIssuesUnitsWithoutRepricing(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	snapshots := &fakeSnapshotStore{points: []domain.NetWorthPoint{
		{Timestamp: base.Add(1 * time.Hour), NetWorth: 10_000},
		{Timestamp: base.Add(24 * time.Hour), NetWorth: 15_000},
	}}
	flows := &fakeCashFlowStore{flows: []domain.CashFlow{
		{ID: "d1", Timestamp: base, Type: domain.CashFlowDeposit, AmountUSD: 10_000},
		{ID: "d2", Timestamp: base.Add(12 * time.Hour), Type: domain.CashFlowDeposit, AmountUSD: 5_000},
	}}
	svc := newTestSyncService(snapshots, flows)

	series, err := svc.UnitSeries(context.Background())
	require.NoError(t, err)
	require.Len(t, series, 2)

	// The second deposit buys units at the running unit value of 1.0, so
	// the flat market leaves the unit price unchanged.
	assert.InDelta(t, 1.0, series[0].UnitValue, 1e-9)
	assert.InDelta(t, 15_000, series[1].TotalUnits, 1e-9)
	assert.InDelta(t, 1.0, series[1].UnitValue, 1e-9)
}
