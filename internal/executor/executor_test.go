package executor

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
)

type fakeLiquidity struct {
	calls     []string
	removeErr error
	swapErr   error
	addErr    error
}

func (f *fakeLiquidity) RemoveLiquidity(ctx context.Context, plan domain.RecenterPlan) (string, error) {
	f.calls = append(f.calls, "remove")
	return "tx-remove", f.removeErr
}

func (f *fakeLiquidity) Swap(ctx context.Context, plan domain.RecenterPlan) (string, error) {
	f.calls = append(f.calls, "swap")
	return "tx-swap", f.swapErr
}

func (f *fakeLiquidity) AddLiquidity(ctx context.Context, plan domain.RecenterPlan) (string, error) {
	f.calls = append(f.calls, "add")
	return "tx-add", f.addErr
}

type fakeHedge struct {
	calls []string
	err   error
}

func (f *fakeHedge) AdjustShort(ctx context.Context, target domain.ShortTarget) (string, error) {
	f.calls = append(f.calls, target.Token)
	return "order-" + target.Token, f.err
}

type fakeExecStore struct {
	records []domain.ExecutionRecord
	err     error
}

func (f *fakeExecStore) Create(ctx context.Context, rec domain.ExecutionRecord) error {
	f.records = append(f.records, rec)
	return f.err
}

func (f *fakeExecStore) ListRecent(ctx context.Context, limit int) ([]domain.ExecutionRecord, error) {
	return f.records, nil
}

type fakeLocks struct {
	held     bool
	acquired int
	released int
}

func (f *fakeLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if f.held {
		return nil, domain.ErrLockHeld
	}
	f.acquired++
	return func() { f.released++ }, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(lq *fakeLiquidity, hd *fakeHedge, store *fakeExecStore, locks domain.LockManager) *Orchestrator {
	// Pass a nil interface when no store is given; a typed nil pointer
	// would defeat the orchestrator's execStore != nil check.
	var execStore domain.ExecutionStore
	if store != nil {
		execStore = store
	}
	return NewOrchestrator(lq, hd, execStore, locks, true, discardLogger())
}

func fullPlan() domain.RecenterPlan {
	return domain.RecenterPlan{
		Pool:       "WETH/USDC",
		SwapNeeded: true,
		ShortTargets: []domain.ShortTarget{
			{Token: "ETH", TargetSize: 1.5, Adjustment: 0.2},
			{Token: "BTC", TargetSize: 0.05, Adjustment: -0.01},
		},
	}
}

func TestExecuteManualFullRecenterStepOrder(t *testing.T) {
	lq := &fakeLiquidity{}
	hd := &fakeHedge{}
	store := &fakeExecStore{}
	o := newTestOrchestrator(lq, hd, store, nil)

	rec, err := o.ExecuteManual(context.Background(), fullPlan(), domain.OpFullRecenter)
	require.NoError(t, err)

	assert.Equal(t, []string{"remove", "swap", "add"}, lq.calls)
	assert.Equal(t, []string{"ETH", "BTC"}, hd.calls)
	assert.True(t, rec.Success)
	require.Len(t, rec.Steps, 5)
	assert.Equal(t, "remove_liquidity", rec.Steps[0].Name)
	assert.Equal(t, "rebalancing_swap", rec.Steps[1].Name)
	assert.Equal(t, "add_liquidity", rec.Steps[2].Name)
	assert.Equal(t, "adjust_short_ETH", rec.Steps[3].Name)
	assert.Equal(t, "adjust_short_BTC", rec.Steps[4].Name)
	assert.NotEmpty(t, rec.ID)

	require.Len(t, store.records, 1)
	assert.Equal(t, rec.ID, store.records[0].ID)
}

func TestExecuteSwapSkippedWhenNotNeeded(t *testing.T) {
	lq := &fakeLiquidity{}
	hd := &fakeHedge{}
	o := newTestOrchestrator(lq, hd, nil, nil)

	plan := fullPlan()
	plan.SwapNeeded = false

	rec, err := o.ExecuteManual(context.Background(), plan, domain.OpFullRecenter)
	require.NoError(t, err)

	assert.Equal(t, []string{"remove", "add"}, lq.calls)
	assert.Equal(t, domain.StepSkipped, rec.Steps[1].Status)
	assert.True(t, rec.Success)
}

// A failed step stops the sequence; completed steps stay recorded and no
// rollback runs.
func TestExecuteStopsOnFailureNoRollback(t *testing.T) {
	lq := &fakeLiquidity{swapErr: errors.New("pool reverted")}
	hd := &fakeHedge{}
	store := &fakeExecStore{}
	o := newTestOrchestrator(lq, hd, store, nil)

	rec, err := o.ExecuteManual(context.Background(), fullPlan(), domain.OpFullRecenter)
	require.Error(t, err)

	assert.Equal(t, []string{"remove", "swap"}, lq.calls)
	assert.Empty(t, hd.calls)
	assert.False(t, rec.Success)
	require.Len(t, rec.Steps, 2)
	assert.Equal(t, domain.StepOK, rec.Steps[0].Status)
	assert.Equal(t, domain.StepFailed, rec.Steps[1].Status)
	assert.Contains(t, rec.Steps[1].Error, "pool reverted")

	// The failed record is still persisted.
	require.Len(t, store.records, 1)
	assert.False(t, store.records[0].Success)
}

func TestExecuteShortsOnlySkipsLPLegs(t *testing.T) {
	lq := &fakeLiquidity{}
	hd := &fakeHedge{}
	o := newTestOrchestrator(lq, hd, nil, nil)

	rec, err := o.ExecuteManual(context.Background(), fullPlan(), domain.OpShortsOnly)
	require.NoError(t, err)

	assert.Empty(t, lq.calls)
	assert.Equal(t, []string{"ETH", "BTC"}, hd.calls)
	require.Len(t, rec.Steps, 2)
}

func TestExecuteLPOnlySkipsShorts(t *testing.T) {
	lq := &fakeLiquidity{}
	hd := &fakeHedge{}
	o := newTestOrchestrator(lq, hd, nil, nil)

	_, err := o.ExecuteManual(context.Background(), fullPlan(), domain.OpLPOnly)
	require.NoError(t, err)

	assert.Equal(t, []string{"remove", "swap", "add"}, lq.calls)
	assert.Empty(t, hd.calls)
}

func TestExecuteAutoDeniedBySafetyGate(t *testing.T) {
	lq := &fakeLiquidity{}
	hd := &fakeHedge{}
	o := newTestOrchestrator(lq, hd, nil, nil)

	report := domain.SafetyReport{
		AutoModeAllowed: false,
		Errors: []domain.SafetyCheckResult{
			{CheckName: "gas_reserve", Passed: false},
		},
	}

	_, err := o.ExecuteAuto(context.Background(), fullPlan(), report)
	require.ErrorIs(t, err, domain.ErrExecutionDenied)
	assert.Empty(t, lq.calls)
	assert.Empty(t, hd.calls)
}

func TestExecuteAutoRunsWhenGateOpen(t *testing.T) {
	lq := &fakeLiquidity{}
	hd := &fakeHedge{}
	o := newTestOrchestrator(lq, hd, nil, nil)

	rec, err := o.ExecuteAuto(context.Background(), fullPlan(), domain.SafetyReport{AutoModeAllowed: true})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAuto, rec.Mode)
	assert.Equal(t, domain.OpFullRecenter, rec.Operation)
}

func TestExecuteDisabledWithoutSigningKey(t *testing.T) {
	o := NewOrchestrator(&fakeLiquidity{}, &fakeHedge{}, nil, nil, false, discardLogger())

	_, err := o.ExecuteManual(context.Background(), fullPlan(), domain.OpFullRecenter)
	require.ErrorIs(t, err, domain.ErrExecutionMode)
}

func TestExecuteSerializedAcrossProcesses(t *testing.T) {
	locks := &fakeLocks{held: true}
	o := newTestOrchestrator(&fakeLiquidity{}, &fakeHedge{}, nil, locks)

	_, err := o.ExecuteManual(context.Background(), fullPlan(), domain.OpFullRecenter)
	require.ErrorIs(t, err, domain.ErrLockHeld)
}

func TestExecuteReleasesLock(t *testing.T) {
	locks := &fakeLocks{}
	o := newTestOrchestrator(&fakeLiquidity{}, &fakeHedge{}, nil, locks)

	_, err := o.ExecuteManual(context.Background(), fullPlan(), domain.OpFullRecenter)
	require.NoError(t, err)
	assert.Equal(t, 1, locks.acquired)
	assert.Equal(t, 1, locks.released)

	assert.False(t, o.LastExecutionTime().IsZero())
}
