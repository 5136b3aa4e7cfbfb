// Package executor orchestrates recenter and hedge-adjustment sequences.
// Steps run in a fixed order (remove liquidity, optional swap, add
// liquidity, adjust shorts); a failed step stops the sequence but does not
// roll back completed steps.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

// LiquidityManager performs the on-chain LP legs of a recenter.
type LiquidityManager interface {
	RemoveLiquidity(ctx context.Context, plan domain.RecenterPlan) (txID string, err error)
	Swap(ctx context.Context, plan domain.RecenterPlan) (txID string, err error)
	AddLiquidity(ctx context.Context, plan domain.RecenterPlan) (txID string, err error)
}

// HedgeTrader adjusts short positions on the hedge venue to a target size.
type HedgeTrader interface {
	AdjustShort(ctx context.Context, target domain.ShortTarget) (orderID string, err error)
}

// Orchestrator sequences recenter executions. Executions are serialized: at
// most one sequence is in flight at a time, across processes when a
// LockManager is configured.
type Orchestrator struct {
	liquidity LiquidityManager
	hedge     HedgeTrader
	execStore domain.ExecutionStore
	locks     domain.LockManager
	logger    *slog.Logger

	// executionEnabled is false when no signing key was configured; both
	// modes then refuse to run.
	executionEnabled bool

	mu                sync.Mutex
	lastExecutionTime time.Time
}

// lockKey serializes executions across processes sharing the lock backend.
const lockKey = "recenter_execution"

// lockTTL bounds how long a crashed process can hold the execution lock.
const lockTTL = 10 * time.Minute

// NewOrchestrator creates an Orchestrator. locks and execStore may be nil;
// without a lock manager serialization is process-local only.
func NewOrchestrator(
	liquidity LiquidityManager,
	hedge HedgeTrader,
	execStore domain.ExecutionStore,
	locks domain.LockManager,
	executionEnabled bool,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		liquidity:        liquidity,
		hedge:            hedge,
		execStore:        execStore,
		locks:            locks,
		executionEnabled: executionEnabled,
		logger:           logger.With(slog.String("component", "executor")),
	}
}

// LastExecutionTime returns when the most recent sequence completed, zero if
// none has run.
func (o *Orchestrator) LastExecutionTime() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastExecutionTime
}

// ExecuteManual runs the sequence on explicit caller request. No safety gate
// applies beyond execution-mode availability.
func (o *Orchestrator) ExecuteManual(ctx context.Context, plan domain.RecenterPlan, op domain.OperationType) (domain.ExecutionRecord, error) {
	return o.execute(ctx, plan, op, domain.ModeManual)
}

// ExecuteAuto runs the full sequence only when the safety gate allows it.
// The report must come from a fresh RunAllChecks on current inputs.
func (o *Orchestrator) ExecuteAuto(ctx context.Context, plan domain.RecenterPlan, report domain.SafetyReport) (domain.ExecutionRecord, error) {
	if !report.AutoModeAllowed {
		names := make([]string, 0, len(report.Errors))
		for _, r := range report.Errors {
			names = append(names, r.CheckName)
		}
		o.logger.WarnContext(ctx, "auto execution denied",
			slog.Any("failed_checks", names),
		)
		return domain.ExecutionRecord{}, fmt.Errorf("executor: %w: %v", domain.ErrExecutionDenied, names)
	}
	return o.execute(ctx, plan, domain.OpFullRecenter, domain.ModeAuto)
}

func (o *Orchestrator) execute(ctx context.Context, plan domain.RecenterPlan, op domain.OperationType, mode domain.ExecutionMode) (domain.ExecutionRecord, error) {
	if !o.executionEnabled {
		return domain.ExecutionRecord{}, fmt.Errorf("executor: %w", domain.ErrExecutionMode)
	}

	if !o.mu.TryLock() {
		return domain.ExecutionRecord{}, fmt.Errorf("executor: %w", domain.ErrExecutionLocked)
	}
	defer o.mu.Unlock()

	if o.locks != nil {
		unlock, err := o.locks.Acquire(ctx, lockKey, lockTTL)
		if err != nil {
			return domain.ExecutionRecord{}, fmt.Errorf("executor: acquire execution lock: %w", err)
		}
		defer unlock()
	}

	rec := domain.ExecutionRecord{
		ID:        uuid.New().String(),
		Mode:      mode,
		Operation: op,
		StartedAt: time.Now().UTC(),
	}

	o.logger.InfoContext(ctx, "execution started",
		slog.String("execution_id", rec.ID),
		slog.String("mode", string(mode)),
		slog.String("operation", string(op)),
	)

	rec.Steps = o.runSteps(ctx, plan, op)

	rec.Success = true
	for _, s := range rec.Steps {
		if s.Status == domain.StepFailed {
			rec.Success = false
			break
		}
	}
	rec.CompletedAt = time.Now().UTC()
	o.lastExecutionTime = rec.CompletedAt

	if o.execStore != nil {
		if err := o.execStore.Create(ctx, rec); err != nil {
			o.logger.ErrorContext(ctx, "failed to persist execution record",
				slog.String("execution_id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	o.logger.InfoContext(ctx, "execution finished",
		slog.String("execution_id", rec.ID),
		slog.Bool("success", rec.Success),
		slog.Int("steps", len(rec.Steps)),
	)

	if !rec.Success {
		return rec, fmt.Errorf("executor: execution %s completed with failed steps", rec.ID)
	}
	return rec, nil
}

// runSteps drives the fixed sequence. Completed steps stay completed when a
// later step fails; recovery is an operator concern.
func (o *Orchestrator) runSteps(ctx context.Context, plan domain.RecenterPlan, op domain.OperationType) []domain.StepResult {
	var steps []domain.StepResult

	if op == domain.OpFullRecenter || op == domain.OpLPOnly {
		s := o.runStep(ctx, "remove_liquidity", func() (string, error) {
			return o.liquidity.RemoveLiquidity(ctx, plan)
		})
		steps = append(steps, s)
		if s.Status == domain.StepFailed {
			return steps
		}

		if plan.SwapNeeded {
			s = o.runStep(ctx, "rebalancing_swap", func() (string, error) {
				return o.liquidity.Swap(ctx, plan)
			})
		} else {
			s = domain.StepResult{Name: "rebalancing_swap", Status: domain.StepSkipped}
		}
		steps = append(steps, s)
		if s.Status == domain.StepFailed {
			return steps
		}

		s = o.runStep(ctx, "add_liquidity", func() (string, error) {
			return o.liquidity.AddLiquidity(ctx, plan)
		})
		steps = append(steps, s)
		if s.Status == domain.StepFailed {
			return steps
		}
	}

	if op == domain.OpFullRecenter || op == domain.OpShortsOnly {
		for _, target := range plan.ShortTargets {
			target := target
			name := "adjust_short_" + target.Token
			s := o.runStep(ctx, name, func() (string, error) {
				return o.hedge.AdjustShort(ctx, target)
			})
			steps = append(steps, s)
			if s.Status == domain.StepFailed {
				return steps
			}
		}
	}

	return steps
}

func (o *Orchestrator) runStep(ctx context.Context, name string, fn func() (string, error)) domain.StepResult {
	txID, err := fn()
	if err != nil {
		o.logger.ErrorContext(ctx, "execution step failed",
			slog.String("step", name),
			slog.String("error", err.Error()),
		)
		return domain.StepResult{Name: name, Status: domain.StepFailed, Error: err.Error()}
	}
	return domain.StepResult{Name: name, Status: domain.StepOK, TxID: txID}
}
