package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/hedgemon/internal/domain"
	"github.com/alanyoungcy/hedgemon/internal/executor"
	"github.com/alanyoungcy/hedgemon/internal/notify"
	"github.com/alanyoungcy/hedgemon/internal/platform/evm"
	"github.com/alanyoungcy/hedgemon/internal/platform/hyperliquid"
	"github.com/alanyoungcy/hedgemon/internal/platform/uniswap"
	"github.com/alanyoungcy/hedgemon/internal/safety"
	"github.com/alanyoungcy/hedgemon/internal/trigger"
)

// estimatedGasPerTx is a planning-time estimate of the gas one executor step
// burns, in the native gas asset. The safety gate compares the summed
// estimate against its cap; actual costs come from the chain at execution.
const estimatedGasPerTx = 0.002

// MonitorConfig holds the monitor loop parameters not owned by a wired
// dependency.
type MonitorConfig struct {
	Interval time.Duration
	// PoolID selects the managed position among the wallet's open LP
	// positions. Empty matches the first open position.
	PoolID string
	// FeeTier determines the tick spacing new ranges snap to.
	FeeTier int
	// SwapSlippageBps bounds the rebalancing swap in the recenter plan.
	SwapSlippageBps int
	// AutoExecute lets a passing safety report start the recenter sequence
	// without operator action.
	AutoExecute bool
}

// Status is the monitor's latest published view, refreshed every cycle and
// served read-only by the HTTP API.
type Status struct {
	Timestamp   time.Time
	Snapshot    domain.PortfolioSnapshot
	Suggestions []domain.HedgeSuggestion
	Allocation  domain.AllocationStatus
	Trigger     domain.TriggerState
	Safety      domain.SafetyReport
}

// MonitorService runs the decision cycle: portfolio snapshot, hedge
// reconciliation, allocation classification, trigger check, safety gate,
// and, when armed, automatic execution. It is the single writer of the
// trigger monitor's latch state.
type MonitorService struct {
	portfolio *PortfolioService
	lp        *uniswap.Client
	hedge     *hyperliquid.Client
	gas       *evm.Wallet
	trig      *trigger.Monitor
	checker   *safety.Checker
	orch      *executor.Orchestrator
	notifier  *notify.Notifier

	cfg    MonitorConfig
	logger *slog.Logger

	mu            sync.Mutex
	last          Status
	hasStatus     bool
	prevTriggered bool
}

// NewMonitorService creates a MonitorService with all required dependencies.
func NewMonitorService(
	portfolio *PortfolioService,
	lp *uniswap.Client,
	hedge *hyperliquid.Client,
	gas *evm.Wallet,
	trig *trigger.Monitor,
	checker *safety.Checker,
	orch *executor.Orchestrator,
	notifier *notify.Notifier,
	cfg MonitorConfig,
	logger *slog.Logger,
) *MonitorService {
	return &MonitorService{
		portfolio: portfolio,
		lp:        lp,
		hedge:     hedge,
		gas:       gas,
		trig:      trig,
		checker:   checker,
		orch:      orch,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run executes monitor cycles until the context is cancelled. Cycle failures
// are reported and the loop keeps going.
func (m *MonitorService) Run(ctx context.Context) error {
	m.logger.InfoContext(ctx, "monitor_service: starting",
		slog.Duration("interval", m.cfg.Interval),
		slog.Bool("auto_execute", m.cfg.AutoExecute),
	)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := m.RunCycle(ctx); err != nil {
			m.logger.ErrorContext(ctx, "monitor_service: cycle failed",
				slog.String("error", err.Error()),
			)
			if notifyErr := m.notifier.Error(ctx, "monitor", err); notifyErr != nil {
				m.logger.WarnContext(ctx, "monitor_service: error notification failed",
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

// RunCycle executes one full decision cycle and publishes the resulting
// status. All outputs are advisory except the auto-execution branch, which
// only runs behind the safety gate.
func (m *MonitorService) RunCycle(ctx context.Context) (Status, error) {
	snap, err := m.portfolio.Snapshot(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("monitor_service: snapshot: %w", err)
	}

	suggestions := m.portfolio.Reconcile(snap)
	alloc := m.portfolio.Allocation(snap)

	pos, found, err := m.position(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("monitor_service: fetch position: %w", err)
	}

	var state domain.TriggerState
	if found {
		lower, upper := pos.RangePrices()
		state = m.trig.Check(pos.CurrentPrice(), lower, upper)
	} else {
		state.Reason = "no open LP position"
	}

	var plan domain.RecenterPlan
	havePlan := false
	if state.NeedsRecenter {
		plan, err = m.buildPlan(pos, suggestions)
		if err != nil {
			m.logger.ErrorContext(ctx, "monitor_service: plan build failed",
				slog.String("error", err.Error()),
			)
		} else {
			havePlan = true
		}
	}

	report := m.safetyReport(ctx, snap, plan, m.safetyPoolID(pos, found))

	status := Status{
		Timestamp:   snap.Timestamp,
		Snapshot:    snap,
		Suggestions: suggestions,
		Allocation:  alloc,
		Trigger:     state,
		Safety:      report,
	}
	m.publish(status)

	m.sendAlerts(ctx, status)

	if state.NeedsRecenter && havePlan && m.cfg.AutoExecute {
		m.autoExecute(ctx, plan, report)
	}

	m.logger.InfoContext(ctx, "monitor_service: cycle complete",
		slog.Float64("deviation_pct", state.DeviationPct),
		slog.Bool("needs_recenter", state.NeedsRecenter),
		slog.Bool("auto_mode_allowed", report.AutoModeAllowed),
		slog.Int("suggestions", len(suggestions)),
	)
	return status, nil
}

// Status returns the last published cycle view. The second return is false
// until the first cycle completes.
func (m *MonitorService) Status() (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.hasStatus
}

func (m *MonitorService) publish(status Status) {
	m.mu.Lock()
	m.last = status
	m.hasStatus = true
	m.mu.Unlock()
}

// sendAlerts pushes the cycle's notification-worthy findings. The recenter
// alert fires only on the rising edge of the trigger so a latched signal is
// not re-announced every cycle.
func (m *MonitorService) sendAlerts(ctx context.Context, status Status) {
	m.mu.Lock()
	risingEdge := status.Trigger.NeedsRecenter && !m.prevTriggered
	m.prevTriggered = status.Trigger.NeedsRecenter
	m.mu.Unlock()

	if risingEdge {
		if err := m.notifier.RecenterTriggered(ctx, status.Trigger); err != nil {
			m.logger.WarnContext(ctx, "monitor_service: recenter notification failed",
				slog.String("error", err.Error()),
			)
		}
	}
	if err := m.notifier.HedgeDrift(ctx, status.Suggestions); err != nil {
		m.logger.WarnContext(ctx, "monitor_service: drift notification failed",
			slog.String("error", err.Error()),
		)
	}
	if err := m.notifier.AllocationRisk(ctx, status.Allocation); err != nil {
		m.logger.WarnContext(ctx, "monitor_service: allocation notification failed",
			slog.String("error", err.Error()),
		)
	}
}

// autoExecute hands the plan to the orchestrator in auto mode. A denial by
// the safety gate is expected operation, not an error.
func (m *MonitorService) autoExecute(ctx context.Context, plan domain.RecenterPlan, report domain.SafetyReport) {
	rec, err := m.orch.ExecuteAuto(ctx, plan, report)
	if err != nil {
		m.logger.WarnContext(ctx, "monitor_service: auto execution not run",
			slog.String("error", err.Error()),
		)
	}
	if len(rec.Steps) == 0 {
		return
	}

	if rec.Success {
		m.trig.MarkRecentered()
	}
	if notifyErr := m.notifier.ExecutionCompleted(ctx, rec); notifyErr != nil {
		m.logger.WarnContext(ctx, "monitor_service: execution notification failed",
			slog.String("error", notifyErr.Error()),
		)
	}
}

// ExecuteManual builds a plan from the current position and runs the chosen
// operation immediately. Only execution-mode availability gates it; the
// caller owns the decision.
func (m *MonitorService) ExecuteManual(ctx context.Context, op domain.OperationType) (domain.ExecutionRecord, error) {
	snap, err := m.portfolio.Snapshot(ctx)
	if err != nil {
		return domain.ExecutionRecord{}, fmt.Errorf("monitor_service: snapshot: %w", err)
	}
	suggestions := m.portfolio.Reconcile(snap)

	pos, found, err := m.position(ctx)
	if err != nil {
		return domain.ExecutionRecord{}, fmt.Errorf("monitor_service: fetch position: %w", err)
	}

	// Shorts-only needs no LP position: the plan carries hedge legs only.
	var plan domain.RecenterPlan
	switch {
	case found:
		plan, err = m.buildPlan(pos, suggestions)
		if err != nil {
			return domain.ExecutionRecord{}, fmt.Errorf("monitor_service: build plan: %w", err)
		}
	case op == domain.OpShortsOnly:
		plan = shortsOnlyPlan(suggestions)
	default:
		return domain.ExecutionRecord{}, fmt.Errorf("monitor_service: no open LP position to recenter")
	}

	rec, err := m.orch.ExecuteManual(ctx, plan, op)
	if rec.Success && op != domain.OpShortsOnly {
		m.trig.MarkRecentered()
	}
	if len(rec.Steps) > 0 {
		if notifyErr := m.notifier.ExecutionCompleted(ctx, rec); notifyErr != nil {
			m.logger.WarnContext(ctx, "monitor_service: execution notification failed",
				slog.String("error", notifyErr.Error()),
			)
		}
	}
	return rec, err
}

// position returns the managed LP position: the one on the configured pool,
// or the first open position when no pool is pinned.
func (m *MonitorService) position(ctx context.Context) (uniswap.Position, bool, error) {
	positions, err := m.lp.FetchPositions(ctx, m.portfolio.walletAddress)
	if err != nil {
		return uniswap.Position{}, false, err
	}
	for _, pos := range positions {
		if m.cfg.PoolID == "" || strings.EqualFold(pos.Pool.ID, m.cfg.PoolID) {
			return pos, true, nil
		}
	}
	return uniswap.Position{}, false, nil
}

// buildPlan derives the recenter plan: a new range of the same tick width
// centered on the current tick, a rebalancing swap that equalizes the USD
// value of both deposit legs, and one short target per drifted token.
func (m *MonitorService) buildPlan(pos uniswap.Position, suggestions []domain.HedgeSuggestion) (domain.RecenterPlan, error) {
	amount0, amount1, err := pos.TokenAmounts()
	if err != nil {
		return domain.RecenterPlan{}, fmt.Errorf("token amounts: %w", err)
	}

	spacing := tickSpacing(m.cfg.FeeTier)
	width := pos.TickUpper - pos.TickLower
	if width < spacing {
		width = spacing
	}
	newLower := snapTick(pos.Pool.Tick-width/2, spacing)
	newUpper := newLower + snapTick(width, spacing)
	if newUpper <= newLower {
		newUpper = newLower + spacing
	}

	plan := domain.RecenterPlan{
		Pool:              pos.Pool.ID,
		CurrentPrice:      pos.CurrentPrice(),
		NewTickLower:      newLower,
		NewTickUpper:      newUpper,
		NewRangeLower:     uniswap.TickToPrice(newLower, pos.Pool.Token0Decimals, pos.Pool.Token1Decimals),
		NewRangeUpper:     uniswap.TickToPrice(newUpper, pos.Pool.Token0Decimals, pos.Pool.Token1Decimals),
		LiquidityToRemove: pos.LiquidityAmount(),
		Token0FromLP:      amount0,
		Token1FromLP:      amount1,
		SwapSlippageBps:   m.cfg.SwapSlippageBps,
	}

	value0 := amount0 * pos.Pool.Token0PriceUSD
	value1 := amount1 * pos.Pool.Token1PriceUSD
	total := value0 + value1

	// A centered range wants roughly equal leg values. Swap half the value
	// gap from the rich leg to the poor one; below 1% of position value the
	// swap costs more than the imbalance.
	newAmount0, newAmount1 := amount0, amount1
	if gap := math.Abs(value0 - value1); total > 0 && gap/total > 0.01 {
		swapUSD := gap / 2
		plan.SwapNeeded = true
		if value0 > value1 {
			plan.SwapTokenIn = pos.Pool.Token0Symbol
			plan.SwapTokenOut = pos.Pool.Token1Symbol
			if pos.Pool.Token0PriceUSD > 0 {
				plan.SwapAmountIn = swapUSD / pos.Pool.Token0PriceUSD
			}
			if pos.Pool.Token1PriceUSD > 0 {
				plan.SwapAmountOut = swapUSD / pos.Pool.Token1PriceUSD
			}
			newAmount0 -= plan.SwapAmountIn
			newAmount1 += plan.SwapAmountOut
		} else {
			plan.SwapTokenIn = pos.Pool.Token1Symbol
			plan.SwapTokenOut = pos.Pool.Token0Symbol
			if pos.Pool.Token1PriceUSD > 0 {
				plan.SwapAmountIn = swapUSD / pos.Pool.Token1PriceUSD
			}
			if pos.Pool.Token0PriceUSD > 0 {
				plan.SwapAmountOut = swapUSD / pos.Pool.Token0PriceUSD
			}
			newAmount1 -= plan.SwapAmountIn
			newAmount0 += plan.SwapAmountOut
		}
	}
	plan.NewToken0Amount = newAmount0
	plan.NewToken1Amount = newAmount1
	plan.NewLPValueUSD = total

	plan.ShortTargets = shortTargets(suggestions)

	txCount := 3 + len(plan.ShortTargets)
	if !plan.SwapNeeded {
		txCount--
	}
	plan.EstimatedGasNative = float64(txCount) * estimatedGasPerTx
	if plan.SwapNeeded {
		plan.EstimatedSlippageUSD = plan.SwapAmountIn * pos.Pool.Token0PriceUSD * float64(plan.SwapSlippageBps) / 10_000
		if plan.SwapTokenIn == pos.Pool.Token1Symbol {
			plan.EstimatedSlippageUSD = plan.SwapAmountIn * pos.Pool.Token1PriceUSD * float64(plan.SwapSlippageBps) / 10_000
		}
	}
	gasAssetUSD := 0.0
	switch {
	case strings.EqualFold(pos.Pool.Token0Symbol, "WETH"):
		gasAssetUSD = pos.Pool.Token0PriceUSD
	case strings.EqualFold(pos.Pool.Token1Symbol, "WETH"):
		gasAssetUSD = pos.Pool.Token1PriceUSD
	}
	plan.TotalCostUSD = plan.EstimatedSlippageUSD + plan.EstimatedGasNative*gasAssetUSD

	return plan, nil
}

// shortTargets derives one hedge leg per drifted token. Decreases carry a
// negative adjustment.
func shortTargets(suggestions []domain.HedgeSuggestion) []domain.ShortTarget {
	var targets []domain.ShortTarget
	for _, s := range suggestions {
		if !s.NeedsAdjustment() {
			continue
		}
		adj := s.AdjustmentAmount
		if s.Action == domain.ActionDecreaseShort {
			adj = -adj
		}
		targets = append(targets, domain.ShortTarget{
			Token:      s.Token,
			TargetSize: s.LPBalance,
			Adjustment: adj,
		})
	}
	return targets
}

// shortsOnlyPlan builds a plan with hedge legs only, used for manual
// shorts-only runs when no LP position is open.
func shortsOnlyPlan(suggestions []domain.HedgeSuggestion) domain.RecenterPlan {
	plan := domain.RecenterPlan{ShortTargets: shortTargets(suggestions)}
	plan.EstimatedGasNative = float64(len(plan.ShortTargets)) * estimatedGasPerTx
	return plan
}

// safetyPoolID picks the pool whose depth the gate checks: the managed
// position's pool, falling back to the pinned pool id. Without a pin the
// gate must still see the pool the monitor actually manages.
func (m *MonitorService) safetyPoolID(pos uniswap.Position, found bool) string {
	if found && pos.Pool.ID != "" {
		return pos.Pool.ID
	}
	return m.cfg.PoolID
}

// safetyReport gathers live gate inputs and runs the full check battery.
// Collaborator read failures degrade to failing inputs rather than aborting
// the cycle; a venue that cannot be read is not a venue that passed.
func (m *MonitorService) safetyReport(ctx context.Context, snap domain.PortfolioSnapshot, plan domain.RecenterPlan, poolID string) domain.SafetyReport {
	var gasBalance float64
	if bal, err := m.gas.GasBalance(ctx); err != nil {
		m.logger.WarnContext(ctx, "monitor_service: gas balance read failed",
			slog.String("error", err.Error()),
		)
	} else {
		gasBalance = bal
	}

	var hedgeCash float64
	hedgeHealthy := false
	if state, err := m.hedge.FetchAccountState(ctx); err != nil {
		m.logger.WarnContext(ctx, "monitor_service: hedge state read failed",
			slog.String("error", err.Error()),
		)
	} else {
		hedgeCash = state.WithdrawableUSD()
		hedgeHealthy = true
	}

	var poolLiquidity float64
	if poolID != "" {
		if liq, err := m.lp.FetchPoolLiquidityUSD(ctx, poolID); err != nil {
			m.logger.WarnContext(ctx, "monitor_service: pool liquidity read failed",
				slog.String("error", err.Error()),
			)
		} else {
			poolLiquidity = liq
		}
	}

	slippageBps := 0
	if plan.SwapNeeded {
		slippageBps = plan.SwapSlippageBps
	}

	return m.checker.RunAllChecks(domain.SafetyInput{
		GasBalance:           gasBalance,
		HedgeCashBalance:     hedgeCash,
		AUM:                  snap.NetWorth,
		EstimatedSlippageBps: slippageBps,
		EstimatedGasNative:   plan.EstimatedGasNative,
		LPVenueHealthy:       m.lp.Healthy(ctx),
		HedgeVenueHealthy:    hedgeHealthy,
		PoolLiquidityUSD:     poolLiquidity,
	})
}

// tickSpacing returns the Uniswap v3 tick spacing for a fee tier.
func tickSpacing(feeTier int) int {
	switch feeTier {
	case 100:
		return 1
	case 500:
		return 10
	case 10000:
		return 200
	default:
		return 60
	}
}

// snapTick rounds a tick down to the nearest spacing multiple, toward
// negative infinity for negative ticks.
func snapTick(tick, spacing int) int {
	snapped := (tick / spacing) * spacing
	if tick < 0 && tick%spacing != 0 {
		snapped -= spacing
	}
	return snapped
}
