// Package trigger decides when an LP range has drifted far enough from the
// market price to need recentering. A hysteresis latch with a lower reentry
// threshold stops the decision from flapping at the trigger boundary, and a
// cooldown suppresses repeat signals right after an executed recenter.
package trigger

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

// Config holds the trigger thresholds. RecenterTrigger and HysteresisReentry
// are deviation fractions (0.01 = 1%).
type Config struct {
	RecenterTrigger   float64
	HysteresisReentry float64
	CooldownHours     float64
}

// Monitor tracks the hysteresis latch and last recenter time for one
// monitored range. The state is explicit per monitor instance so several
// wallets or pools can be watched concurrently without cross-talk; a single
// monitoring loop must own each instance (Check and MarkRecentered are
// guarded, but the latch semantics assume one writer).
type Monitor struct {
	cfg Config
	now func() time.Time

	mu               sync.Mutex
	triggered        bool
	lastRecenterTime time.Time
}

// NewMonitor creates a Monitor with the given thresholds.
func NewMonitor(cfg Config) *Monitor {
	return &Monitor{cfg: cfg, now: time.Now}
}

// Check evaluates the current price against the range and returns the trigger
// decision for this cycle. The hysteresis latch is updated even while the
// cooldown suppresses the signal, so the monitor re-arms correctly once the
// cooldown expires.
func (m *Monitor) Check(currentPrice, rangeLower, rangeUpper float64) domain.TriggerState {
	m.mu.Lock()
	defer m.mu.Unlock()

	center := (rangeLower + rangeUpper) / 2
	var deviation float64
	if center != 0 {
		deviation = math.Abs(currentPrice-center) / center
	}

	state := domain.TriggerState{
		DeviationPct:     deviation * 100,
		CurrentPrice:     currentPrice,
		RangeLower:       rangeLower,
		RangeUpper:       rangeUpper,
		LastRecenterTime: m.lastRecenterTime,
	}

	cooldownRemaining := 0.0
	if !m.lastRecenterTime.IsZero() {
		elapsed := m.now().Sub(m.lastRecenterTime).Hours()
		cooldownRemaining = math.Max(0, m.cfg.CooldownHours-elapsed)
	}
	state.CooldownRemainingHours = cooldownRemaining

	needsRecenter := false
	reason := "within range"

	switch {
	case currentPrice < rangeLower || currentPrice > rangeUpper:
		// Outside-range override: signal regardless of the latch.
		needsRecenter = true
		reason = "price outside LP range"
	case !m.triggered && deviation >= m.cfg.RecenterTrigger:
		m.triggered = true
		needsRecenter = true
		reason = fmt.Sprintf("deviation %.2f%% exceeds trigger %.2f%%",
			deviation*100, m.cfg.RecenterTrigger*100)
	case m.triggered && deviation >= m.cfg.HysteresisReentry:
		needsRecenter = true
		reason = fmt.Sprintf("deviation %.2f%% still above reentry %.2f%%",
			deviation*100, m.cfg.HysteresisReentry*100)
	case m.triggered:
		m.triggered = false
		reason = "back within reentry band"
	}

	if needsRecenter && cooldownRemaining > 0 {
		needsRecenter = false
		reason = fmt.Sprintf("in cooldown (%.1fh remaining)", cooldownRemaining)
	}

	state.NeedsRecenter = needsRecenter
	state.Reason = reason
	return state
}

// MarkRecentered resets the latch and starts the cooldown. Call only after a
// recenter actually executed, never speculatively.
func (m *Monitor) MarkRecentered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRecenterTime = m.now()
	m.triggered = false
}

// Reset clears the latch and the recenter timestamp.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRecenterTime = time.Time{}
	m.triggered = false
}
