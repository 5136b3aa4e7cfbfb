package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestMonitor() *Monitor {
	return NewMonitor(Config{
		RecenterTrigger:   0.01,
		HysteresisReentry: 0.002,
		CooldownHours:     2,
	})
}

func TestCheckWithinRange(t *testing.T) {
	m := newTestMonitor()

	// Center 150, price 150: zero deviation.
	state := m.Check(150, 100, 200)

	assert.False(t, state.NeedsRecenter)
	assert.Zero(t, state.DeviationPct)
}

// Price strictly outside the range always signals, whatever the latch says.
func TestCheckOutsideRangeOverride(t *testing.T) {
	m := newTestMonitor()

	state := m.Check(210, 100, 200)

	assert.True(t, state.NeedsRecenter)
	assert.Equal(t, "price outside LP range", state.Reason)
}

func TestHysteresisSequence(t *testing.T) {
	m := newTestMonitor()

	// Deviation fractions applied to a center of 100 (range 90..110 keeps
	// all prices inside the range so only hysteresis drives the signal).
	cases := []struct {
		price float64
		want  bool
	}{
		{100.5, false}, // 0.5% < 1% trigger, not armed
		{101.2, true},  // 1.2% >= 1%, arms the latch
		{100.5, true},  // 0.5% >= 0.2% reentry, stays armed
		{100.1, false}, // 0.1% < 0.2%, disarms
		{100.5, false}, // back below trigger, latch is off again
	}

	for i, tc := range cases {
		state := m.Check(tc.price, 90, 110)
		assert.Equal(t, tc.want, state.NeedsRecenter, "step %d price %.1f", i, tc.price)
	}
}

func TestCooldownSuppressesSignal(t *testing.T) {
	m := newTestMonitor()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	m.MarkRecentered()

	// 1.2% deviation would normally trigger, but we are inside the 2h
	// cooldown window.
	state := m.Check(101.2, 90, 110)
	assert.False(t, state.NeedsRecenter)
	assert.InDelta(t, 2.0, state.CooldownRemainingHours, 1e-9)

	// The latch was still armed during the cooldown: after the window the
	// reentry threshold applies.
	m.now = func() time.Time { return base.Add(3 * time.Hour) }
	state = m.Check(100.5, 90, 110)
	assert.True(t, state.NeedsRecenter)
}

func TestMarkRecenteredResetsLatch(t *testing.T) {
	m := newTestMonitor()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	state := m.Check(101.2, 90, 110)
	assert.True(t, state.NeedsRecenter)

	m.MarkRecentered()
	m.now = func() time.Time { return base.Add(5 * time.Hour) }

	// 0.5% is above reentry but the latch was reset, and 0.5% < 1% trigger.
	state = m.Check(100.5, 90, 110)
	assert.False(t, state.NeedsRecenter)
	assert.Equal(t, base, state.LastRecenterTime)
}

func TestReset(t *testing.T) {
	m := newTestMonitor()
	m.MarkRecentered()
	m.Reset()

	state := m.Check(100, 90, 110)
	assert.True(t, state.LastRecenterTime.IsZero())
	assert.Zero(t, state.CooldownRemainingHours)
}
