package delta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

func newTestReconciler(tolerance float64) *Reconciler {
	return NewReconciler(ReconcilerConfig{
		TolerancePct:      tolerance,
		ValueThresholdPct: 1.0,
	})
}

func bySymbol(t *testing.T, suggestions []domain.HedgeSuggestion, token string) domain.HedgeSuggestion {
	t.Helper()
	for _, s := range suggestions {
		if s.Token == token {
			return s
		}
	}
	t.Fatalf("no suggestion for token %s", token)
	return domain.HedgeSuggestion{}
}

func TestReconcileBalanced(t *testing.T) {
	r := newTestReconciler(5.0)

	out := r.Reconcile(
		domain.Exposure{"ETH": 1.5, "BTC": 0.02},
		domain.Exposure{"ETH": 1.5, "BTC": 0.02},
		nil, 0,
	)

	require.Len(t, out, 2)
	for _, s := range out {
		assert.Equal(t, domain.StatusBalanced, s.Status)
		assert.Equal(t, domain.ActionNone, s.Action)
		assert.Zero(t, s.AdjustmentAmount)
	}
}

func TestReconcileShortWithoutLP(t *testing.T) {
	r := newTestReconciler(5.0)

	out := r.Reconcile(
		domain.Exposure{},
		domain.Exposure{"SOL": 10},
		nil, 0,
	)

	require.Len(t, out, 1)
	s := out[0]
	assert.Equal(t, 100.0, s.DifferencePct)
	assert.Equal(t, domain.StatusOverHedged, s.Status)
	assert.Equal(t, domain.ActionDecreaseShort, s.Action)
	assert.Equal(t, 10.0, s.AdjustmentAmount)
}

func TestReconcileBothZeroIsBalanced(t *testing.T) {
	r := newTestReconciler(5.0)

	out := r.Reconcile(
		domain.Exposure{"ETH": 0},
		domain.Exposure{"ETH": 0},
		nil, 0,
	)

	require.Len(t, out, 1)
	assert.Equal(t, domain.StatusBalanced, out[0].Status)
	assert.Equal(t, domain.ActionNone, out[0].Action)
	assert.Zero(t, out[0].DifferencePct)
}

func TestReconcileUnderHedged(t *testing.T) {
	r := newTestReconciler(5.0)

	out := r.Reconcile(
		domain.Exposure{"ETH": 2.0},
		domain.Exposure{"ETH": 1.0},
		nil, 0,
	)

	require.Len(t, out, 1)
	s := out[0]
	assert.Equal(t, domain.StatusUnderHedged, s.Status)
	assert.Equal(t, domain.ActionIncreaseShort, s.Action)
	assert.InDelta(t, 1.0, s.AdjustmentAmount, 1e-12)
	assert.InDelta(t, 50.0, s.DifferencePct, 1e-12)
}

// One breach forces adjustment on every token with nonzero drift, but a
// token whose difference is exactly zero stays action none.
func TestReconcileAllOrNothing(t *testing.T) {
	r := newTestReconciler(5.0)

	out := r.Reconcile(
		domain.Exposure{"BTC": 0.0004, "ETH": 0.0125, "SOL": 100.0},
		domain.Exposure{"BTC": 0.0004, "ETH": 0.0133, "SOL": 99.0},
		nil, 0,
	)
	require.Len(t, out, 3)

	eth := bySymbol(t, out, "ETH")
	assert.Equal(t, domain.StatusOverHedged, eth.Status)
	assert.Equal(t, domain.ActionDecreaseShort, eth.Action)
	assert.InDelta(t, 0.0008, eth.AdjustmentAmount, 1e-9)
	assert.InDelta(t, 6.4, eth.DifferencePct, 1e-9)

	// SOL drift is 1% — inside tolerance on its own, still forced.
	sol := bySymbol(t, out, "SOL")
	assert.Equal(t, domain.ActionIncreaseShort, sol.Action)
	assert.InDelta(t, 1.0, sol.AdjustmentAmount, 1e-9)

	// BTC has exactly zero difference: nothing to adjust even under the
	// all-or-nothing trigger.
	btc := bySymbol(t, out, "BTC")
	assert.Equal(t, domain.ActionNone, btc.Action)
	assert.Zero(t, btc.AdjustmentAmount)
}

func TestReconcileNoBreachLeavesSmallDriftAlone(t *testing.T) {
	r := newTestReconciler(5.0)

	out := r.Reconcile(
		domain.Exposure{"ETH": 100.0},
		domain.Exposure{"ETH": 99.0},
		nil, 0,
	)

	require.Len(t, out, 1)
	assert.Equal(t, domain.StatusBalanced, out[0].Status)
	assert.Equal(t, domain.ActionNone, out[0].Action)
}

func TestReconcilePriority(t *testing.T) {
	r := NewReconciler(ReconcilerConfig{TolerancePct: 5, ValueThresholdPct: 1})

	prices := map[string]float64{"ETH": 2500, "DOGE": 0.1}
	out := r.Reconcile(
		domain.Exposure{"ETH": 2.0, "DOGE": 100},
		domain.Exposure{"ETH": 1.0, "DOGE": 50},
		prices,
		100_000,
	)

	// ETH adjustment is worth $2500 = 2.5% of capital → required.
	eth := bySymbol(t, out, "ETH")
	assert.Equal(t, domain.PriorityRequired, eth.Priority)
	assert.InDelta(t, 2500.0, eth.AdjustmentValueUSD, 1e-9)

	// DOGE adjustment is worth $5 → optional.
	doge := bySymbol(t, out, "DOGE")
	assert.Equal(t, domain.PriorityOptional, doge.Priority)
}

func TestReconcilePriorityUnknownWithoutContext(t *testing.T) {
	r := newTestReconciler(5.0)

	out := r.Reconcile(
		domain.Exposure{"ETH": 2.0},
		domain.Exposure{"ETH": 1.0},
		nil, 0,
	)

	require.Len(t, out, 1)
	assert.Equal(t, domain.PriorityUnknown, out[0].Priority)
	assert.Zero(t, out[0].AdjustmentValueUSD)
}

func TestReconcileStableTokenOrder(t *testing.T) {
	r := newTestReconciler(5.0)

	out := r.Reconcile(
		domain.Exposure{"SOL": 1, "BTC": 1, "ETH": 1},
		domain.Exposure{"AVAX": 1},
		nil, 0,
	)

	got := make([]string, 0, len(out))
	for _, s := range out {
		got = append(got, s.Token)
	}
	assert.Equal(t, []string{"AVAX", "BTC", "ETH", "SOL"}, got)
}

func TestReconcilePriorityFirstOrdering(t *testing.T) {
	r := NewReconciler(ReconcilerConfig{
		TolerancePct:      5,
		ValueThresholdPct: 1,
		PriorityFirst:     true,
	})

	prices := map[string]float64{"ETH": 2500, "DOGE": 0.1}
	out := r.Reconcile(
		domain.Exposure{"DOGE": 100, "ETH": 2.0},
		domain.Exposure{"DOGE": 50, "ETH": 1.0},
		prices,
		100_000,
	)

	require.Len(t, out, 2)
	assert.Equal(t, "ETH", out[0].Token)
	assert.Equal(t, domain.PriorityRequired, out[0].Priority)
}

func TestSummarize(t *testing.T) {
	sum := Summarize([]domain.HedgeSuggestion{
		{Status: domain.StatusBalanced},
		{Status: domain.StatusUnderHedged},
		{Status: domain.StatusUnderHedged},
		{Status: domain.StatusOverHedged},
	})
	assert.Equal(t, Summary{Balanced: 1, UnderHedged: 2, OverHedged: 1}, sum)
}
