package delta

import (
	"math"
	"sort"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

// ReconcilerConfig holds the tunable parameters for hedge reconciliation.
type ReconcilerConfig struct {
	// TolerancePct is the max acceptable |difference| / lp_balance deviation,
	// in percent, before a token counts as drifted.
	TolerancePct float64
	// ValueThresholdPct marks a suggestion as required when its USD value is
	// at least this percentage of total capital.
	ValueThresholdPct float64
	// PriorityFirst orders required suggestions before optional ones instead
	// of the default stable sort by token symbol.
	PriorityFirst bool
}

// Reconciler compares LP exposure with hedge-venue shorts and produces one
// HedgeSuggestion per token.
type Reconciler struct {
	cfg ReconcilerConfig
}

// NewReconciler creates a Reconciler with the given config.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	return &Reconciler{cfg: cfg}
}

// Reconcile unions the tokens of both exposure maps and classifies each one.
//
// Once any token's deviation exceeds tolerance, every token with a nonzero
// difference is reclassified as needing its full adjustment, even tokens
// individually within tolerance. Partial rebalancing is disallowed once any
// material drift is detected, so the book is not re-touched token by token
// on consecutive cycles.
//
// prices maps canonical symbols to USD marks and may be nil; totalCapital
// may be 0. Without both, priority stays PriorityUnknown and adjustment
// values are reported as 0.
func (r *Reconciler) Reconcile(
	lp, hedge domain.Exposure,
	prices map[string]float64,
	totalCapital float64,
) []domain.HedgeSuggestion {
	tokens := unionTokens(lp, hedge)

	suggestions := make([]domain.HedgeSuggestion, 0, len(tokens))
	anyBreach := false

	for _, token := range tokens {
		lpBal := lp[token]
		shortBal := hedge[token]
		diff := lpBal - shortBal

		var diffPct float64
		switch {
		case lpBal > 0:
			diffPct = math.Abs(diff/lpBal) * 100
		case shortBal > 0:
			diffPct = 100
		default:
			diffPct = 0
		}

		s := domain.HedgeSuggestion{
			Token:         token,
			LPBalance:     lpBal,
			ShortBalance:  shortBal,
			Difference:    diff,
			DifferencePct: diffPct,
		}

		if diffPct <= r.cfg.TolerancePct {
			s.Status = domain.StatusBalanced
			s.Action = domain.ActionNone
		} else {
			anyBreach = true
			classifyDrift(&s)
		}

		suggestions = append(suggestions, s)
	}

	// All-or-nothing: one breach forces full adjustment everywhere there is
	// drift, including tokens that individually sit inside tolerance.
	if anyBreach {
		for i := range suggestions {
			if suggestions[i].Action == domain.ActionNone && suggestions[i].Difference != 0 {
				classifyDrift(&suggestions[i])
			}
		}
	}

	for i := range suggestions {
		r.classifyPriority(&suggestions[i], prices, totalCapital)
	}

	if r.cfg.PriorityFirst {
		sortPriorityFirst(suggestions)
	}

	return suggestions
}

// classifyDrift sets status, action, and adjustment from the sign of the
// difference.
func classifyDrift(s *domain.HedgeSuggestion) {
	if s.Difference > 0 {
		s.Status = domain.StatusUnderHedged
		s.Action = domain.ActionIncreaseShort
	} else {
		s.Status = domain.StatusOverHedged
		s.Action = domain.ActionDecreaseShort
	}
	s.AdjustmentAmount = math.Abs(s.Difference)
}

// classifyPriority fills AdjustmentValueUSD and Priority. Suggestions without
// an adjustment are never required. Missing price or capital context yields
// PriorityUnknown instead of silently passing as optional.
func (r *Reconciler) classifyPriority(
	s *domain.HedgeSuggestion,
	prices map[string]float64,
	totalCapital float64,
) {
	if s.Action == domain.ActionNone {
		s.Priority = domain.PriorityOptional
		return
	}

	price := prices[s.Token]
	if price <= 0 || totalCapital <= 0 {
		s.Priority = domain.PriorityUnknown
		return
	}

	s.AdjustmentValueUSD = s.AdjustmentAmount * price
	if s.AdjustmentValueUSD/totalCapital*100 >= r.cfg.ValueThresholdPct {
		s.Priority = domain.PriorityRequired
	} else {
		s.Priority = domain.PriorityOptional
	}
}

// unionTokens returns the sorted union of token keys from both maps. The
// sort keeps output ordering stable across cycles.
func unionTokens(lp, hedge domain.Exposure) []string {
	seen := make(map[string]struct{}, len(lp)+len(hedge))
	for t := range lp {
		seen[t] = struct{}{}
	}
	for t := range hedge {
		seen[t] = struct{}{}
	}
	tokens := make([]string, 0, len(seen))
	for t := range seen {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}

// sortPriorityFirst stably moves required suggestions ahead of optional and
// unknown ones, preserving the symbol order inside each group.
func sortPriorityFirst(suggestions []domain.HedgeSuggestion) {
	rank := func(p domain.Priority) int {
		switch p {
		case domain.PriorityRequired:
			return 0
		case domain.PriorityUnknown:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		return rank(suggestions[i].Priority) < rank(suggestions[j].Priority)
	})
}

// Summary counts suggestions per status. Balanced tokens stay in the result
// list but are excluded from "needs adjustment" totals.
type Summary struct {
	Balanced    int
	UnderHedged int
	OverHedged  int
}

// Summarize tallies a suggestion list.
func Summarize(suggestions []domain.HedgeSuggestion) Summary {
	var sum Summary
	for _, s := range suggestions {
		switch s.Status {
		case domain.StatusUnderHedged:
			sum.UnderHedged++
		case domain.StatusOverHedged:
			sum.OverHedged++
		default:
			sum.Balanced++
		}
	}
	return sum
}
