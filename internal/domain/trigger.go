package domain

import "time"

// TriggerState is the outcome of one trigger-monitor cycle. It is a value
// snapshot; the hysteresis latch itself lives inside the monitor.
type TriggerState struct {
	NeedsRecenter          bool
	DeviationPct           float64 // deviation from range center, in percent
	CurrentPrice           float64
	RangeLower             float64
	RangeUpper             float64
	LastRecenterTime       time.Time // zero if never recentered
	CooldownRemainingHours float64
	Reason                 string
}
