// Package idle computes how long the user has been away from their machine
// from the signal files written by the remote reporting agent.
package idle

import (
	"math"
	"strconv"
	"time"
)

// State is an idle duration in seconds. The two sentinels compare greater
// and less than any real threshold.
type State float64

const (
	// MaxIdle is reported when no usable signal exists or the override
	// forces the user idle.
	MaxIdle = State(math.MaxFloat64)
	// NeverIdle is reported when the override forces the user active.
	NeverIdle = State(-math.MaxFloat64)
)

// Seconds returns the state as fractional seconds.
func (s State) Seconds() float64 { return float64(s) }

// Exceeds reports whether the user has been idle longer than threshold.
func (s State) Exceeds(threshold time.Duration) bool {
	return float64(s) > threshold.Seconds()
}

func (s State) String() string {
	switch s {
	case MaxIdle:
		return "max-idle"
	case NeverIdle:
		return "never-idle"
	default:
		return strconv.FormatFloat(float64(s), 'f', 1, 64) + "s"
	}
}
