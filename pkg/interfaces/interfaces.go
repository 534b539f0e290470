// Package interfaces defines the core interfaces used throughout the application.
package interfaces

import (
	"github.com/Veraticus/irc-away-ntfy/pkg/idle"
)

// IdleOracle reports how long the user has been away.
type IdleOracle interface {
	Compute() idle.State
}

// RateLimiter limits notification frequency.
type RateLimiter interface {
	Allow() bool
}
