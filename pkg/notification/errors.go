package notification

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownBackend is returned by Resolve for an unrecognised
	// notifier.plugin value.
	ErrUnknownBackend = errors.New("unknown notifier backend")
	// ErrRateLimited is returned by Manager.Send when the notification was
	// dropped by the rate limiter.
	ErrRateLimited = errors.New("notification rate limited")
)

// DeliveryError wraps any connection, authentication or API failure of a
// backend.
type DeliveryError struct {
	Backend string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed: %v", e.Backend, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
