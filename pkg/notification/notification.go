// Package notification delivers notifications to external channels.
package notification

import (
	"context"
	"time"
)

// Notification is built once per inbound message and never persisted.
type Notification struct {
	Title    string
	Message  string
	URL      string
	URLTitle string
	Time     time.Time
}

// Notifier sends notifications.
type Notifier interface {
	Send(ctx context.Context, notification Notification) error
}
