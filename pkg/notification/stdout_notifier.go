package notification

import (
	"context"
	"fmt"
	"io"
	"os"
)

// StdoutNotifier prints notifications instead of delivering them. It backs
// the --dry-run flag.
type StdoutNotifier struct {
	w io.Writer
}

// NewStdoutNotifier creates a notifier writing to w, or stdout when w is nil.
func NewStdoutNotifier(w io.Writer) *StdoutNotifier {
	if w == nil {
		w = os.Stdout
	}
	return &StdoutNotifier{w: w}
}

// Send prints the notification
func (n *StdoutNotifier) Send(_ context.Context, notification Notification) error {
	if notification.URL != "" {
		_, err := fmt.Fprintf(n.w, "[NOTIFICATION] %s: %s (%s: %s)\n",
			notification.Title, notification.Message, notification.URLTitle, notification.URL)
		return err
	}
	_, err := fmt.Fprintf(n.w, "[NOTIFICATION] %s: %s\n", notification.Title, notification.Message)
	return err
}
