package dispatch

import (
	"time"

	"github.com/Veraticus/irc-away-ntfy/pkg/config"
	"github.com/Veraticus/irc-away-ntfy/pkg/notification"
	"github.com/Veraticus/irc-away-ntfy/pkg/source"
)

// BuildNotification turns an inbound message into the record handed to
// the backend.
func BuildNotification(cfg *config.Config, msg source.Message, now time.Time) notification.Notification {
	n := notification.Notification{
		Title:   cfg.Notifier.Title,
		Message: msg.Target + ": " + msg.Text,
		Time:    now,
	}
	if link := notification.ReplyLink(cfg.Reply, msg.Network, msg.Target); link != "" {
		n.URL = link
		n.URLTitle = notification.ReplyLinkTitle
	}
	return n
}
