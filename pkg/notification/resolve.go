package notification

import (
	"fmt"

	"github.com/Veraticus/irc-away-ntfy/pkg/config"
)

// Resolve returns the backend named by cfg.Notifier.Plugin. It is called
// for every delivery so a reloaded config takes effect immediately.
func Resolve(cfg *config.Config) (Notifier, error) {
	switch cfg.Notifier.Plugin {
	case config.PluginPushover:
		return NewPushoverClient(cfg.Pushover.Endpoint, cfg.Pushover.AppToken, cfg.Pushover.UserAPIKey), nil
	case config.PluginEmail:
		return NewEmailNotifier(cfg.Email), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownBackend, cfg.Notifier.Plugin)
	}
}
