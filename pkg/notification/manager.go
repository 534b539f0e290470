package notification

import (
	"context"
	"errors"
	"time"

	"github.com/Veraticus/irc-away-ntfy/pkg/config"
	"github.com/Veraticus/irc-away-ntfy/pkg/interfaces"
	"github.com/Veraticus/irc-away-ntfy/pkg/logx"
)

// ResolverFunc picks the backend for a configuration.
type ResolverFunc func(cfg *config.Config) (Notifier, error)

// Manager routes each notification to the backend selected by the current
// configuration, applying the rate limit and the per-delivery timeout.
type Manager struct {
	config      func() *config.Config
	resolve     ResolverFunc
	rateLimiter interfaces.RateLimiter
	log         logx.Logger
}

// NewManager creates a new notification manager. current is read on every
// Send; rateLimiter may be nil.
func NewManager(current func() *config.Config, resolve ResolverFunc, rateLimiter interfaces.RateLimiter, log logx.Logger) *Manager {
	return &Manager{
		config:      current,
		resolve:     resolve,
		rateLimiter: rateLimiter,
		log:         log,
	}
}

// Send delivers one notification. Backend failures are returned as
// *DeliveryError, a dropped notification as ErrRateLimited.
func (m *Manager) Send(ctx context.Context, n Notification) error {
	cfg := m.config()

	if m.rateLimiter != nil && !m.rateLimiter.Allow() {
		return ErrRateLimited
	}

	backend, err := m.resolve(cfg)
	if err != nil {
		return err
	}

	if timeout := cfg.Notifier.Timeout.Duration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	if err := backend.Send(ctx, n); err != nil {
		var derr *DeliveryError
		if !errors.As(err, &derr) {
			err = &DeliveryError{Backend: cfg.Notifier.Plugin, Err: err}
		}
		return err
	}

	m.log.Info("notification delivered",
		logx.String("backend", cfg.Notifier.Plugin),
		logx.String("title", n.Title),
		logx.Duration("took", time.Since(start)),
	)
	return nil
}
