// Package dispatch runs the polling loop that decides when an inbound IRC
// message should be forwarded to the user.
package dispatch

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Veraticus/irc-away-ntfy/pkg/config"
	"github.com/Veraticus/irc-away-ntfy/pkg/interfaces"
	"github.com/Veraticus/irc-away-ntfy/pkg/logx"
	"github.com/Veraticus/irc-away-ntfy/pkg/notification"
	"github.com/Veraticus/irc-away-ntfy/pkg/source"
)

const defaultQueueSize = 8

// MessageSource reports new messages since a modification-time cursor.
type MessageSource interface {
	Poll(cursor time.Time) (*source.Message, time.Time, error)
}

// Loop evaluates idle state and the message log once per tick and hands
// notifications to a single delivery worker.
//
// The cursor is owned by the goroutine calling Evaluate; it advances every
// time the log advances, whether or not anything is delivered, so a
// message is never considered twice.
type Loop struct {
	config   func() *config.Config
	oracle   interfaces.IdleOracle
	source   MessageSource
	notifier notification.Notifier
	log      logx.Logger
	now      func() time.Time

	cursor time.Time

	queueSize int
}

// NewLoop creates a dispatch loop. current is read on every tick so a
// reloaded threshold or poll interval applies without restart.
func NewLoop(current func() *config.Config, oracle interfaces.IdleOracle, src MessageSource, notifier notification.Notifier, log logx.Logger) *Loop {
	return &Loop{
		config:    current,
		oracle:    oracle,
		source:    src,
		notifier:  notifier,
		log:       log,
		now:       time.Now,
		queueSize: defaultQueueSize,
	}
}

// Cursor returns the last observed modification time of the message log.
func (l *Loop) Cursor() time.Time { return l.cursor }

// SetCursor replaces the cursor. It must not be called while Run is active.
func (l *Loop) SetCursor(t time.Time) { l.cursor = t }

// Evaluate runs one tick: it reads the idle state, polls the message log
// and returns the notification to deliver, if any.
func (l *Loop) Evaluate() (*notification.Notification, bool) {
	cfg := l.config()
	state := l.oracle.Compute()

	msg, next, err := l.source.Poll(l.cursor)
	l.cursor = next

	var perr *source.ParseError
	switch {
	case errors.Is(err, source.ErrUnavailable):
		l.log.Warn("message log unavailable", logx.Err(err))
		return nil, false
	case errors.As(err, &perr):
		l.log.Warn("skipping malformed message line", logx.String("line", perr.Line))
		return nil, false
	case err != nil:
		l.log.Error("polling message log failed", logx.Err(err))
		return nil, false
	case msg == nil:
		return nil, false
	}

	threshold := cfg.Notifier.Idle.Duration()
	if !state.Exceeds(threshold) {
		l.log.Debug("user active, suppressing notification",
			logx.String("idle", state.String()),
			logx.Duration("threshold", threshold),
			logx.String("target", msg.Target),
		)
		return nil, false
	}

	n := BuildNotification(cfg, *msg, l.now())
	l.log.Debug("user idle, notifying",
		logx.String("idle", state.String()),
		logx.String("network", msg.Network),
		logx.String("target", msg.Target),
	)
	return &n, true
}

// Deliver sends n through the notifier. Failures are logged and swallowed:
// the message is already behind the cursor and is never retried.
func (l *Loop) Deliver(ctx context.Context, n notification.Notification) {
	err := l.notifier.Send(ctx, n)
	switch {
	case err == nil:
	case errors.Is(err, notification.ErrRateLimited):
		l.log.Warn("notification dropped by rate limit", logx.String("title", n.Title))
	default:
		l.log.Error("notification delivery failed", logx.Err(err))
	}
}

// Tick evaluates once and delivers synchronously.
func (l *Loop) Tick(ctx context.Context) {
	if n, ok := l.Evaluate(); ok {
		l.Deliver(ctx, *n)
	}
}

// Run ticks on the configured poll interval until ctx is cancelled. wake,
// which may be nil, triggers an extra tick immediately (e.g. on a file
// system event). Deliveries run on a separate worker so a slow backend
// never delays idle evaluation; when the worker falls behind, new
// notifications are dropped rather than queued indefinitely.
func (l *Loop) Run(ctx context.Context, wake <-chan struct{}) error {
	queue := make(chan notification.Notification, l.queueSize)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.worker(ctx, queue)
	}()
	defer func() {
		close(queue)
		wg.Wait()
	}()

	interval := l.config().Notifier.PollInterval.Duration()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.log.Info("dispatch loop started", logx.Duration("poll_interval", interval))

	for {
		if n, ok := l.Evaluate(); ok {
			select {
			case queue <- *n:
			default:
				l.log.Warn("delivery queue full, dropping notification", logx.String("title", n.Title))
			}
		}

		if next := l.config().Notifier.PollInterval.Duration(); next != interval {
			interval = next
			ticker.Reset(interval)
			l.log.Info("poll interval changed", logx.Duration("poll_interval", interval))
		}

		select {
		case <-ctx.Done():
			l.log.Info("dispatch loop stopping")
			return nil
		case <-ticker.C:
		case _, ok := <-wake:
			if !ok {
				wake = nil
			}
		}
	}
}

func (l *Loop) worker(ctx context.Context, queue <-chan notification.Notification) {
	for n := range queue {
		if ctx.Err() != nil {
			continue
		}
		l.deliverSafe(ctx, n)
	}
}

func (l *Loop) deliverSafe(ctx context.Context, n notification.Notification) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("panic in delivery worker",
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())),
			)
		}
	}()
	l.Deliver(ctx, n)
}
