package main

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/Veraticus/irc-away-ntfy/pkg/config"
	"github.com/Veraticus/irc-away-ntfy/pkg/dispatch"
	"github.com/Veraticus/irc-away-ntfy/pkg/idle"
	"github.com/Veraticus/irc-away-ntfy/pkg/interfaces"
	"github.com/Veraticus/irc-away-ntfy/pkg/logx"
	"github.com/Veraticus/irc-away-ntfy/pkg/notification"
	"github.com/Veraticus/irc-away-ntfy/pkg/source"
)

// Options carries the command line settings that are not part of the
// config file.
type Options struct {
	ConfigPath string
	DryRun     bool
	LogLevel   string
	Stdout     io.Writer
	Stderr     io.Writer
}

// Dependencies holds all the dependencies for the application
type Dependencies struct {
	Config              *config.Config
	Store               *config.Store
	Logging             *logx.Service
	Log                 logx.Logger
	IdleOracle          interfaces.IdleOracle
	Source              *source.Log
	RateLimiter         interfaces.RateLimiter
	NotificationManager *notification.Manager
	Loop                *dispatch.Loop

	opts  Options
	color bool
}

// NewDependencies creates all dependencies with the given configuration
func NewDependencies(cfg *config.Config, opts Options) (*Dependencies, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	deps := &Dependencies{
		Config: cfg,
		opts:   opts,
	}
	if f, ok := opts.Stderr.(*os.File); ok {
		deps.color = isatty.IsTerminal(f.Fd())
	}

	svc, log, err := logx.New(deps.logConfig(cfg), opts.Stderr)
	if err != nil {
		return nil, err
	}
	deps.Logging = svc
	deps.Log = log

	deps.Store = config.NewStore(opts.ConfigPath, cfg, log.With(logx.String("component", "config")))

	// Paths and the rate limit bucket are fixed at startup; everything
	// else is read from the store on each tick or delivery.
	deps.IdleOracle = idle.NewOracle(cfg.Paths.IdlePath(), cfg.Paths.ForcePath(), log.With(logx.String("component", "idle")))
	deps.Source = source.NewLog(cfg.Paths.MessageLogPath())
	deps.RateLimiter = notification.NewTokenBucketRateLimiter(cfg.Notifier.RateLimit.MaxMessages, cfg.Notifier.RateLimit.Window.Duration())

	resolve := notification.ResolverFunc(notification.Resolve)
	if opts.DryRun {
		stdout := notification.NewStdoutNotifier(opts.Stdout)
		resolve = func(*config.Config) (notification.Notifier, error) { return stdout, nil }
	}

	deps.NotificationManager = notification.NewManager(deps.Store.Get, resolve, deps.RateLimiter, log.With(logx.String("component", "notify")))
	deps.Loop = dispatch.NewLoop(deps.Store.Get, deps.IdleOracle, deps.Source, deps.NotificationManager, log.With(logx.String("component", "dispatch")))

	return deps, nil
}

func (d *Dependencies) logConfig(cfg *config.Config) logx.Config {
	level := cfg.Log.Level
	if d.opts.LogLevel != "" {
		level = d.opts.LogLevel
	}
	return logx.Config{Level: level, File: cfg.Log.File, Color: d.color}
}

// Close cleans up all dependencies
func (d *Dependencies) Close() {
	if d.Logging != nil {
		_ = d.Logging.Close()
	}
}

// Application represents the main application
type Application struct {
	deps *Dependencies
}

// NewApplication creates a new application with the given dependencies
func NewApplication(deps *Dependencies) *Application {
	return &Application{
		deps: deps,
	}
}

// Run watches the config file and the message log and runs the dispatch
// loop until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	log := a.deps.Log
	cfg := a.deps.Store.Get()

	log.Info("irc-away-ntfy starting",
		logx.String("plugin", cfg.Notifier.Plugin),
		logx.Bool("dry_run", a.deps.opts.DryRun),
		logx.String("idle_file", cfg.Paths.IdlePath()),
		logx.String("log_file", cfg.Paths.MessageLogPath()),
		logx.Duration("idle_threshold", cfg.Notifier.Idle.Duration()),
	)

	go func() {
		if err := a.deps.Store.Watch(ctx); err != nil {
			log.Warn("config hot reload disabled", logx.Err(err))
		}
	}()
	go a.applyReloads(ctx, a.deps.Store.Subscribe(1))

	wake, err := a.deps.Source.Watch(ctx)
	if err != nil {
		log.Warn("message log watch unavailable, polling only", logx.String("path", a.deps.Source.Path()), logx.Err(err))
		wake = nil
	}

	notifyReady(ctx, log)
	defer notifyStopping(log)

	return a.deps.Loop.Run(ctx, wake)
}

// RunOnce treats the newest logged message as unseen, evaluates it once
// and delivers synchronously.
func (a *Application) RunOnce(ctx context.Context) error {
	a.deps.Loop.SetCursor(time.Unix(0, 0))
	n, ok := a.deps.Loop.Evaluate()
	if !ok {
		a.deps.Log.Info("nothing to deliver")
		return nil
	}
	err := a.deps.NotificationManager.Send(ctx, *n)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *Application) applyReloads(ctx context.Context, reloads <-chan *config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg := <-reloads:
			notifyReloading(a.deps.Log)
			if err := a.deps.Logging.Apply(a.deps.logConfig(cfg)); err != nil {
				a.deps.Log.Warn("log settings not applied", logx.Err(err))
			}
			notifyReady(ctx, a.deps.Log)
		}
	}
}
