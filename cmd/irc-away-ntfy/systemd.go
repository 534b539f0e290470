package main

import (
	"context"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/Veraticus/irc-away-ntfy/pkg/logx"
)

// notifyReady reports readiness to systemd for Type=notify units and
// starts the watchdog keepalive when the unit configures one. Outside
// systemd it does nothing.
func notifyReady(ctx context.Context, log logx.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		log.Warn("sd_notify failed", logx.Err(err))
		return
	}
	if !sent {
		return
	}

	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return
	}
	watchdogOnce.Do(func() { go watchdog(ctx, interval/2) })
}

var watchdogOnce sync.Once

func watchdog(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}

func notifyReloading(log logx.Logger) {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReloading); err != nil {
		log.Debug("sd_notify reloading failed", logx.Err(err))
	}
}

func notifyStopping(log logx.Logger) {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		log.Debug("sd_notify stopping failed", logx.Err(err))
	}
}
