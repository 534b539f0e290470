package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/irc-away-ntfy/pkg/config"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"IRC_NOTIFY_CONFIG", "IRC_NOTIFY_PLUGIN", "IRC_NOTIFY_IDLE",
		"IRC_NOTIFY_POLL_INTERVAL", "IRC_NOTIFY_DIR", "IRC_NOTIFY_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

// writeFixture creates a config file plus the signal and log files it
// points at, and returns the config path.
func writeFixture(t *testing.T, force, logLine string) string {
	t.Helper()
	dir := t.TempDir()

	cfg := `notifier:
  plugin: pushover
  title: IRC
  idle: 60
  poll_interval: 0.05
pushover:
  app_token: app
  user_api_key: user
paths:
  dir: ` + dir + `
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0600); err != nil {
		t.Fatal(err)
	}
	if force != "" {
		if err := os.WriteFile(filepath.Join(dir, "force_idle"), []byte(force), 0600); err != nil {
			t.Fatal(err)
		}
	}
	if logLine != "" {
		if err := os.WriteFile(filepath.Join(dir, "notify.log"), []byte(logLine+"\n"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestNewDependencies(t *testing.T) {
	clearEnv(t)
	cfg := config.DefaultConfig()
	cfg.Pushover.AppToken = "app"
	cfg.Pushover.UserAPIKey = "user"
	cfg.Paths.Dir = t.TempDir()

	var stderr bytes.Buffer
	deps, err := NewDependencies(cfg, Options{Stderr: &stderr})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer deps.Close()

	if deps.Config != cfg {
		t.Error("expected config to be set")
	}
	if deps.Store == nil || deps.Store.Get() != cfg {
		t.Error("expected store seeded with config")
	}
	if deps.IdleOracle == nil {
		t.Error("expected idle oracle to be created")
	}
	if deps.Source == nil || deps.Source.Path() != cfg.Paths.MessageLogPath() {
		t.Error("expected message source on the configured log path")
	}
	if deps.RateLimiter == nil {
		t.Error("expected rate limiter to be created")
	}
	if deps.NotificationManager == nil {
		t.Error("expected notification manager to be created")
	}
	if deps.Loop == nil {
		t.Error("expected dispatch loop to be created")
	}
}

func TestLogConfigPrefersFlag(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Log.Level = "warn"

	d := &Dependencies{}
	if got := d.logConfig(cfg).Level; got != "warn" {
		t.Errorf("level = %q, want warn", got)
	}

	d.opts.LogLevel = "debug"
	if got := d.logConfig(cfg).Level; got != "debug" {
		t.Errorf("level = %q, want debug", got)
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name       string
		args       func(t *testing.T) []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{
			name:       "help",
			args:       func(*testing.T) []string { return []string{"--help"} },
			wantCode:   0,
			wantStdout: "Usage: irc-away-ntfy",
		},
		{
			name:     "unknown flag",
			args:     func(*testing.T) []string { return []string{"--bogus"} },
			wantCode: 2,
		},
		{
			name: "invalid config is fatal",
			args: func(t *testing.T) []string {
				path := filepath.Join(t.TempDir(), "config.yaml")
				if err := os.WriteFile(path, []byte("notifier:\n  plugin: carrier-pigeon\n"), 0600); err != nil {
					t.Fatal(err)
				}
				return []string{"--config", path}
			},
			wantCode:   1,
			wantStderr: "Configuration error",
		},
		{
			name: "once delivers newest message when idle",
			args: func(t *testing.T) []string {
				return []string{"--config", writeFixture(t, "1", "irc #general <bob> hi"), "--dry-run", "--once"}
			},
			wantCode:   0,
			wantStdout: "[NOTIFICATION] IRC: #general: <bob> hi",
		},
		{
			name: "once suppresses when active",
			args: func(t *testing.T) []string {
				return []string{"--config", writeFixture(t, "2", "irc #general <bob> hi"), "--dry-run", "--once", "--log-level", "debug"}
			},
			wantCode:   0,
			wantStderr: "suppressing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			var stdout, stderr bytes.Buffer

			code := run(tt.args(t), &stdout, &stderr)

			if code != tt.wantCode {
				t.Errorf("run() = %d, want %d\nstderr: %s", code, tt.wantCode, stderr.String())
			}
			if tt.wantStdout != "" && !strings.Contains(stdout.String(), tt.wantStdout) {
				t.Errorf("stdout = %q, want it to contain %q", stdout.String(), tt.wantStdout)
			}
			if tt.wantStderr != "" && !strings.Contains(stderr.String(), tt.wantStderr) {
				t.Errorf("stderr = %q, want it to contain %q", stderr.String(), tt.wantStderr)
			}
			if tt.name == "once suppresses when active" && stdout.Len() != 0 {
				t.Errorf("unexpected delivery: %q", stdout.String())
			}
		})
	}
}

func TestApplicationRun(t *testing.T) {
	clearEnv(t)
	path := writeFixture(t, "1", "irc #old <carol> history")

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	stdout := &syncBuffer{}
	stderr := &syncBuffer{}
	deps, err := NewDependencies(cfg, Options{ConfigPath: path, DryRun: true, Stdout: stdout, Stderr: stderr})
	if err != nil {
		t.Fatal(err)
	}
	defer deps.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewApplication(deps).Run(ctx) }()

	// Wait for the first tick to adopt the existing log.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !strings.Contains(stderr.String(), "dispatch loop started") {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	logPath := cfg.Paths.MessageLogPath()
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("irc #general <bob> hi\n"); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	for time.Now().Before(deadline.Add(2*time.Second)) && !strings.Contains(stdout.String(), "<bob> hi") {
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	out := stdout.String()
	if strings.Count(out, "[NOTIFICATION]") != 1 || !strings.Contains(out, "<bob> hi") {
		t.Errorf("stdout = %q, want exactly one notification for <bob> hi", out)
	}
	if strings.Contains(out, "history") {
		t.Errorf("history replayed: %q", out)
	}
}
