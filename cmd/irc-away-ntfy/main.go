package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/Veraticus/irc-away-ntfy/pkg/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("irc-away-ntfy", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configPath string
		logLevel   string
		dryRun     bool
		once       bool
		help       bool
	)
	fs.StringVar(&configPath, "config", "", "Path to config file")
	fs.StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	fs.BoolVar(&dryRun, "dry-run", false, "Print notifications to stdout instead of sending them")
	fs.BoolVar(&once, "once", false, "Evaluate the newest message once and exit")
	fs.BoolVarP(&help, "help", "h", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if help {
		printUsage(stdout, fs)
		return 0
	}

	if configPath == "" {
		configPath = config.Path()
	}

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		if errors.Is(err, config.ErrInvalid) {
			fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		} else {
			fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		}
		return 1
	}

	deps, err := NewDependencies(cfg, Options{
		ConfigPath: configPath,
		DryRun:     dryRun,
		LogLevel:   logLevel,
		Stdout:     stdout,
		Stderr:     stderr,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error creating dependencies: %v\n", err)
		return 1
	}
	defer deps.Close()

	app := NewApplication(deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if once {
		if err := app.RunOnce(ctx); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "irc-away-ntfy - forward IRC highlights while you are away")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: irc-away-ntfy [OPTIONS]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprint(w, fs.FlagUsages())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment Variables:")
	fmt.Fprintln(w, "  IRC_NOTIFY_CONFIG         Path to config file")
	fmt.Fprintln(w, "  IRC_NOTIFY_PLUGIN         Notification backend (pushover, email)")
	fmt.Fprintln(w, "  IRC_NOTIFY_IDLE           Idle threshold in seconds (default: 60)")
	fmt.Fprintln(w, "  IRC_NOTIFY_POLL_INTERVAL  Poll interval in seconds (default: 1)")
	fmt.Fprintln(w, "  IRC_NOTIFY_DIR            Directory holding idle, force_idle and notify.log")
	fmt.Fprintln(w, "  IRC_NOTIFY_LOG_LEVEL      Log level (default: info)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Configuration file: ~/.config/irc-away-ntfy/config.yaml")
}
