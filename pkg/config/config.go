package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted by notifier.plugin.
const (
	PluginPushover = "pushover"
	PluginEmail    = "email"
)

// DefaultPushoverEndpoint is the Pushover message API.
const DefaultPushoverEndpoint = "https://api.pushover.net/1/messages.json"

// ErrInvalid marks configuration errors. They are fatal at startup.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all configuration for irc-away-ntfy
type Config struct {
	Notifier NotifierConfig `yaml:"notifier"`
	Email    EmailConfig    `yaml:"email"`
	Pushover PushoverConfig `yaml:"pushover"`
	Reply    ReplyConfig    `yaml:"reply"`
	Paths    PathsConfig    `yaml:"paths"`
	Log      LogConfig      `yaml:"log"`
}

// NotifierConfig controls backend selection and dispatch timing.
type NotifierConfig struct {
	Plugin       string          `yaml:"plugin" env:"IRC_NOTIFY_PLUGIN"`
	Title        string          `yaml:"title"`
	Idle         Seconds         `yaml:"idle" env:"IRC_NOTIFY_IDLE"`
	PollInterval Seconds         `yaml:"poll_interval" env:"IRC_NOTIFY_POLL_INTERVAL"`
	Timeout      Seconds         `yaml:"timeout"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Window      Seconds `yaml:"window"`
	MaxMessages int     `yaml:"max_messages"`
}

// EmailConfig configures the SMTP backend. SMTPHost is host or host:port.
type EmailConfig struct {
	SMTPHost   string `yaml:"smtp_host"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	FromEmail  string `yaml:"from_email"`
	ToEmail    string `yaml:"to_email"`
	DebugLevel int    `yaml:"debuglevel"`
}

// PushoverConfig configures the push backend.
type PushoverConfig struct {
	AppToken   string `yaml:"app_token"`
	UserAPIKey string `yaml:"user_api_key"`
	Endpoint   string `yaml:"endpoint"`
}

// ReplyConfig is used to build the optional reply deep-link.
type ReplyConfig struct {
	Server string `yaml:"server"`
	Secret string `yaml:"secret"`
}

// PathsConfig locates the signal files and the message log written by the
// IRC client side.
type PathsConfig struct {
	Dir       string `yaml:"dir" env:"IRC_NOTIFY_DIR"`
	IdleFile  string `yaml:"idle_file"`
	ForceFile string `yaml:"force_file"`
	LogFile   string `yaml:"log_file"`
}

// LogConfig configures the daemon's own logging.
type LogConfig struct {
	Level string `yaml:"level" env:"IRC_NOTIFY_LOG_LEVEL"`
	File  string `yaml:"file"`
}

// IdlePath returns the measured idle-seconds signal file.
func (p PathsConfig) IdlePath() string { return p.resolve(p.IdleFile) }

// ForcePath returns the force-idle override file.
func (p PathsConfig) ForcePath() string { return p.resolve(p.ForceFile) }

// MessageLogPath returns the append-only message log.
func (p PathsConfig) MessageLogPath() string { return p.resolve(p.LogFile) }

func (p PathsConfig) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.Dir, name)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	dir := ".irc-away-ntfy"
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".irc-away-ntfy")
	}

	return &Config{
		Notifier: NotifierConfig{
			Plugin:       PluginPushover,
			Title:        "IRC",
			Idle:         Seconds(60 * time.Second),
			PollInterval: Seconds(time.Second),
			Timeout:      Seconds(15 * time.Second),
			RateLimit: RateLimitConfig{
				Window:      Seconds(time.Minute),
				MaxMessages: 10,
			},
		},
		Pushover: PushoverConfig{
			Endpoint: DefaultPushoverEndpoint,
		},
		Paths: PathsConfig{
			Dir:       dir,
			IdleFile:  "idle",
			ForceFile: "force_idle",
			LogFile:   "notify.log",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the default file location and environment.
func Load() (*Config, error) {
	return LoadFile(Path())
}

// LoadFile loads configuration from path (a missing file means defaults),
// applies environment overrides and validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Path returns the config file path
func Path() string {
	if path := os.Getenv("IRC_NOTIFY_CONFIG"); path != "" {
		return path
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "irc-away-ntfy", "config.yaml")
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "irc-away-ntfy", "config.yaml")
	}

	return ""
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, path string) error {
	// #nosec G304 - The config file path comes from trusted sources (flag, env var or standard locations)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) error {
	if plugin := os.Getenv("IRC_NOTIFY_PLUGIN"); plugin != "" {
		cfg.Notifier.Plugin = plugin
	}

	if idle := os.Getenv("IRC_NOTIFY_IDLE"); idle != "" {
		d, err := ParseSeconds(idle)
		if err != nil {
			return fmt.Errorf("invalid IRC_NOTIFY_IDLE: %w", err)
		}
		cfg.Notifier.Idle = Seconds(d)
	}

	if poll := os.Getenv("IRC_NOTIFY_POLL_INTERVAL"); poll != "" {
		d, err := ParseSeconds(poll)
		if err != nil {
			return fmt.Errorf("invalid IRC_NOTIFY_POLL_INTERVAL: %w", err)
		}
		cfg.Notifier.PollInterval = Seconds(d)
	}

	if dir := os.Getenv("IRC_NOTIFY_DIR"); dir != "" {
		cfg.Paths.Dir = dir
	}

	if level := os.Getenv("IRC_NOTIFY_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	return nil
}

// Validate checks the configuration. Every failure wraps ErrInvalid.
func Validate(cfg *Config) error {
	if err := validate(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func validate(cfg *Config) error {
	switch cfg.Notifier.Plugin {
	case PluginPushover:
		if cfg.Pushover.AppToken == "" || cfg.Pushover.UserAPIKey == "" {
			return fmt.Errorf("pushover.app_token and pushover.user_api_key are required for plugin %q", PluginPushover)
		}
		if cfg.Pushover.Endpoint == "" {
			return fmt.Errorf("pushover.endpoint must not be empty")
		}
	case PluginEmail:
		if cfg.Email.SMTPHost == "" {
			return fmt.Errorf("email.smtp_host is required for plugin %q", PluginEmail)
		}
		if cfg.Email.FromEmail == "" || cfg.Email.ToEmail == "" {
			return fmt.Errorf("email.from_email and email.to_email are required for plugin %q", PluginEmail)
		}
		if cfg.Email.User == "" || cfg.Email.Password == "" {
			return fmt.Errorf("email.user and email.password are required for plugin %q", PluginEmail)
		}
	case "":
		return fmt.Errorf("notifier.plugin is required")
	default:
		return fmt.Errorf("unknown notifier.plugin %q (use %s or %s)", cfg.Notifier.Plugin, PluginPushover, PluginEmail)
	}

	if cfg.Notifier.PollInterval.Duration() <= 0 {
		return fmt.Errorf("notifier.poll_interval must be positive")
	}

	if cfg.Notifier.Idle < 0 {
		return fmt.Errorf("notifier.idle must be non-negative")
	}

	if cfg.Notifier.Timeout < 0 {
		return fmt.Errorf("notifier.timeout must be non-negative")
	}

	if cfg.Notifier.RateLimit.MaxMessages < 0 {
		return fmt.Errorf("notifier.rate_limit.max_messages must be non-negative")
	}

	if cfg.Notifier.RateLimit.Window < 0 {
		return fmt.Errorf("notifier.rate_limit.window must be non-negative")
	}

	if strings.TrimSpace(cfg.Paths.Dir) == "" {
		return fmt.Errorf("paths.dir must not be empty")
	}

	if (cfg.Reply.Server == "") != (cfg.Reply.Secret == "") {
		return fmt.Errorf("reply.server and reply.secret must be set together")
	}

	return nil
}

// Seconds is a duration that decodes from either a bare number of seconds
// ("60", "1.5") or a Go duration string ("90s").
type Seconds time.Duration

// Duration returns s as a time.Duration.
func (s Seconds) Duration() time.Duration { return time.Duration(s) }

// Float returns s in fractional seconds.
func (s Seconds) Float() float64 { return time.Duration(s).Seconds() }

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Seconds) UnmarshalYAML(value *yaml.Node) error {
	d, err := ParseSeconds(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*s = Seconds(d)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Seconds) MarshalYAML() (interface{}, error) {
	return time.Duration(s).String(), nil
}

// ParseSeconds parses a number of seconds or a Go duration string.
func ParseSeconds(raw string) (time.Duration, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	return d, nil
}
