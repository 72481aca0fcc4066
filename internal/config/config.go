// Package config defines the deadlinewatch configuration and its validation.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alanyoungcy/deadlinewatch/internal/platform/polymarket"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by DEADLINEWATCH_* environment variables.
type Config struct {
	Source   SourceConfig `toml:"source"`
	Relay    RelayConfig  `toml:"relay"`
	Scan     ScanConfig   `toml:"scan"`
	Watch    WatchConfig  `toml:"watch"`
	Alert    AlertConfig  `toml:"alert"`
	Redis    RedisConfig  `toml:"redis"`
	Notify   NotifyConfig `toml:"notify"`
	Mode     string       `toml:"mode"`
	LogLevel string       `toml:"log_level"`
}

// SourceConfig selects and tunes the market feed.
type SourceConfig struct {
	// Kind is "gamma" (REST, default) or "subgraph" (GraphQL with on-chain
	// resolution times).
	Kind           string   `toml:"kind"`
	GammaHost      string   `toml:"gamma_host"`
	SubgraphURL    string   `toml:"subgraph_url"`
	SubgraphAPIKey string   `toml:"subgraph_api_key"`
	PageSize       int      `toml:"page_size"`
	MaxPages       int      `toml:"max_pages"`
	RequestTimeout duration `toml:"request_timeout"`
}

// RelayConfig holds the CORS relay parameters.
type RelayConfig struct {
	Port           int      `toml:"port"`
	Upstream       string   `toml:"upstream"`
	Prefix         string   `toml:"prefix"`
	RequestTimeout duration `toml:"request_timeout"`
}

// ScanConfig shapes the report of a scan cycle.
type ScanConfig struct {
	Top          int     `toml:"top"` // 0 lists every active market
	Query        string  `toml:"query"`
	MaxHours     float64 `toml:"max_hours"`
	MinLiquidity float64 `toml:"min_liquidity"`
	MinVolume    float64 `toml:"min_volume"`
	Output       string  `toml:"output"` // table or json
}

// WatchConfig schedules repeated scan cycles.
type WatchConfig struct {
	Schedule   string   `toml:"schedule"` // cron spec or descriptor such as "@every 5m"
	RunOnStart bool     `toml:"run_on_start"`
	LockTTL    duration `toml:"lock_ttl"`
}

// AlertConfig controls expiry notifications.
type AlertConfig struct {
	Enabled    bool       `toml:"enabled"`
	Thresholds []duration `toml:"thresholds"`
}

// RedisConfig holds Redis connection parameters. When disabled, alert dedup is
// process-local and cycles are not locked.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Durations unwraps a list of config durations.
func Durations(ds []duration) []time.Duration {
	out := make([]time.Duration, len(ds))
	for i, d := range ds {
		out[i] = d.Duration
	}
	return out
}

// Defaults returns a Config populated with the built-in defaults.
func Defaults() Config {
	return Config{
		Source: SourceConfig{
			Kind:           "gamma",
			GammaHost:      polymarket.DefaultGammaHost,
			PageSize:       500,
			MaxPages:       10,
			RequestTimeout: duration{30 * time.Second},
		},
		Relay: RelayConfig{
			Port:           3001,
			Upstream:       polymarket.DefaultGammaHost,
			Prefix:         "/api",
			RequestTimeout: duration{45 * time.Second},
		},
		Scan: ScanConfig{
			Top:    20,
			Output: "table",
		},
		Watch: WatchConfig{
			Schedule:   "@every 5m",
			RunOnStart: true,
			LockTTL:    duration{4 * time.Minute},
		},
		Alert: AlertConfig{
			Enabled:    true,
			Thresholds: []duration{{time.Hour}, {10 * time.Minute}},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
			KeyPrefix:  "deadlinewatch",
		},
		Notify: NotifyConfig{
			Events: []string{"deadline", "truncated"},
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"scan":  true,
	"watch": true,
	"relay": true,
	"full":  true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// SlogLevel maps LogLevel to a slog.Level, case-insensitively. Unknown
// values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, watch, relay, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Source
	switch c.Source.Kind {
	case "gamma":
		if c.Source.GammaHost == "" {
			errs = append(errs, "source: gamma_host must not be empty")
		}
	case "subgraph":
		if c.Source.SubgraphURL == "" {
			errs = append(errs, "source: subgraph_url is required when kind is subgraph")
		}
	default:
		errs = append(errs, fmt.Sprintf("source: unknown kind %q (valid: gamma, subgraph)", c.Source.Kind))
	}
	if c.Source.PageSize < 1 {
		errs = append(errs, "source: page_size must be >= 1")
	}
	if c.Source.MaxPages < 1 {
		errs = append(errs, "source: max_pages must be >= 1")
	}
	if c.Source.RequestTimeout.Duration <= 0 {
		errs = append(errs, "source: request_timeout must be > 0")
	}

	// Relay
	if c.runsRelay() {
		if c.Relay.Port <= 0 || c.Relay.Port > 65535 {
			errs = append(errs, fmt.Sprintf("relay: port must be 1-65535, got %d", c.Relay.Port))
		}
		if c.Relay.Upstream == "" {
			errs = append(errs, "relay: upstream must not be empty")
		}
		if !strings.HasPrefix(c.Relay.Prefix, "/") || strings.HasSuffix(c.Relay.Prefix, "/") {
			errs = append(errs, fmt.Sprintf("relay: prefix must start and not end with '/', got %q", c.Relay.Prefix))
		}
		if c.Relay.RequestTimeout.Duration <= 0 {
			errs = append(errs, "relay: request_timeout must be > 0")
		}
	}

	// Scan
	if c.Scan.Top < 0 {
		errs = append(errs, "scan: top must be >= 0")
	}
	if c.Scan.MaxHours < 0 || c.Scan.MinLiquidity < 0 || c.Scan.MinVolume < 0 {
		errs = append(errs, "scan: max_hours, min_liquidity and min_volume must be >= 0")
	}
	if c.Scan.Output != "table" && c.Scan.Output != "json" {
		errs = append(errs, fmt.Sprintf("scan: unknown output %q (valid: table, json)", c.Scan.Output))
	}

	// Watch
	if c.runsWatch() {
		if _, err := cron.ParseStandard(c.Watch.Schedule); err != nil {
			errs = append(errs, fmt.Sprintf("watch: invalid schedule %q: %v", c.Watch.Schedule, err))
		}
	}

	// Alert
	for _, th := range c.Alert.Thresholds {
		if th.Duration <= 0 {
			errs = append(errs, fmt.Sprintf("alert: threshold must be > 0, got %s", th.Duration))
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) runsRelay() bool {
	m := strings.ToLower(c.Mode)
	return m == "relay" || m == "full"
}

func (c *Config) runsWatch() bool {
	m := strings.ToLower(c.Mode)
	return m == "watch" || m == "full"
}
