package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const envPrefix = "DEADLINEWATCH_"

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies DEADLINEWATCH_* environment variable overrides,
// and returns the final Config. A missing file, or an empty path, leaves the
// defaults in place. The returned Config has NOT been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		default:
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				keys := make([]string, len(undecoded))
				for i, k := range undecoded {
					keys[i] = k.String()
				}
				return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
			}
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known DEADLINEWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set.
func applyEnvOverrides(cfg *Config) {
	// ── Source ──
	setStr(&cfg.Source.Kind, "SOURCE_KIND")
	setStr(&cfg.Source.GammaHost, "SOURCE_GAMMA_HOST")
	setStr(&cfg.Source.SubgraphURL, "SOURCE_SUBGRAPH_URL")
	setStr(&cfg.Source.SubgraphAPIKey, "SOURCE_SUBGRAPH_API_KEY")
	setInt(&cfg.Source.PageSize, "SOURCE_PAGE_SIZE")
	setInt(&cfg.Source.MaxPages, "SOURCE_MAX_PAGES")
	setDuration(&cfg.Source.RequestTimeout, "SOURCE_REQUEST_TIMEOUT")

	// ── Relay ──
	setInt(&cfg.Relay.Port, "RELAY_PORT")
	setStr(&cfg.Relay.Upstream, "RELAY_UPSTREAM")
	setStr(&cfg.Relay.Prefix, "RELAY_PREFIX")
	setDuration(&cfg.Relay.RequestTimeout, "RELAY_REQUEST_TIMEOUT")

	// ── Scan ──
	setInt(&cfg.Scan.Top, "SCAN_TOP")
	setStr(&cfg.Scan.Query, "SCAN_QUERY")
	setFloat64(&cfg.Scan.MaxHours, "SCAN_MAX_HOURS")
	setFloat64(&cfg.Scan.MinLiquidity, "SCAN_MIN_LIQUIDITY")
	setFloat64(&cfg.Scan.MinVolume, "SCAN_MIN_VOLUME")
	setStr(&cfg.Scan.Output, "SCAN_OUTPUT")

	// ── Watch ──
	setStr(&cfg.Watch.Schedule, "WATCH_SCHEDULE")
	setBool(&cfg.Watch.RunOnStart, "WATCH_RUN_ON_START")
	setDuration(&cfg.Watch.LockTTL, "WATCH_LOCK_TTL")

	// ── Alert ──
	setBool(&cfg.Alert.Enabled, "ALERT_ENABLED")
	setDurationSlice(&cfg.Alert.Thresholds, "ALERT_THRESHOLDS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "REDIS_ADDR")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "REDIS_KEY_PREFIX")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MODE")
	setStr(&cfg.LogLevel, "LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the prefixed
// environment variable is present and non-empty.
// ---------------------------------------------------------------------------

func lookup(key string) string {
	return os.Getenv(envPrefix + key)
}

func setStr(dst *string, key string) {
	if v := lookup(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := lookup(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := lookup(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := lookup(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := lookup(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setDurationSlice(dst *[]duration, key string) {
	var parts []string
	setStringSlice(&parts, key)
	if len(parts) == 0 {
		return
	}
	out := make([]duration, 0, len(parts))
	for _, p := range parts {
		d, err := time.ParseDuration(p)
		if err != nil {
			return
		}
		out = append(out, duration{d})
	}
	*dst = out
}

func setStringSlice(dst *[]string, key string) {
	if v := lookup(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
