package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/deadlinewatch/internal/cache/redis"
	"github.com/alanyoungcy/deadlinewatch/internal/config"
	"github.com/alanyoungcy/deadlinewatch/internal/domain"
	"github.com/alanyoungcy/deadlinewatch/internal/notify"
	"github.com/alanyoungcy/deadlinewatch/internal/pipeline"
	"github.com/alanyoungcy/deadlinewatch/internal/platform/polymarket"
	"github.com/alanyoungcy/deadlinewatch/internal/platform/subgraph"
)

// Dependencies bundles what the modes need. It is constructed by Wire and
// torn down by the returned cleanup function.
type Dependencies struct {
	Source  pipeline.PageSource
	Fetcher *pipeline.Fetcher

	// Cross-cycle state. Backed by Redis when enabled, otherwise process-local
	// dedup and no cycle lock.
	Dedup domain.AlertDedup
	Lock  domain.CycleLock

	Notifier *notify.Notifier
}

// needsRedis returns true for modes that run repeated cycles.
func needsRedis(cfg *config.Config) bool {
	switch strings.ToLower(cfg.Mode) {
	case "watch", "full":
		return cfg.Redis.Enabled
	default:
		return false
	}
}

// Wire constructs every dependency from cfg and returns them together with a
// cleanup function that releases them.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Market source ---
	switch cfg.Source.Kind {
	case "subgraph":
		deps.Source = subgraph.NewClient(cfg.Source.SubgraphURL, cfg.Source.SubgraphAPIKey, cfg.Source.RequestTimeout.Duration)
	default:
		deps.Source = polymarket.NewGammaClient(cfg.Source.GammaHost, cfg.Source.RequestTimeout.Duration)
	}
	deps.Fetcher = pipeline.NewFetcher(deps.Source, logger.With(slog.String("component", "fetcher")))

	// --- Redis ---
	if needsRedis(cfg) {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Dedup = redis.NewAlertDedup(redisClient)
		deps.Lock = redis.NewCycleLock(redisClient)
	} else {
		deps.Dedup = notify.NewMemoryDedup()
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
