package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/deadlinewatch/internal/config"
	"github.com/alanyoungcy/deadlinewatch/internal/deadline"
	"github.com/alanyoungcy/deadlinewatch/internal/relay"
	"github.com/alanyoungcy/deadlinewatch/internal/report"
	"github.com/alanyoungcy/deadlinewatch/internal/server"
	"github.com/alanyoungcy/deadlinewatch/internal/service"
)

// ScanMode runs a single scan cycle, prints the report and returns.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	rep, err := a.newScanService(deps).Run(ctx)
	if err != nil {
		return fmt.Errorf("app: scan: %w", err)
	}
	return report.Write(a.out, rep, a.cfg.Scan.Output)
}

// WatchMode runs scan cycles on the configured schedule until ctx is
// cancelled, raising deadline alerts after each cycle.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting watch mode", slog.String("schedule", a.cfg.Watch.Schedule))
	return a.runWatch(ctx, a.newWatchService(deps))
}

// RelayMode serves the CORS relay until ctx is cancelled.
func (a *App) RelayMode(ctx context.Context, _ *Dependencies) error {
	a.logger.InfoContext(ctx, "starting relay mode", slog.Int("port", a.cfg.Relay.Port))
	return a.newServer().Run(ctx)
}

// FullMode runs the relay and the watch loop together. If either fails the
// other is cancelled.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	srv := a.newServer()
	watcher := a.newWatchService(deps)

	g.Go(func() error {
		return srv.Run(ctx)
	})
	g.Go(func() error {
		return a.runWatch(ctx, watcher)
	})

	return g.Wait()
}

// runWatch drives w from a cron schedule. Cycles never overlap: a tick that
// fires while the previous cycle is still running is skipped.
func (a *App) runWatch(ctx context.Context, w *service.WatchService) error {
	cronLog := cron.PrintfLogger(slog.NewLogLogger(a.logger.Handler(), slog.LevelWarn))
	c := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	if _, err := c.AddFunc(a.cfg.Watch.Schedule, func() { w.RunCycle(ctx) }); err != nil {
		return fmt.Errorf("app: watch schedule %q: %w", a.cfg.Watch.Schedule, err)
	}

	if a.cfg.Watch.RunOnStart {
		w.RunCycle(ctx)
	}
	c.Start()
	a.logger.InfoContext(ctx, "watch scheduler started")

	<-ctx.Done()
	// Wait for a running cycle to observe cancellation and return.
	<-c.Stop().Done()
	a.logger.Info("watch scheduler stopped")
	return nil
}

func (a *App) newScanService(deps *Dependencies) *service.ScanService {
	return service.NewScanService(deps.Fetcher, service.ScanOptions{
		PageSize: a.cfg.Source.PageSize,
		MaxPages: a.cfg.Source.MaxPages,
		Top:      a.cfg.Scan.Top,
		Filter: deadline.Filter{
			Query:        a.cfg.Scan.Query,
			MaxHours:     a.cfg.Scan.MaxHours,
			MinLiquidity: a.cfg.Scan.MinLiquidity,
			MinVolume:    a.cfg.Scan.MinVolume,
		},
	}, a.logger.With(slog.String("component", "scan")))
}

func (a *App) newWatchService(deps *Dependencies) *service.WatchService {
	var alerts *service.AlertService
	if a.cfg.Alert.Enabled {
		if !deps.Notifier.Enabled() {
			a.logger.Warn("alerts enabled but no notification channel is configured")
		}
		alerts = service.NewAlertService(
			config.Durations(a.cfg.Alert.Thresholds),
			deps.Dedup,
			deps.Notifier,
			a.logger.With(slog.String("component", "alerts")),
		)
	}

	sink := func(rep service.Report) {
		if err := report.Write(a.out, rep, a.cfg.Scan.Output); err != nil {
			a.logger.Error("write report", slog.String("error", err.Error()))
		}
	}

	return service.NewWatchService(
		a.newScanService(deps),
		alerts,
		deps.Lock,
		a.cfg.Watch.LockTTL.Duration,
		sink,
		a.logger.With(slog.String("component", "watch")),
	)
}

func (a *App) newServer() *server.Server {
	rl := relay.New(a.cfg.Relay.Upstream, a.cfg.Relay.Prefix, a.cfg.Relay.RequestTimeout.Duration, a.logger)
	return server.NewServer(server.Config{
		Port:   a.cfg.Relay.Port,
		Prefix: a.cfg.Relay.Prefix,
	}, rl, a.logger)
}
