package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alanyoungcy/deadlinewatch/internal/domain"
)

const cycleLockKey = "scan-cycle"

// WatchService runs one scan cycle per tick and hands each report to the
// alert service and an optional sink.
type WatchService struct {
	scan    *ScanService
	alerts  *AlertService    // nil disables alerts
	lock    domain.CycleLock // nil runs every cycle locally
	lockTTL time.Duration
	sink    func(Report)
	logger  *slog.Logger
}

// NewWatchService creates a WatchService.
func NewWatchService(scan *ScanService, alerts *AlertService, lock domain.CycleLock, lockTTL time.Duration, sink func(Report), logger *slog.Logger) *WatchService {
	return &WatchService{
		scan:    scan,
		alerts:  alerts,
		lock:    lock,
		lockTTL: lockTTL,
		sink:    sink,
		logger:  logger,
	}
}

// RunCycle executes one watch cycle. It returns false when the cycle was
// skipped because another process holds the cycle lock.
func (w *WatchService) RunCycle(ctx context.Context) bool {
	if w.lock != nil {
		release, err := w.lock.Acquire(ctx, cycleLockKey, w.lockTTL)
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			w.logger.InfoContext(ctx, "watch_service: cycle held elsewhere, skipping")
			return false
		case err != nil:
			w.logger.WarnContext(ctx, "watch_service: cycle lock unavailable, running unlocked",
				slog.String("error", err.Error()),
			)
		default:
			defer release()
		}
	}

	rep, err := w.scan.Run(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "watch_service: scan failed",
			slog.String("cycle_id", rep.CycleID),
			slog.String("error", err.Error()),
		)
		return true
	}
	if w.sink != nil {
		w.sink(rep)
	}
	if w.alerts != nil {
		w.alerts.Evaluate(ctx, rep)
	}
	return true
}
