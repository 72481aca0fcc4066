package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/alanyoungcy/deadlinewatch/internal/deadline"
	"github.com/alanyoungcy/deadlinewatch/internal/domain"
	"github.com/alanyoungcy/deadlinewatch/internal/notify"
)

// Notifier delivers one message to every configured channel.
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message) error
}

// dedupGrace keeps an alert key alive past the deadline it was raised for.
const dedupGrace = time.Hour

// AlertService raises a notification when an active market comes within a
// threshold of its deadline. Each (market, deadline, threshold) is sent once.
type AlertService struct {
	thresholds []time.Duration // ascending
	dedup      domain.AlertDedup
	notifier   Notifier
	logger     *slog.Logger
}

// NewAlertService creates an AlertService. Non-positive thresholds are
// ignored.
func NewAlertService(thresholds []time.Duration, dedup domain.AlertDedup, notifier Notifier, logger *slog.Logger) *AlertService {
	ts := make([]time.Duration, 0, len(thresholds))
	for _, t := range thresholds {
		if t > 0 {
			ts = append(ts, t)
		}
	}
	slices.Sort(ts)
	ts = slices.Compact(ts)
	return &AlertService{
		thresholds: ts,
		dedup:      dedup,
		notifier:   notifier,
		logger:     logger,
	}
}

// Evaluate checks every filtered market of rep and notifies for those inside
// a threshold. A market is reported against the tightest threshold it is
// within, so one approaching its deadline alerts once per threshold crossed.
// Delivery failures are logged and never returned; the count of markets
// alerted is.
func (s *AlertService) Evaluate(ctx context.Context, rep Report) int {
	if len(s.thresholds) == 0 {
		return 0
	}
	sent := 0
	for _, m := range rep.Filtered {
		// Sub saturates instead of wrapping for far-off deadlines.
		remaining := m.Deadline.At.Sub(rep.At)
		th, ok := s.tightest(remaining)
		if !ok {
			// Filtered is sorted, everything after is further out.
			break
		}

		key := alertKey(m, th)
		if !s.markOnce(ctx, key, remaining+dedupGrace) {
			continue
		}

		msg := notify.Message{
			Event: notify.EventDeadline,
			Title: fmt.Sprintf("Market closes within %s", shortDuration(th)),
			Body:  alertBody(m, rep.At),
		}
		if err := s.notifier.Notify(ctx, msg); err != nil {
			s.logger.WarnContext(ctx, "alert_service: delivery failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			continue
		}
		sent++
	}

	if rep.Fetch.Truncated && s.markOnce(ctx, "truncated:"+string(rep.Fetch.Stop), dedupGrace) {
		msg := notify.Message{
			Event: notify.EventTruncated,
			Title: "Market feed truncated",
			Body: fmt.Sprintf("Pagination stopped (%s) after %d records: %s",
				rep.Fetch.Stop, rep.Fetch.Records, rep.Fetch.Error),
		}
		if err := s.notifier.Notify(ctx, msg); err != nil {
			s.logger.WarnContext(ctx, "alert_service: truncation notice failed",
				slog.String("error", err.Error()),
			)
		}
	}

	if sent > 0 {
		s.logger.InfoContext(ctx, "alert_service: alerts sent",
			slog.String("cycle_id", rep.CycleID),
			slog.Int("count", sent),
		)
	}
	return sent
}

func (s *AlertService) tightest(remaining time.Duration) (time.Duration, bool) {
	for _, t := range s.thresholds {
		if remaining <= t {
			return t, true
		}
	}
	return 0, false
}

// markOnce reports whether key is new. A dedup backend error is logged and
// treated as new.
func (s *AlertService) markOnce(ctx context.Context, key string, ttl time.Duration) bool {
	fresh, err := s.dedup.MarkOnce(ctx, key, ttl)
	if err != nil {
		s.logger.WarnContext(ctx, "alert_service: dedup unavailable",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return true
	}
	return fresh
}

func alertKey(m domain.ResolvedMarket, th time.Duration) string {
	id := m.Record.ID.OrElse(m.Record.Label())
	return fmt.Sprintf("%s:%d:%s", id, m.Deadline.At.Unix(), th)
}

func alertBody(m domain.ResolvedMarket, now time.Time) string {
	var b strings.Builder
	b.WriteString(m.Record.Label())
	fmt.Fprintf(&b, "\nEnds %s (%s), from %s",
		m.Deadline.At.Format(time.RFC3339),
		humanize.RelTime(m.Deadline.At, now, "ago", "from now"),
		m.Deadline.Source,
	)
	if url := deadline.MarketURL(m.Record); url != "" {
		b.WriteString("\n" + url)
	}
	return b.String()
}

// shortDuration renders 1h0m0s as 1h and 10m0s as 10m.
func shortDuration(d time.Duration) string {
	s := d.String()
	if strings.HasSuffix(s, "m0s") {
		s = s[:len(s)-2]
	}
	if strings.HasSuffix(s, "h0m") {
		s = s[:len(s)-2]
	}
	return s
}
