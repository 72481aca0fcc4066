package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/deadlinewatch/internal/deadline"
	"github.com/alanyoungcy/deadlinewatch/internal/domain"
	"github.com/alanyoungcy/deadlinewatch/internal/pipeline"
)

// PageFetcher accumulates every reachable page of the feed.
type PageFetcher interface {
	FetchAllPages(ctx context.Context, pageSize, maxPages int) pipeline.FetchResult
}

// ScanOptions shapes one scan cycle.
type ScanOptions struct {
	PageSize int
	MaxPages int
	Top      int // 0 keeps every matching market
	Filter   deadline.Filter
}

// FetchStats summarises the pagination run behind a report.
type FetchStats struct {
	Records   int                 `json:"records"`
	Pages     int                 `json:"pages"`
	Stop      pipeline.StopReason `json:"stop"`
	Truncated bool                `json:"truncated"`
	Error     string              `json:"error,omitempty"`
}

// Report is the outcome of one scan cycle.
type Report struct {
	CycleID  string
	At       time.Time
	Fetch    FetchStats
	Summary  deadline.Summary
	Filtered []domain.ResolvedMarket // active markets passing the filter, soonest first
	Markets  []domain.ResolvedMarket // Filtered cut to the top N
}

// ScanService runs scan cycles: fetch, resolve, classify at a single instant,
// filter and rank.
type ScanService struct {
	fetcher PageFetcher
	opts    ScanOptions
	now     func() time.Time
	logger  *slog.Logger
}

// NewScanService creates a ScanService.
func NewScanService(fetcher PageFetcher, opts ScanOptions, logger *slog.Logger) *ScanService {
	return &ScanService{
		fetcher: fetcher,
		opts:    opts,
		now:     time.Now,
		logger:  logger,
	}
}

// Run executes one cycle. Partial feeds still produce a report; an error is
// returned only when the feed failed before yielding a single record.
func (s *ScanService) Run(ctx context.Context) (Report, error) {
	cycleID := uuid.NewString()
	log := s.logger.With(slog.String("cycle_id", cycleID))

	res := s.fetcher.FetchAllPages(ctx, s.opts.PageSize, s.opts.MaxPages)
	rep := Report{
		CycleID: cycleID,
		Fetch: FetchStats{
			Records:   len(res.Records),
			Pages:     res.Pages,
			Stop:      res.Stop,
			Truncated: res.Truncated,
		},
	}
	if res.Err != nil {
		rep.Fetch.Error = res.Err.Error()
	}
	if res.Truncated {
		log.WarnContext(ctx, "scan_service: feed truncated, report is partial",
			slog.String("stop", string(res.Stop)),
			slog.Int("records", len(res.Records)),
			slog.Any("error", res.Err),
		)
	}
	if len(res.Records) == 0 && res.Err != nil {
		return rep, fmt.Errorf("scan_service: fetch: %w", res.Err)
	}

	// Every record of a cycle is classified against the same instant.
	rep.At = s.now().UTC()
	snap := deadline.Classify(res.Records, rep.At)
	rep.Summary = snap.Summary

	rep.Filtered = s.opts.Filter.Apply(snap.Active)
	rep.Markets = rep.Filtered
	if s.opts.Top > 0 && len(rep.Markets) > s.opts.Top {
		rep.Markets = rep.Markets[:s.opts.Top]
	}

	log.InfoContext(ctx, "scan_service: cycle complete",
		slog.Int("total", snap.Summary.Total),
		slog.Int("active", snap.Summary.Active),
		slog.Int("expired", snap.Summary.Expired),
		slog.Int("undated", snap.Summary.Undated),
		slog.Int("rejected_fields", snap.Summary.Rejected),
		slog.Int("within_24h", snap.Summary.Within24h),
		slog.Int("matched", len(rep.Filtered)),
	)
	return rep, nil
}
