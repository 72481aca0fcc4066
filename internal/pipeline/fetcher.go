package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alanyoungcy/deadlinewatch/internal/domain"
)

const (
	DefaultPageSize = 500
	DefaultMaxPages = 10
)

// PageSource returns one page of market records at an offset.
type PageSource interface {
	FetchPage(ctx context.Context, limit, offset int) ([]domain.RawMarket, error)
}

// StopReason says why pagination ended.
type StopReason string

const (
	StopStatus    StopReason = "status"    // upstream returned a non-success status
	StopTransport StopReason = "transport" // network, timeout or decode failure
	StopCancelled StopReason = "cancelled"
	StopEmpty     StopReason = "empty"
	StopShort     StopReason = "short"
	StopMaxPages  StopReason = "max_pages"
)

// FetchResult is everything accumulated by one pagination run. Records from
// pages fetched before a failure are always kept.
type FetchResult struct {
	Records   []domain.RawMarket
	Pages     int // pages that returned records
	Stop      StopReason
	Err       error // the failure behind a status or transport stop
	Truncated bool  // the feed may hold more records than were fetched
}

// Fetcher walks a PageSource with offset pagination. It is sequential and
// best effort: a failing page ends the run but never discards earlier pages.
type Fetcher struct {
	source PageSource
	logger *slog.Logger
}

// NewFetcher creates a new Fetcher.
func NewFetcher(source PageSource, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		source: source,
		logger: logger,
	}
}

// FetchAllPages requests pages at offsets 0, pageSize, 2*pageSize... until a
// page fails, comes back empty or short, or maxPages pages were requested.
// Non-positive arguments fall back to DefaultPageSize and DefaultMaxPages.
func (f *Fetcher) FetchAllPages(ctx context.Context, pageSize, maxPages int) FetchResult {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var res FetchResult
	for page := 0; page < maxPages; page++ {
		offset := page * pageSize

		if err := ctx.Err(); err != nil {
			res.stopWith(StopCancelled, err)
			break
		}

		records, err := f.source.FetchPage(ctx, pageSize, offset)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrUpstreamStatus):
				res.stopWith(StopStatus, err)
			case ctx.Err() != nil:
				res.stopWith(StopCancelled, err)
			default:
				res.stopWith(StopTransport, err)
			}
			f.logger.Warn("page fetch failed",
				slog.Int("offset", offset),
				slog.String("stop", string(res.Stop)),
				slog.String("error", err.Error()),
			)
			break
		}

		if len(records) == 0 {
			res.Stop = StopEmpty
			break
		}

		res.Records = append(res.Records, records...)
		res.Pages++
		f.logger.Debug("fetched market page",
			slog.Int("offset", offset),
			slog.Int("page_size", len(records)),
			slog.Int("total", len(res.Records)),
		)

		if len(records) < pageSize {
			res.Stop = StopShort
			break
		}
	}
	if res.Stop == "" {
		res.Stop = StopMaxPages
	}

	f.logger.Info("market fetch complete",
		slog.Int("records", len(res.Records)),
		slog.Int("pages", res.Pages),
		slog.String("stop", string(res.Stop)),
		slog.Bool("truncated", res.Truncated),
	)
	return res
}

func (r *FetchResult) stopWith(reason StopReason, err error) {
	r.Stop = reason
	r.Err = err
	r.Truncated = true
}
