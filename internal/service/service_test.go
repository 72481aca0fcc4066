package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/deadlinewatch/internal/deadline"
	"github.com/alanyoungcy/deadlinewatch/internal/domain"
	"github.com/alanyoungcy/deadlinewatch/internal/notify"
	"github.com/alanyoungcy/deadlinewatch/internal/pipeline"
)

var cycleAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type stubFetcher struct {
	res   pipeline.FetchResult
	calls int
}

func (f *stubFetcher) FetchAllPages(context.Context, int, int) pipeline.FetchResult {
	f.calls++
	return f.res
}

func market(id, question string, in time.Duration) domain.RawMarket {
	return domain.RawMarket{
		ID:       domain.Some(id),
		Question: domain.Some(question),
		EndDate:  domain.Some(cycleAt.Add(in).Format(time.RFC3339)),
	}
}

func newScan(res pipeline.FetchResult, opts ScanOptions) (*ScanService, *stubFetcher) {
	f := &stubFetcher{res: res}
	s := NewScanService(f, opts, discard())
	s.now = func() time.Time { return cycleAt }
	return s, f
}

func TestScanService_RanksAndCuts(t *testing.T) {
	s, _ := newScan(pipeline.FetchResult{
		Records: []domain.RawMarket{
			market("late", "BTC late", 50*time.Hour),
			market("past", "BTC past", -time.Hour),
			market("soon", "BTC soon", 30*time.Minute),
			market("mid", "ETH mid", 5*time.Hour),
			{ID: domain.Some("nodate")},
		},
		Stop: pipeline.StopShort,
	}, ScanOptions{Top: 1, Filter: deadline.Filter{Query: "btc"}})

	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.CycleID == "" || !rep.At.Equal(cycleAt) {
		t.Errorf("cycle id %q at %v", rep.CycleID, rep.At)
	}
	if rep.Summary.Active != 3 || rep.Summary.Expired != 1 || rep.Summary.Undated != 1 {
		t.Errorf("summary = %+v", rep.Summary)
	}
	if len(rep.Filtered) != 2 || rep.Filtered[0].Record.ID.OrElse("") != "soon" {
		t.Errorf("filtered = %+v", rep.Filtered)
	}
	if len(rep.Markets) != 1 {
		t.Errorf("top cut: %d markets", len(rep.Markets))
	}
}

func TestScanService_PartialFeedStillReports(t *testing.T) {
	s, _ := newScan(pipeline.FetchResult{
		Records:   []domain.RawMarket{market("a", "A", time.Hour)},
		Stop:      pipeline.StopTransport,
		Err:       domain.ErrTransport,
		Truncated: true,
	}, ScanOptions{})

	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("partial feed should not error: %v", err)
	}
	if !rep.Fetch.Truncated || rep.Fetch.Error == "" || rep.Summary.Active != 1 {
		t.Errorf("report = %+v", rep)
	}
}

func TestScanService_EmptyFailedFeedErrors(t *testing.T) {
	s, _ := newScan(pipeline.FetchResult{
		Stop:      pipeline.StopStatus,
		Err:       fmt.Errorf("%w: HTTP 500", domain.ErrUpstreamStatus),
		Truncated: true,
	}, ScanOptions{})

	if _, err := s.Run(context.Background()); !errors.Is(err, domain.ErrUpstreamStatus) {
		t.Fatalf("err = %v", err)
	}
}

type captureNotifier struct {
	msgs []notify.Message
	err  error
}

func (n *captureNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.msgs = append(n.msgs, msg)
	return n.err
}

func resolved(id string, hours float64) domain.ResolvedMarket {
	return domain.ResolvedMarket{
		Record: domain.RawMarket{ID: domain.Some(id), Slug: domain.Some(id + "-slug")},
		Deadline: domain.DeadlineCandidate{
			Source: domain.SourceMarketEndDate,
			At:     cycleAt.Add(time.Duration(hours * float64(time.Hour))),
		},
		HoursRemaining: hours,
	}
}

func TestAlertService_OncePerThreshold(t *testing.T) {
	n := &captureNotifier{}
	svc := NewAlertService([]time.Duration{time.Hour, 10 * time.Minute}, notify.NewMemoryDedup(), n, discard())
	ctx := context.Background()

	first := Report{At: cycleAt, Filtered: []domain.ResolvedMarket{resolved("m", 0.75), resolved("far", 3)}}
	if sent := svc.Evaluate(ctx, first); sent != 1 {
		t.Fatalf("first cycle sent %d", sent)
	}
	if !strings.Contains(n.msgs[0].Title, "1h") || !strings.Contains(n.msgs[0].Body, "m-slug") {
		t.Errorf("message = %+v", n.msgs[0])
	}

	// Same market, same threshold: nothing new.
	if sent := svc.Evaluate(ctx, first); sent != 0 {
		t.Fatalf("repeat cycle sent %d", sent)
	}

	// Crossing the tighter threshold alerts again, once.
	closer := Report{At: cycleAt, Filtered: []domain.ResolvedMarket{resolved("m", 0.1)}}
	if sent := svc.Evaluate(ctx, closer); sent != 1 {
		t.Fatalf("tighter threshold sent %d", sent)
	}
	if !strings.Contains(n.msgs[1].Title, "10m") {
		t.Errorf("title = %q", n.msgs[1].Title)
	}
	if sent := svc.Evaluate(ctx, closer); sent != 0 {
		t.Fatalf("repeat tighter sent %d", sent)
	}
}

func TestAlertService_FarFutureDeadlineIsNotAlerted(t *testing.T) {
	s, _ := newScan(pipeline.FetchResult{
		Records: []domain.RawMarket{{
			ID:       domain.Some("placeholder"),
			Question: domain.Some("Placeholder market"),
			EndDate:  domain.Some("9999-12-31T23:59:59Z"),
		}},
		Stop: pipeline.StopShort,
	}, ScanOptions{})
	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Filtered) != 1 || rep.Filtered[0].HoursRemaining < 1e7 {
		t.Fatalf("filtered = %+v", rep.Filtered)
	}

	n := &captureNotifier{}
	svc := NewAlertService([]time.Duration{time.Hour, 10 * time.Minute}, notify.NewMemoryDedup(), n, discard())
	if sent := svc.Evaluate(context.Background(), rep); sent != 0 || len(n.msgs) != 0 {
		t.Fatalf("sent=%d msgs=%+v", sent, n.msgs)
	}
}

func TestAlertService_TruncationNotice(t *testing.T) {
	n := &captureNotifier{}
	svc := NewAlertService([]time.Duration{time.Hour}, notify.NewMemoryDedup(), n, discard())

	rep := Report{Fetch: FetchStats{Truncated: true, Stop: pipeline.StopStatus, Records: 500, Error: "HTTP 503"}}
	svc.Evaluate(context.Background(), rep)
	svc.Evaluate(context.Background(), rep)

	if len(n.msgs) != 1 || n.msgs[0].Event != notify.EventTruncated {
		t.Fatalf("msgs = %+v", n.msgs)
	}
}

func TestAlertService_DeliveryFailureIsNotFatal(t *testing.T) {
	n := &captureNotifier{err: errors.New("telegram down")}
	svc := NewAlertService([]time.Duration{time.Hour}, notify.NewMemoryDedup(), n, discard())

	rep := Report{At: cycleAt, Filtered: []domain.ResolvedMarket{resolved("a", 0.5), resolved("b", 0.6)}}
	if sent := svc.Evaluate(context.Background(), rep); sent != 0 {
		t.Errorf("sent = %d", sent)
	}
	if len(n.msgs) != 2 {
		t.Errorf("attempts = %d, want 2", len(n.msgs))
	}
}

type stubLock struct {
	err      error
	released int
}

func (l *stubLock) Acquire(context.Context, string, time.Duration) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	return func() { l.released++ }, nil
}

func TestWatchService_RunCycle(t *testing.T) {
	scan, fetcher := newScan(pipeline.FetchResult{
		Records: []domain.RawMarket{market("a", "A", 5*time.Minute)},
	}, ScanOptions{})
	n := &captureNotifier{}
	alerts := NewAlertService([]time.Duration{10 * time.Minute}, notify.NewMemoryDedup(), n, discard())

	var reports []Report
	lock := &stubLock{}
	w := NewWatchService(scan, alerts, lock, time.Minute, func(r Report) { reports = append(reports, r) }, discard())

	if !w.RunCycle(context.Background()) {
		t.Fatal("cycle skipped")
	}
	if len(reports) != 1 || len(n.msgs) != 1 || lock.released != 1 {
		t.Errorf("reports=%d alerts=%d released=%d", len(reports), len(n.msgs), lock.released)
	}

	lock.err = domain.ErrLockHeld
	if w.RunCycle(context.Background()) {
		t.Error("cycle should be skipped while the lock is held")
	}
	if fetcher.calls != 1 {
		t.Errorf("fetch calls = %d", fetcher.calls)
	}

	lock.err = errors.New("redis: connection refused")
	if !w.RunCycle(context.Background()) {
		t.Error("cycle should run unlocked when the lock backend fails")
	}
	if fetcher.calls != 2 {
		t.Errorf("fetch calls = %d, want 2", fetcher.calls)
	}
}
