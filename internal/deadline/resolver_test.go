package deadline

import (
	"testing"
	"time"

	"github.com/alanyoungcy/deadlinewatch/internal/domain"
)

func events(endDates ...string) domain.Optional[[]domain.EventRecord] {
	evs := make([]domain.EventRecord, 0, len(endDates))
	for _, d := range endDates {
		evs = append(evs, domain.EventRecord{EndDate: domain.Some(d)})
	}
	return domain.Some(evs)
}

func TestResolve_PicksEarliestCandidate(t *testing.T) {
	rec := domain.RawMarket{
		ID:      domain.Some("m1"),
		EndDate: domain.Some("2025-06-01T00:00:00Z"),
		Events:  events("2025-05-01T00:00:00Z"),
	}
	got, ok := ResolveDeadline(rec)
	if !ok {
		t.Fatal("expected a deadline")
	}
	want := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	if !got.At.Equal(want) || got.Source != domain.SourceEventEndDate {
		t.Fatalf("got %v from %s, want %v from event", got.At, got.Source, want)
	}
}

func TestResolve_SkipsMalformedCandidates(t *testing.T) {
	rec := domain.RawMarket{
		EndDate: domain.Some("2025-06-01T00:00:00Z"),
		Events:  events("not-a-date"),
	}
	res := Resolve(rec)
	got, ok := res.Chosen.Get()
	if !ok {
		t.Fatal("expected a deadline")
	}
	if got.Source != domain.SourceMarketEndDate {
		t.Errorf("source = %s", got.Source)
	}
	if len(res.Rejected) != 1 || res.Rejected[0].Raw != "not-a-date" {
		t.Errorf("rejected = %+v", res.Rejected)
	}
}

func TestResolve_TieKeepsFirstCollected(t *testing.T) {
	rec := domain.RawMarket{
		EndDate: domain.Some("2025-05-01T02:00:00+02:00"),
		Events:  events("2025-05-01T00:00:00Z"),
	}
	got, _ := ResolveDeadline(rec)
	if got.Source != domain.SourceEventEndDate {
		t.Fatalf("tie resolved to %s, want event", got.Source)
	}
}

func TestResolve_ConditionWinsOutright(t *testing.T) {
	rec := domain.RawMarket{
		EndDate: domain.Some("2020-01-01T00:00:00Z"),
		Condition: domain.Some(domain.ConditionRecord{
			ResolutionTime: domain.Some("1767225600"), // 2026-01-01
		}),
	}
	got, ok := ResolveDeadline(rec)
	if !ok || got.Source != domain.SourceConditionResolutionTime {
		t.Fatalf("got %+v, %v", got, ok)
	}
	if !got.At.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("at = %v", got.At)
	}
}

func TestResolve_BadConditionFallsBack(t *testing.T) {
	rec := domain.RawMarket{
		EndDate:   domain.Some("2025-01-01T00:00:00Z"),
		Condition: domain.Some(domain.ConditionRecord{ResolutionTime: domain.Some("0")}),
	}
	res := Resolve(rec)
	got, ok := res.Chosen.Get()
	if !ok || got.Source != domain.SourceMarketEndDate {
		t.Fatalf("got %+v, %v", got, ok)
	}
	if len(res.Rejected) != 1 {
		t.Errorf("rejected = %d, want 1", len(res.Rejected))
	}
}

func TestResolve_Undated(t *testing.T) {
	cases := map[string]domain.RawMarket{
		"no fields":   {ID: domain.Some("x")},
		"all garbage": {EndDate: domain.Some("soon"), Events: events("", "tomorrow")},
		"empty event": {Events: domain.Some([]domain.EventRecord{{}})},
	}
	for name, rec := range cases {
		if _, ok := ResolveDeadline(rec); ok {
			t.Errorf("%s: expected undated", name)
		}
	}
}

func TestParseISO(t *testing.T) {
	want := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	ok := []string{
		"2025-03-04T05:06:07Z",
		"2025-03-04T05:06:07z",
		"2025-03-04T05:06:07+00:00",
		"2025-03-04T07:06:07+02:00",
		"2025-03-04T00:06:07-0500",
		"2025-03-04 05:06:07+00:00",
		" 2025-03-04T05:06:07.000Z ",
	}
	for _, raw := range ok {
		c, err := ParseISO(domain.SourceMarketEndDate, raw)
		if err != nil {
			t.Errorf("%q: %v", raw, err)
			continue
		}
		if !c.At.Equal(want) || c.At.Location() != time.UTC {
			t.Errorf("%q: got %v", raw, c.At)
		}
	}

	bad := []string{"", "2025-03-04", "2025-03-04T05:06:07", "yesterday", "1741064767"}
	for _, raw := range bad {
		if _, err := ParseISO(domain.SourceMarketEndDate, raw); err == nil {
			t.Errorf("%q: expected error", raw)
		}
	}
}
