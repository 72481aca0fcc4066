package deadline

import (
	"cmp"
	"slices"
	"time"

	"github.com/alanyoungcy/deadlinewatch/internal/domain"
)

// Horizon is a cumulative urgency window: a market belongs to every horizon
// whose bound is at or above its remaining hours.
type Horizon struct {
	Name  string
	Hours float64
}

var (
	Horizon24h = Horizon{Name: "24h", Hours: 24}
	Horizon3d  = Horizon{Name: "3d", Hours: 72}
	Horizon7d  = Horizon{Name: "7d", Hours: 168}
)

// Dated is a record with its resolved deadline. It does not depend on any
// instant; ResolvedMarket values are derived from it on demand.
type Dated struct {
	Record   domain.RawMarket
	Deadline domain.DeadlineCandidate
}

// At evaluates d against now.
func (d Dated) At(now time.Time) domain.ResolvedMarket {
	return domain.ResolvedMarket{
		Record:         d.Record,
		Deadline:       d.Deadline,
		HoursRemaining: hoursUntil(d.Deadline.At, now),
	}
}

// hoursUntil is at minus now in hours. It works on seconds and nanoseconds
// separately because time.Duration saturates about 292 years out.
func hoursUntil(at, now time.Time) float64 {
	secs := at.Unix() - now.Unix()
	nanos := at.Nanosecond() - now.Nanosecond()
	return float64(secs)/3600 + float64(nanos)/float64(time.Hour)
}

// StatusAt classifies d against now. Only a deadline strictly after now is
// active.
func (d Dated) StatusAt(now time.Time) domain.Status {
	if d.Deadline.At.After(now) {
		return domain.StatusActive
	}
	return domain.StatusExpired
}

// Resolved is the instant-independent result of resolving a batch.
type Resolved struct {
	Dated    []Dated
	Undated  []domain.RawMarket
	Rejected int // candidate fields present but unparseable, across the batch
}

// ResolveAll resolves every record, keeping input order.
func ResolveAll(records []domain.RawMarket) Resolved {
	out := Resolved{Dated: make([]Dated, 0, len(records))}
	for _, rec := range records {
		res := Resolve(rec)
		out.Rejected += len(res.Rejected)
		if c, ok := res.Chosen.Get(); ok {
			out.Dated = append(out.Dated, Dated{Record: rec, Deadline: c})
		} else {
			out.Undated = append(out.Undated, rec)
		}
	}
	return out
}

// Summary counts a snapshot. The Within counts are cumulative.
type Summary struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Expired   int `json:"expired"`
	Undated   int `json:"undated"`
	Rejected  int `json:"rejected_fields"`
	Within24h int `json:"within_24h"`
	Within3d  int `json:"within_3d"`
	Within7d  int `json:"within_7d"`
}

// Snapshot is a batch classified at one instant.
type Snapshot struct {
	At      time.Time
	Active  []domain.ResolvedMarket // soonest deadline first
	Expired []domain.ResolvedMarket
	Undated []domain.RawMarket
	Summary Summary
}

// At classifies r against now. A record is active only when its deadline is
// strictly after now. r itself is left untouched, so the same Resolved can be
// classified again at a later instant.
func (r Resolved) At(now time.Time) Snapshot {
	snap := Snapshot{
		At:      now,
		Undated: r.Undated,
	}
	for _, d := range r.Dated {
		rm := d.At(now)
		if d.StatusAt(now) == domain.StatusActive {
			snap.Active = append(snap.Active, rm)
		} else {
			snap.Expired = append(snap.Expired, rm)
		}
	}
	SortByUrgency(snap.Active)

	snap.Summary = Summary{
		Total:     len(r.Dated) + len(r.Undated),
		Active:    len(snap.Active),
		Expired:   len(snap.Expired),
		Undated:   len(r.Undated),
		Rejected:  r.Rejected,
		Within24h: len(Within(snap.Active, Horizon24h)),
		Within3d:  len(Within(snap.Active, Horizon3d)),
		Within7d:  len(Within(snap.Active, Horizon7d)),
	}
	return snap
}

// Classify resolves records and classifies them against now.
func Classify(records []domain.RawMarket, now time.Time) Snapshot {
	return ResolveAll(records).At(now)
}

// SortByUrgency orders markets by remaining hours, soonest first. Markets
// with exactly equal remaining hours keep their input order.
func SortByUrgency(markets []domain.ResolvedMarket) {
	slices.SortStableFunc(markets, func(a, b domain.ResolvedMarket) int {
		return cmp.Compare(a.HoursRemaining, b.HoursRemaining)
	})
}

// Within returns the markets whose remaining hours are at most h.Hours, in
// input order. It expects non-expired markets.
func Within(markets []domain.ResolvedMarket, h Horizon) []domain.ResolvedMarket {
	var out []domain.ResolvedMarket
	for _, m := range markets {
		if m.HoursRemaining <= h.Hours {
			out = append(out, m)
		}
	}
	return out
}
