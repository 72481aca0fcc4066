// Package deadline turns loosely-tagged market records into a single
// trustworthy deadline each, and classifies records against an instant.
package deadline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/deadlinewatch/internal/domain"
)

var (
	errEmpty         = errors.New("empty timestamp")
	errNoZone        = errors.New("timestamp has no zone offset")
	errNonPositive   = errors.New("epoch seconds must be positive")
	errUnknownLayout = errors.New("unrecognised timestamp layout")
)

// isoLayouts are tried in order. Every layout carries an explicit zone; a
// "Z" suffix is normalised to "+00:00" before parsing.
// Fractional seconds are accepted by time.Parse without being in the layout.
var isoLayouts = []string{
	"2006-01-02T15:04:05-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05-0700",
	"2006-01-02T15:04-07:00",
}

// Rejection records a candidate field that was present but did not parse.
type Rejection struct {
	Source domain.DeadlineSource
	Raw    string
	Err    error
}

// Resolution is everything learned while resolving one record.
type Resolution struct {
	Chosen     domain.Optional[domain.DeadlineCandidate]
	Candidates []domain.DeadlineCandidate // in collection order
	Rejected   []Rejection
}

// ParseISO parses an ISO-8601 timestamp with a "Z" suffix or an explicit
// offset and returns it as a UTC candidate.
func ParseISO(source domain.DeadlineSource, raw string) (domain.DeadlineCandidate, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return domain.DeadlineCandidate{}, errEmpty
	}
	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		s = s[:len(s)-1] + "+00:00"
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.DeadlineCandidate{Source: source, At: t.UTC()}, nil
		}
	}
	if missingZone(s) {
		return domain.DeadlineCandidate{}, fmt.Errorf("%w: %q", errNoZone, raw)
	}
	return domain.DeadlineCandidate{}, fmt.Errorf("%w: %q", errUnknownLayout, raw)
}

// ParseEpochSeconds parses a unix timestamp in seconds as a UTC candidate.
func ParseEpochSeconds(source domain.DeadlineSource, raw string) (domain.DeadlineCandidate, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return domain.DeadlineCandidate{}, errEmpty
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return domain.DeadlineCandidate{}, fmt.Errorf("epoch seconds %q: %w", raw, err)
	}
	if secs <= 0 {
		return domain.DeadlineCandidate{}, fmt.Errorf("%w: %q", errNonPositive, raw)
	}
	return domain.DeadlineCandidate{Source: source, At: time.Unix(secs, 0).UTC()}, nil
}

// missingZone reports whether s looks like a date-time without any offset,
// which would otherwise be read in an unknown local zone.
func missingZone(s string) bool {
	i := strings.IndexAny(s, "T ")
	return i > 0 && !strings.ContainsAny(s[i+1:], "+-")
}

// Resolve collects every deadline candidate of rec and picks one.
//
// A parseable condition.resolutionTime wins outright. Otherwise every
// events[].endDate is collected, then the market endDate, and the earliest
// instant is chosen; on an exact tie the first collected wins.
func Resolve(rec domain.RawMarket) Resolution {
	var res Resolution

	if cond, ok := rec.Condition.Get(); ok {
		if raw, ok := cond.ResolutionTime.Get(); ok {
			c, err := ParseEpochSeconds(domain.SourceConditionResolutionTime, raw)
			if err == nil {
				res.Candidates = append(res.Candidates, c)
				res.Chosen = domain.Some(c)
				return res
			}
			res.Rejected = append(res.Rejected, Rejection{Source: domain.SourceConditionResolutionTime, Raw: raw, Err: err})
		}
	}

	if events, ok := rec.Events.Get(); ok {
		for _, ev := range events {
			if raw, ok := ev.EndDate.Get(); ok {
				res.collect(domain.SourceEventEndDate, raw)
			}
		}
	}

	if raw, ok := rec.EndDate.Get(); ok {
		res.collect(domain.SourceMarketEndDate, raw)
	}

	for _, c := range res.Candidates {
		if best, ok := res.Chosen.Get(); !ok || c.At.Before(best.At) {
			res.Chosen = domain.Some(c)
		}
	}
	return res
}

// ResolveDeadline returns the chosen deadline of rec, or false when no
// candidate parsed and the record is undated.
func ResolveDeadline(rec domain.RawMarket) (domain.DeadlineCandidate, bool) {
	return Resolve(rec).Chosen.Get()
}

// collect parses one ISO candidate. A parse failure becomes a Rejection and
// never stops the remaining candidates.
func (r *Resolution) collect(source domain.DeadlineSource, raw string) {
	c, err := ParseISO(source, raw)
	if err != nil {
		r.Rejected = append(r.Rejected, Rejection{Source: source, Raw: raw, Err: err})
		return
	}
	r.Candidates = append(r.Candidates, c)
}
