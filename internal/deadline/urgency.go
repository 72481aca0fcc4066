package deadline

import (
	"net/url"
	"strings"

	"github.com/alanyoungcy/deadlinewatch/internal/domain"
)

// UrgencyOf labels a remaining-hours value.
func UrgencyOf(hours float64) domain.Urgency {
	switch {
	case hours < 1:
		return domain.UrgencyCritical
	case hours < 24:
		return domain.UrgencyUrgent
	case hours < 168:
		return domain.UrgencySoon
	default:
		return domain.UrgencyNormal
	}
}

// Filter narrows a sorted list of active markets. Zero fields do not filter.
type Filter struct {
	Query        string  // case-insensitive substring of question or slug
	MaxHours     float64 // e.g. 0.5, 2, 12 for the 30min/2h/12h views
	MinLiquidity float64
	MinVolume    float64
}

// Apply returns the markets that pass f, preserving order. Absent liquidity
// or volume counts as zero.
func (f Filter) Apply(markets []domain.ResolvedMarket) []domain.ResolvedMarket {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]domain.ResolvedMarket, 0, len(markets))
	for _, m := range markets {
		if f.MaxHours > 0 && m.HoursRemaining > f.MaxHours {
			continue
		}
		if m.Record.Liquidity.OrElse(0) < f.MinLiquidity {
			continue
		}
		if m.Record.Volume.OrElse(0) < f.MinVolume {
			continue
		}
		if query != "" && !matches(m.Record, query) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func matches(rec domain.RawMarket, query string) bool {
	return strings.Contains(strings.ToLower(rec.Question.OrElse("")), query) ||
		strings.Contains(strings.ToLower(rec.Slug.OrElse("")), query)
}

// MarketURL links to the market on polymarket.com, by slug when known.
func MarketURL(rec domain.RawMarket) string {
	if slug, ok := rec.Slug.Get(); ok {
		return "https://polymarket.com/event/" + url.PathEscape(slug)
	}
	if id, ok := rec.ID.Get(); ok {
		return "https://polymarket.com/market/" + url.PathEscape(id)
	}
	return ""
}
