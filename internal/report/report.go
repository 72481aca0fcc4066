// Package report renders scan reports for a terminal or for other programs.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/alanyoungcy/deadlinewatch/internal/deadline"
	"github.com/alanyoungcy/deadlinewatch/internal/domain"
	"github.com/alanyoungcy/deadlinewatch/internal/service"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
)

const maxQuestionWidth = 80

// Write renders rep to w in the given format.
func Write(w io.Writer, rep service.Report, format string) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, rep)
	case FormatTable, "":
		return writeTable(w, rep)
	default:
		return fmt.Errorf("report: unknown format %q", format)
	}
}

func writeTable(w io.Writer, rep service.Report) error {
	s := rep.Summary
	fmt.Fprintf(w, "Scan %s at %s\n", rep.CycleID, rep.At.Format(time.RFC3339))
	fmt.Fprintf(w, "Fetched %s records in %d page(s), stopped: %s\n",
		humanize.Comma(int64(rep.Fetch.Records)), rep.Fetch.Pages, rep.Fetch.Stop)
	if rep.Fetch.Truncated {
		fmt.Fprintf(w, "WARNING: feed truncated, counts are partial (%s)\n", rep.Fetch.Error)
	}
	fmt.Fprintf(w, "Active %d  Expired %d  Undated %d  |  within 24h: %d  3d: %d  7d: %d\n\n",
		s.Active, s.Expired, s.Undated, s.Within24h, s.Within3d, s.Within7d)

	if len(rep.Markets) == 0 {
		_, err := fmt.Fprintln(w, "No active markets match.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tENDS\tDEADLINE (UTC)\tURGENCY\tVOLUME\tSOURCE\tQUESTION")
	for i, m := range rep.Markets {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			humanize.RelTime(m.Deadline.At, rep.At, "ago", "from now"),
			m.Deadline.At.Format("2006-01-02 15:04"),
			deadline.UrgencyOf(m.HoursRemaining),
			volume(m.Record),
			m.Deadline.Source,
			truncate(m.Record.Label(), maxQuestionWidth),
		)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("report: flush table: %w", err)
	}
	if more := len(rep.Filtered) - len(rep.Markets); more > 0 {
		fmt.Fprintf(w, "... and %d more\n", more)
	}
	return nil
}

func volume(rec domain.RawMarket) string {
	v, ok := rec.Volume.Get()
	if !ok {
		return "-"
	}
	return "$" + humanize.CommafWithDigits(v, 0)
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-3]) + "..."
}

type jsonMarket struct {
	ID             string                `json:"id,omitempty"`
	Question       string                `json:"question,omitempty"`
	Slug           string                `json:"slug,omitempty"`
	URL            string                `json:"url,omitempty"`
	Deadline       time.Time             `json:"deadline"`
	DeadlineSource domain.DeadlineSource `json:"deadline_source"`
	HoursRemaining float64               `json:"hours_remaining"`
	Urgency        domain.Urgency        `json:"urgency"`
	Volume         *float64              `json:"volume,omitempty"`
	Liquidity      *float64              `json:"liquidity,omitempty"`
}

type jsonReport struct {
	CycleID string             `json:"cycle_id"`
	At      time.Time          `json:"at"`
	Fetch   service.FetchStats `json:"fetch"`
	Summary deadline.Summary   `json:"summary"`
	Matched int                `json:"matched"`
	Markets []jsonMarket       `json:"markets"`
}

func writeJSON(w io.Writer, rep service.Report) error {
	out := jsonReport{
		CycleID: rep.CycleID,
		At:      rep.At,
		Fetch:   rep.Fetch,
		Summary: rep.Summary,
		Matched: len(rep.Filtered),
		Markets: make([]jsonMarket, 0, len(rep.Markets)),
	}
	for _, m := range rep.Markets {
		out.Markets = append(out.Markets, jsonMarket{
			ID:             m.Record.ID.OrElse(""),
			Question:       m.Record.Question.OrElse(""),
			Slug:           m.Record.Slug.OrElse(""),
			URL:            deadline.MarketURL(m.Record),
			Deadline:       m.Deadline.At,
			DeadlineSource: m.Deadline.Source,
			HoursRemaining: m.HoursRemaining,
			Urgency:        deadline.UrgencyOf(m.HoursRemaining),
			Volume:         optionalPtr(m.Record.Volume),
			Liquidity:      optionalPtr(m.Record.Liquidity),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

func optionalPtr(o domain.Optional[float64]) *float64 {
	if v, ok := o.Get(); ok {
		return &v
	}
	return nil
}
