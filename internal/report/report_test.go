package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/deadlinewatch/internal/deadline"
	"github.com/alanyoungcy/deadlinewatch/internal/domain"
	"github.com/alanyoungcy/deadlinewatch/internal/pipeline"
	"github.com/alanyoungcy/deadlinewatch/internal/service"
)

func sampleReport() service.Report {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := domain.ResolvedMarket{
		Record: domain.RawMarket{
			ID:       domain.Some("123"),
			Question: domain.Some("Will it rain in London tomorrow?"),
			Slug:     domain.Some("rain-london"),
			Volume:   domain.Some(1234567.0),
		},
		Deadline:       domain.DeadlineCandidate{Source: domain.SourceEventEndDate, At: at.Add(2 * time.Hour)},
		HoursRemaining: 2,
	}
	return service.Report{
		CycleID:  "cycle-1",
		At:       at,
		Fetch:    service.FetchStats{Records: 1137, Pages: 3, Stop: pipeline.StopShort},
		Summary:  deadline.Summary{Total: 1137, Active: 1, Within24h: 1, Within3d: 1, Within7d: 1},
		Filtered: []domain.ResolvedMarket{m, m},
		Markets:  []domain.ResolvedMarket{m},
	}
}

func TestWrite_Table(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleReport(), FormatTable); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"1,137 records",
		"2 hours from now",
		"$1,234,567",
		"urgent",
		"event.endDate",
		"Will it rain in London tomorrow?",
		"... and 1 more",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleReport(), FormatJSON); err != nil {
		t.Fatal(err)
	}
	var got struct {
		Matched int `json:"matched"`
		Markets []struct {
			URL     string  `json:"url"`
			Urgency string  `json:"urgency"`
			Volume  float64 `json:"volume"`
		} `json:"markets"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Matched != 2 || len(got.Markets) != 1 {
		t.Fatalf("got %+v", got)
	}
	if got.Markets[0].URL != "https://polymarket.com/event/rain-london" || got.Markets[0].Urgency != "urgent" {
		t.Errorf("market = %+v", got.Markets[0])
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, sampleReport(), "xml"); err == nil {
		t.Fatal("expected error")
	}
}
