package holiday

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Source provides the holiday calendar for a given year.
type Source interface {
	FetchYear(ctx context.Context, year int) ([]Record, error)
}

// HTTPSource fetches holiday data from a holiday-cn style endpoint serving
// one JSON document per year at <base>/<year>.json:
//
//	{"year": 2026, "days": [{"name": "元旦", "date": "2026-01-01", "isOffDay": true}, ...]}
//
// Entries with isOffDay=false are compensatory workdays.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates a Source backed by the given base URL.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type sourceDay struct {
	Name     string `json:"name"`
	Date     string `json:"date"`
	IsOffDay bool   `json:"isOffDay"`
}

type sourceDocument struct {
	Year int         `json:"year"`
	Days []sourceDay `json:"days"`
}

// FetchYear downloads the calendar for one year and expands it into a full
// per-day record list with first-day flags.
func (s *HTTPSource) FetchYear(ctx context.Context, year int) ([]Record, error) {
	url := fmt.Sprintf("%s/%d.json", s.baseURL, year)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build holiday request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch holiday data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("holiday source returned status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read holiday data: %w", err)
	}

	doc := &sourceDocument{}
	if err := json.Unmarshal(body, doc); err != nil {
		return nil, fmt.Errorf("failed to parse holiday data: %w", err)
	}
	if doc.Year != year {
		return nil, fmt.Errorf("holiday source returned year %d, expected %d", doc.Year, year)
	}

	return expandYear(year, doc.Days), nil
}

// expandYear turns the sparse off-day/workday list into one record per
// calendar day. Weekends are rest days but not holidays; weekday off-days
// outside the announcement are impossible, so in-lieu flags are derived from
// the day of week.
func expandYear(year int, days []sourceDay) []Record {
	offDays := make(map[string]string, len(days))
	workDays := make(map[string]struct{}, len(days))
	for _, d := range days {
		if d.IsOffDay {
			offDays[d.Date] = d.Name
		} else {
			workDays[d.Date] = struct{}{}
		}
	}

	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	var records []Record
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := day.Format(DateLayout)
		weekend := day.Weekday() == time.Saturday || day.Weekday() == time.Sunday

		r := Record{Date: date}
		if name, ok := offDays[date]; ok {
			r.Name = name
			r.IsHoliday = true
			r.IsInLieu = !weekend && isShifted(day, offDays)
		} else if _, ok := workDays[date]; ok {
			r.IsWorkday = true
			r.IsInLieu = true
		} else {
			r.IsWorkday = !weekend
		}
		records = append(records, r)
	}

	markFirstDays(records)
	return records
}

// isShifted reports whether a weekday off-day extends a holiday block rather
// than anchoring it, which is how the announcements express shifted rest.
func isShifted(day time.Time, offDays map[string]string) bool {
	prev := day.AddDate(0, 0, -1).Format(DateLayout)
	_, ok := offDays[prev]
	return ok
}
