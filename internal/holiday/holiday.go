// Package holiday maintains a cached calendar of statutory holidays and
// answers whether a given day is the first day of a holiday block. The
// calendar is fetched from an external data source once per year and cached
// in a JSON file; reloads replace the cache wholesale.
package holiday

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNoCache is returned by lookups when no calendar has been loaded yet.
var ErrNoCache = errors.New("holiday cache is empty")

// Record describes a single calendar day. First-day semantics, including
// government-announced shifted holidays, follow the upstream data source.
type Record struct {
	Date       string `json:"date"`
	Name       string `json:"holiday_name"`
	IsHoliday  bool   `json:"is_holiday"`
	IsWorkday  bool   `json:"is_workday"`
	IsInLieu   bool   `json:"is_in_lieu"`
	IsFirstDay bool   `json:"is_first_day"`
}

// DateLayout is the wire format for Record.Date.
const DateLayout = "2006-01-02"

type cacheDocument struct {
	Year     int      `json:"year"`
	Holidays []Record `json:"holidays"`
}

func readCacheFile(path string) (*cacheDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc := &cacheDocument{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse holiday cache %q: %w", path, err)
	}
	return doc, nil
}

// writeCacheFile writes the document to a temp file and renames it into
// place so a crashed write never leaves a truncated cache behind.
func writeCacheFile(path string, doc *cacheDocument) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode holiday cache: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write holiday cache: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace holiday cache: %w", err)
	}
	return nil
}

// markFirstDays sets IsFirstDay on the first date of each consecutive run of
// the same holiday name. Records must be sorted by date.
func markFirstDays(records []Record) {
	var prevHoliday bool
	var prevName string
	for i := range records {
		r := &records[i]
		if r.IsHoliday && (!prevHoliday || r.Name != prevName) {
			r.IsFirstDay = true
		}
		prevHoliday = r.IsHoliday
		prevName = r.Name
	}
}

func yearOf(t time.Time) int { return t.Year() }
