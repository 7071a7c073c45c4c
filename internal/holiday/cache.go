package holiday

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Cache holds the current year's holiday calendar in memory, backed by a
// JSON cache file. The snapshot is immutable between reloads and replaced
// wholesale; a failed reload keeps the previous snapshot.
type Cache struct {
	path   string
	source Source
	log    *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	year    int
	records []Record
	byDate  map[string]Record
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock overrides the cache's notion of "now" for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a holiday cache backed by the given file and source.
func NewCache(path string, source Source, log *slog.Logger, opts ...Option) *Cache {
	if log == nil {
		log = slog.Default()
	}
	c := &Cache{
		path:   path,
		source: source,
		log:    log.With("component", "holiday_cache"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load populates the cache from the cache file when it covers the current
// year, falling back to a full reload from the source otherwise.
func (c *Cache) Load(ctx context.Context) error {
	year := yearOf(c.now())

	doc, err := readCacheFile(c.path)
	if err == nil && doc.Year == year && len(doc.Holidays) > 0 {
		c.replace(doc.Year, doc.Holidays)
		c.log.Info("Loaded holiday cache from file", "path", c.path, "year", year, "records", len(doc.Holidays))
		return nil
	}
	if err != nil {
		c.log.Info("Holiday cache file unavailable, fetching from source", "path", c.path, "error", err)
	} else {
		c.log.Info("Holiday cache outdated, fetching from source", "cached_year", doc.Year, "year", year)
	}

	return c.Reload(ctx)
}

// Reload fetches the current year from the source and overwrites both the
// in-memory snapshot and the cache file. On failure the previous snapshot is
// retained and the error is returned to the caller; there is no partial
// merge.
func (c *Cache) Reload(ctx context.Context) error {
	return c.ReloadYear(ctx, yearOf(c.now()))
}

// ReloadYear fetches a specific year, used by the year-end preload task.
func (c *Cache) ReloadYear(ctx context.Context, year int) error {
	records, err := c.source.FetchYear(ctx, year)
	if err != nil {
		c.log.Error("Holiday reload failed, keeping previous cache", "year", year, "error", err)
		return fmt.Errorf("holiday reload for %d failed: %w", year, err)
	}

	if err := writeCacheFile(c.path, &cacheDocument{Year: year, Holidays: records}); err != nil {
		// The fetched data is still good; keep serving it from memory.
		c.log.Warn("Failed to persist holiday cache", "path", c.path, "error", err)
	}

	c.replace(year, records)
	c.log.Info("Holiday cache reloaded", "year", year, "records", len(records))
	return nil
}

func (c *Cache) replace(year int, records []Record) {
	byDate := make(map[string]Record, len(records))
	for _, r := range records {
		byDate[r.Date] = r
	}

	c.mu.Lock()
	c.year = year
	c.records = records
	c.byDate = byDate
	c.mu.Unlock()
}

// Today returns the record for the current date. The boolean is false when
// the cache holds no record for today.
func (c *Cache) Today() (Record, bool) {
	return c.Lookup(c.now())
}

// Lookup returns the record for an arbitrary date.
func (c *Cache) Lookup(t time.Time) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.byDate[t.Format(DateLayout)]
	return r, ok
}

// FirstDayToday reports the holiday name when today is the first day of a
// holiday block. It returns ok=false on ordinary days and on days without a
// record.
func (c *Cache) FirstDayToday() (string, bool) {
	r, ok := c.Today()
	if !ok || !r.IsHoliday || !r.IsFirstDay {
		return "", false
	}
	return r.Name, true
}

// Len returns the number of cached day records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Year returns the year the snapshot covers, or an error when nothing has
// been loaded.
func (c *Cache) Year() (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.records) == 0 {
		return 0, ErrNoCache
	}
	return c.year, nil
}
