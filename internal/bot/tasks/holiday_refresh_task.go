package tasks

import (
	"context"
	"fmt"
	"time"
)

// newHolidayRefreshTask creates the scheduled task that preloads the next
// year's holiday calendar shortly before the year rolls over, so the cache
// is warm on January 1st.
func newHolidayRefreshTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "holiday_refresh")

	return func(ctx context.Context) error {
		nextYear := time.Now().Year() + 1

		log.InfoContext(ctx, "Preloading holiday calendar", "year", nextYear)
		if err := deps.Holidays.ReloadYear(ctx, nextYear); err != nil {
			log.ErrorContext(ctx, "Holiday calendar preload failed", "year", nextYear, "error", err)
			return fmt.Errorf("holiday refresh for %d: %w", nextYear, err)
		}

		log.InfoContext(ctx, "Holiday calendar preloaded", "year", nextYear, "records", deps.Holidays.Len())
		return nil
	}
}
