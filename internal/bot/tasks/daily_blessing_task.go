package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chengmaomao/sendblessings/internal/dispatch"
)

// newDailyBlessingTask creates the scheduled task that checks whether today
// is the first day of a statutory holiday and, if so, dispatches a blessing
// to every configured target. On any other day it is a no-op.
func newDailyBlessingTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "daily_blessing")

	return func(ctx context.Context) error {
		name, ok := deps.Holidays.FirstDayToday()
		if !ok {
			log.DebugContext(ctx, "Not the first day of a holiday, nothing to send")
			return nil
		}

		log.InfoContext(ctx, "First day of holiday detected, dispatching blessings", "holiday", name)
		startTime := time.Now()

		result, err := deps.Dispatcher.DispatchAll(ctx, name)
		duration := time.Since(startTime)

		if errors.Is(err, dispatch.ErrDispatchInProgress) {
			log.WarnContext(ctx, "Dispatch already in progress, skipping this run", "holiday", name)
			return nil
		}
		if err != nil {
			log.ErrorContext(ctx, "Daily blessing dispatch failed", "holiday", name, "error", err, "duration", duration)
			return fmt.Errorf("daily blessing dispatch: %w", err)
		}

		log.InfoContext(ctx, "Daily blessing dispatch completed",
			"holiday", name, "sent", result.Sent, "failed", result.Failed, "duration", duration)
		return nil
	}
}
