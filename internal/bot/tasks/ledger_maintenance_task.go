package tasks

import (
	"context"
	"fmt"
	"time"
)

// newLedgerMaintenanceTask creates the scheduled task for compacting the
// delivery ledger database.
func newLedgerMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "ledger_maintenance")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting ledger maintenance")
		startTime := time.Now()

		err := deps.Store.RunMaintenance(ctx)
		duration := time.Since(startTime)

		if err != nil {
			log.ErrorContext(ctx, "Ledger maintenance failed", "error", err, "duration", duration)
			return fmt.Errorf("ledger maintenance: %w", err)
		}

		log.InfoContext(ctx, "Ledger maintenance completed", "duration", duration)
		return nil
	}
}
