package tasks

import (
	"context"
	"fmt"
)

// newImageCleanupTask creates the scheduled task that removes expired
// generated images from the image directory. When image generation is
// disabled the task is a no-op.
func newImageCleanupTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "image_cleanup")

	return func(ctx context.Context) error {
		if deps.Generator == nil {
			log.DebugContext(ctx, "Image generation disabled, skipping cleanup")
			return nil
		}

		removed, err := deps.Generator.CleanupSweep(ctx)
		if err != nil {
			log.ErrorContext(ctx, "Image cleanup sweep failed", "error", err)
			return fmt.Errorf("image cleanup: %w", err)
		}

		if removed > 0 {
			log.InfoContext(ctx, "Removed expired generated images", "count", removed)
		}
		return nil
	}
}
