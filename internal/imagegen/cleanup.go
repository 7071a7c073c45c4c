package imagegen

import (
	"context"
	"os"
	"path/filepath"
)

// CleanupSweep deletes generated image files older than the configured max
// age. Files still registered as in-flight (generated but not yet delivered)
// are skipped. The sweep is idempotent and safe to run concurrently with
// generation.
func (g *Generator) CleanupSweep(ctx context.Context) (int, error) {
	matches, err := filepath.Glob(filepath.Join(g.cfg.ImagesDir, "blessing_image_*"))
	if err != nil {
		return 0, err
	}

	cutoff := g.now().Add(-g.cfg.MaxAge)
	removed := 0

	for _, path := range matches {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if g.isInflight(abs) {
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			// Already gone; a concurrent sweep got there first.
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(path); err != nil {
			g.log.WarnContext(ctx, "Failed to remove expired image", "path", path, "error", err)
			continue
		}
		removed++
		g.log.DebugContext(ctx, "Removed expired image", "path", path)
	}

	if removed > 0 {
		g.log.InfoContext(ctx, "Image cleanup sweep finished", "removed", removed)
	}
	return removed, nil
}
