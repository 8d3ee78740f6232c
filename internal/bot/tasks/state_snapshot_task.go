package tasks

import (
	"context"
	"fmt"
)

// newStateSnapshotTask creates the periodic state-save task. A failed save is
// only logged; the next tick retries it.
func newStateSnapshotTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "state_snapshot")

	return func(ctx context.Context) error {
		if err := deps.State.Save(deps.Config.State.Path); err != nil {
			log.ErrorContext(ctx, "Scheduled state save failed", "error", err, "path", deps.Config.State.Path)
			return fmt.Errorf("state snapshot failed: %w", err)
		}
		return nil
	}
}
