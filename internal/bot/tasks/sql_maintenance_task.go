package tasks

import (
	"context"
	"fmt"
	"time"
)

// newSQLMaintenanceTask creates the scheduled audit-database maintenance task.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		start := time.Now()

		if err := deps.AuditLog.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "Audit database maintenance failed", "error", err)
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "Audit database maintenance completed", "duration", time.Since(start))
		return nil
	}
}
