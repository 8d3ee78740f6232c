// Package tasks implements the scheduled background tasks of the bot.
package tasks

import (
	"log/slog"

	"github.com/LEXUGE/tg-anti-spam/internal/audit"
	"github.com/LEXUGE/tg-anti-spam/internal/config"
	"github.com/LEXUGE/tg-anti-spam/internal/state"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	State    *state.Store
	AuditLog audit.Store
}
