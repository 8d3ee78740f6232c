// Package handlers contains the Telegram command, message, and callback
// handlers along with their registration logic.
package handlers

import (
	"log/slog"

	"github.com/LEXUGE/tg-anti-spam/internal/classifier"
	"github.com/LEXUGE/tg-anti-spam/internal/config"
	"github.com/LEXUGE/tg-anti-spam/internal/filter"
	"github.com/LEXUGE/tg-anti-spam/internal/moderation"
	"github.com/LEXUGE/tg-anti-spam/internal/state"
)

// HandlerDeps provides dependencies for Telegram handlers.
type HandlerDeps struct {
	Logger      *slog.Logger
	Config      *config.Config
	State       *state.Store
	Filter      *filter.Filter
	Classifier  classifier.Client
	Coordinator *moderation.Coordinator
	Resolver    *moderation.Resolver
}
