// Package filter implements the rate-limit pre-filter that decides whether an
// inbound message is forwarded to the content classifier.
package filter

import (
	"log/slog"

	"github.com/LEXUGE/tg-anti-spam/internal/state"
)

// Filter gates classification on a monotonic per-(chat,user) message cap.
// There is no decay: once a user crosses the threshold in a chat, every later
// message from them is excluded from classification until an explicit reset.
// The counter it maintains doubles as the trust signal used to authorize
// dismiss actions (see the moderation package).
type Filter struct {
	store     *state.Store
	threshold uint64
	log       *slog.Logger
}

// New creates a filter backed by the given store.
func New(store *state.Store, threshold uint64, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{
		store:     store,
		threshold: threshold,
		log:       logger.With("component", "rate_filter"),
	}
}

// ShouldProcess increments the counter for (chat, user) and reports whether
// the new count is within the threshold. The increment happens even when the
// answer is false, so counts keep growing past the cap.
func (f *Filter) ShouldProcess(chatID, userID int64) bool {
	count := f.store.Increment(chatID, userID)
	allowed := count <= f.threshold
	if !allowed {
		f.log.Debug("Message over rate threshold, skipping classification",
			"chat_id", chatID, "user_id", userID, "count", count, "threshold", f.threshold)
	}
	return allowed
}
