package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps *HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		log := deps.Logger.With("handler", "start")
		msg := update.Message
		if msg == nil || msg.From == nil {
			return
		}

		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   "Hello! I am an Anti-Spam Bot.",
		}); err != nil {
			log.ErrorContext(ctx, "Failed to send greeting", "error", err, "chat_id", msg.Chat.ID)
		}
	}
}

// NewStatsHandler returns a handler for the /stats command, which reports the
// caller's current message count.
func NewStatsHandler(deps *HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		log := deps.Logger.With("handler", "stats")
		msg := update.Message
		if msg == nil || msg.From == nil {
			return
		}

		count := deps.State.Count(msg.Chat.ID, msg.From.ID)
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:          msg.Chat.ID,
			Text:            fmt.Sprintf("Your message count: %d", count),
			ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
		}); err != nil {
			log.ErrorContext(ctx, "Failed to send stats", "error", err, "chat_id", msg.Chat.ID)
		}
	}
}

// NewSaveHandler returns a handler for the /save command, which forces a
// state snapshot to disk.
func NewSaveHandler(deps *HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		log := deps.Logger.With("handler", "save")
		msg := update.Message
		if msg == nil || msg.From == nil {
			return
		}

		text := "State saved successfully."
		if err := deps.State.Save(deps.Config.State.Path); err != nil {
			log.ErrorContext(ctx, "On-demand state save failed", "error", err)
			text = fmt.Sprintf("Failed to save state: %v", err)
		}

		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:          msg.Chat.ID,
			Text:            text,
			ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
		}); err != nil {
			log.ErrorContext(ctx, "Failed to send save confirmation", "error", err, "chat_id", msg.Chat.ID)
		}
	}
}

// NewResetHandler returns a handler for the /reset command, which clears the
// caller's own message count.
func NewResetHandler(deps *HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		log := deps.Logger.With("handler", "reset")
		msg := update.Message
		if msg == nil || msg.From == nil {
			return
		}

		deps.State.Reset(msg.Chat.ID, msg.From.ID)
		log.InfoContext(ctx, "Counter reset", "chat_id", msg.Chat.ID, "user_id", msg.From.ID)

		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:          msg.Chat.ID,
			Text:            "Your message count has been reset to 0.",
			ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
		}); err != nil {
			log.ErrorContext(ctx, "Failed to send reset confirmation", "error", err, "chat_id", msg.Chat.ID)
		}
	}
}

// NewClearContextHandler returns a handler for the /clear_context command,
// which empties the chat's context buffer.
func NewClearContextHandler(deps *HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		log := deps.Logger.With("handler", "clear_context")
		msg := update.Message
		if msg == nil || msg.From == nil {
			return
		}

		deps.State.ClearContext(msg.Chat.ID)
		log.InfoContext(ctx, "Context cleared", "chat_id", msg.Chat.ID, "user_id", msg.From.ID)

		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:          msg.Chat.ID,
			Text:            "Message context has been cleared.",
			ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
		}); err != nil {
			log.ErrorContext(ctx, "Failed to send clear confirmation", "error", err, "chat_id", msg.Chat.ID)
		}
	}
}
