package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/LEXUGE/tg-anti-spam/internal/moderation"
)

// NewCallbackHandler returns the handler for moderation-prompt button
// presses. It resolves the action and reports the outcome through
// AnswerCallbackQuery; denials are shown as alerts.
func NewCallbackHandler(deps *HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		log := deps.Logger.With("handler", "callback")

		q := update.CallbackQuery
		if q == nil {
			return
		}

		answer := func(text string, alert bool) {
			if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
				CallbackQueryID: q.ID,
				Text:            text,
				ShowAlert:       alert,
			}); err != nil {
				log.ErrorContext(ctx, "Failed to answer callback query", "error", err, "callback_id", q.ID)
			}
		}

		chatID, messageID, ok := callbackOrigin(q)
		if !ok {
			log.WarnContext(ctx, "Callback query without an accessible origin message", "callback_id", q.ID)
			answer("Invalid request", true)
			return
		}

		outcome := deps.Resolver.Resolve(ctx, moderation.ActionRequest{
			Token:           q.Data,
			ChatID:          chatID,
			ActorID:         q.From.ID,
			PromptMessageID: messageID,
		})
		answer(outcome.Text, outcome.ShowAlert)
	}
}

// callbackOrigin extracts the chat and message the pressed button belongs to.
// Telegram may report the origin as inaccessible, in which case only its IDs
// are available, which is all the resolver needs.
func callbackOrigin(q *models.CallbackQuery) (chatID int64, messageID int, ok bool) {
	switch {
	case q.Message.Message != nil:
		return q.Message.Message.Chat.ID, q.Message.Message.ID, true
	case q.Message.InaccessibleMessage != nil:
		return q.Message.InaccessibleMessage.Chat.ID, q.Message.InaccessibleMessage.MessageID, true
	default:
		return 0, 0, false
	}
}
