package moderation

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/LEXUGE/tg-anti-spam/internal/audit"
	"github.com/LEXUGE/tg-anti-spam/internal/classifier"
	"github.com/LEXUGE/tg-anti-spam/internal/state"
)

// excerptLength caps how much of the offending text the notification quotes.
const excerptLength = 50

// Coordinator turns a non-"not spam" classifier verdict into moderation
// actions: delete the message, reconcile any prior prompt for the same
// offender, mute them, and post an action prompt with dismiss/kick buttons.
// Every step is best-effort; no step's failure prevents the next.
type Coordinator struct {
	api          ChatAPI
	store        *state.Store
	auditLog     audit.Store
	muteDuration time.Duration
	log          *slog.Logger
}

// NewCoordinator creates a coordinator. auditLog may be nil to disable audit
// recording.
func NewCoordinator(api ChatAPI, store *state.Store, auditLog audit.Store, muteDuration time.Duration, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		api:          api,
		store:        store,
		auditLog:     auditLog,
		muteDuration: muteDuration,
		log:          logger.With("component", "moderation_coordinator"),
	}
}

// Enforce applies the moderation sequence for an offending message.
func (c *Coordinator) Enforce(ctx context.Context, msg state.Message, verdict classifier.Verdict) {
	log := c.log.With("chat_id", msg.ChatID, "user_id", msg.UserID, "category", verdict.Category)
	log.InfoContext(ctx, "Enforcing moderation verdict", "message_id", msg.MessageID, "reason", verdict.Reason)

	if _, err := c.api.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    msg.ChatID,
		MessageID: msg.MessageID,
	}); err != nil {
		log.ErrorContext(ctx, "Failed to delete offending message", "error", err, "message_id", msg.MessageID)
	}

	// Reconcile the previous prompt for this offender so prompts don't stack.
	if prevID, ok := c.store.Notification(msg.ChatID, msg.UserID); ok {
		if _, err := c.api.DeleteMessage(ctx, &bot.DeleteMessageParams{
			ChatID:    msg.ChatID,
			MessageID: prevID,
		}); err != nil {
			log.ErrorContext(ctx, "Failed to delete previous moderation prompt", "error", err, "message_id", prevID)
		}
	}

	until := time.Now().Add(c.muteDuration)
	if _, err := c.api.RestrictChatMember(ctx, &bot.RestrictChatMemberParams{
		ChatID:      msg.ChatID,
		UserID:      msg.UserID,
		Permissions: &models.ChatPermissions{},
		UntilDate:   int(until.Unix()),
	}); err != nil {
		log.ErrorContext(ctx, "Failed to restrict user", "error", err)
	} else {
		log.InfoContext(ctx, "User restricted", "until", until)
	}

	sent, err := c.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    msg.ChatID,
		Text:      c.notificationText(msg, verdict),
		ParseMode: models.ParseModeHTML,
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{{
				{Text: "Dismiss (Trusted Only)", CallbackData: fmt.Sprintf("dismiss:%d", msg.UserID)},
				{Text: "Kick (Admin Only)", CallbackData: fmt.Sprintf("kick:%d", msg.UserID)},
			}},
		},
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send moderation prompt", "error", err)
	} else {
		c.store.TrackNotification(msg.ChatID, msg.UserID, sent.ID)
	}

	c.recordAudit(ctx, msg, verdict)
}

func (c *Coordinator) notificationText(msg state.Message, verdict classifier.Verdict) string {
	return fmt.Sprintf(
		"Spam detected!\n\nType: %s\nUser: %s\nMessage (first %d chars): <tg-spoiler>%s</tg-spoiler>\n\nUser has been muted for %s.",
		verdict.Category,
		html.EscapeString(msg.SenderLabel()),
		excerptLength,
		html.EscapeString(excerpt(msg.Text)),
		c.muteDuration,
	)
}

func (c *Coordinator) recordAudit(ctx context.Context, msg state.Message, verdict classifier.Verdict) {
	if c.auditLog == nil {
		return
	}
	entry := &audit.Entry{
		ChatID:   msg.ChatID,
		UserID:   msg.UserID,
		Category: string(verdict.Category),
		Action:   "mute",
		Detail:   excerpt(msg.Text),
	}
	if err := c.auditLog.Record(ctx, entry); err != nil {
		c.log.ErrorContext(ctx, "Failed to record moderation audit entry", "error", err)
	}
}

func excerpt(text string) string {
	if text == "" {
		return "<no text>"
	}
	runes := []rune(text)
	if len(runes) > excerptLength {
		runes = runes[:excerptLength]
	}
	return string(runes)
}
