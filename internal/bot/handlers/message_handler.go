package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/LEXUGE/tg-anti-spam/internal/classifier"
	"github.com/LEXUGE/tg-anti-spam/internal/state"
)

const classifyTimeout = 2 * time.Minute

// NewMessageHandler returns the default handler: every text message that is
// not a recognized command goes through the rate filter and, if admitted,
// through the classifier. Non-"not spam" verdicts are handed to the
// moderation coordinator. The message is appended to the chat context
// afterwards regardless of the verdict.
func NewMessageHandler(deps *HandlerDeps) bot.HandlerFunc {
	return messageHandler{deps}.Handle
}

type messageHandler struct {
	deps *HandlerDeps
}

func (h messageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	deps := h.deps
	log := deps.Logger.With("handler", "spam_check")

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	chatID := msg.Chat.ID
	userID := msg.From.ID

	if !deps.Filter.ShouldProcess(chatID, userID) {
		return
	}

	if msg.Text == "" {
		return
	}

	record := state.Message{
		ChatID:    chatID,
		MessageID: msg.ID,
		UserID:    userID,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
		Username:  msg.From.Username,
		Text:      msg.Text,
		Date:      int64(msg.Date),
	}

	verdict := h.classify(ctx, record)
	if verdict.Category != classifier.CategoryNotSpam {
		deps.Coordinator.Enforce(ctx, record, verdict)
	}

	// Stored after classification so the message under review is not part of
	// its own context, and stored even when it was judged spam.
	deps.State.AddMessage(chatID, record, deps.Config.Moderation.ContextMessages)

	log.DebugContext(ctx, "Message processed", "chat_id", chatID, "user_id", userID, "category", verdict.Category)
}

// classify runs the external classifier and fails open: any error yields a
// "not spam" verdict so a classifier outage never triggers moderation.
func (h messageHandler) classify(ctx context.Context, record state.Message) classifier.Verdict {
	log := h.deps.Logger.With("handler", "spam_check")

	buffered := h.deps.State.Context(record.ChatID)
	contextMsgs := make([]classifier.ContextMessage, 0, len(buffered))
	for _, m := range buffered {
		contextMsgs = append(contextMsgs, classifier.ContextMessage{
			SenderLabel: m.SenderLabel(),
			Text:        m.Text,
		})
	}

	checkCtx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	verdict, err := h.deps.Classifier.Check(checkCtx, record.Text, contextMsgs)
	if err != nil {
		log.ErrorContext(ctx, "Classifier call failed, treating message as not spam",
			"error", err, "chat_id", record.ChatID, "user_id", record.UserID)
		return classifier.Verdict{Category: classifier.CategoryNotSpam, Reason: "classifier unavailable"}
	}
	return verdict
}
