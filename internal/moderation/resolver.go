package moderation

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"

	"github.com/LEXUGE/tg-anti-spam/internal/audit"
	"github.com/LEXUGE/tg-anti-spam/internal/state"
)

// ActionRequest is a follow-up operator action arriving from a moderation
// prompt button.
type ActionRequest struct {
	// Token has the shape "<verb>:<offending_user_id>".
	Token string

	ChatID  int64
	ActorID int64

	// PromptMessageID references the notification message the button sits on.
	PromptMessageID int
}

// Outcome is the user-visible result of resolving an action. Denials are
// surfaced as alerts.
type Outcome struct {
	Text      string
	ShowAlert bool
}

func denied(text string) Outcome {
	return Outcome{Text: text, ShowAlert: true}
}

// Resolver authorizes and executes dismiss/kick actions against the state
// store and the chat transport, clearing the tracked notification on success.
//
// Dismiss authorization uses the message counter as a trust proxy: an actor
// whose counter exceeds the moderation threshold may dismiss.
type Resolver struct {
	api       ChatAPI
	store     *state.Store
	auditLog  audit.Store
	threshold uint64
	log       *slog.Logger
}

// NewResolver creates a resolver. auditLog may be nil to disable audit
// recording.
func NewResolver(api ChatAPI, store *state.Store, auditLog audit.Store, threshold uint64, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		api:       api,
		store:     store,
		auditLog:  auditLog,
		threshold: threshold,
		log:       logger.With("component", "action_resolver"),
	}
}

// Resolve parses and executes the action. Malformed input and authorization
// failures produce a denial with zero state mutation.
func (r *Resolver) Resolve(ctx context.Context, req ActionRequest) Outcome {
	verb, rawID, ok := strings.Cut(req.Token, ":")
	if !ok {
		return denied("Invalid request")
	}

	targetID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return denied("Invalid request")
	}

	switch verb {
	case "dismiss":
		return r.resolveDismiss(ctx, req, targetID)
	case "kick":
		return r.resolveKick(ctx, req, targetID)
	default:
		return denied("Unknown action")
	}
}

func (r *Resolver) resolveDismiss(ctx context.Context, req ActionRequest, targetID int64) Outcome {
	if r.store.Count(req.ChatID, req.ActorID) <= r.threshold {
		return denied("You must be a trusted user to dismiss this action")
	}

	if _, err := r.api.RestrictChatMember(ctx, &bot.RestrictChatMemberParams{
		ChatID:      req.ChatID,
		UserID:      targetID,
		Permissions: &fullPermissions,
	}); err != nil {
		r.log.ErrorContext(ctx, "Failed to restore permissions", "error", err, "chat_id", req.ChatID, "user_id", targetID)
		return denied("Failed to unban user")
	}

	r.finishAction(ctx, req, targetID, "dismiss")
	r.log.InfoContext(ctx, "Moderation action dismissed",
		"chat_id", req.ChatID, "actor_id", req.ActorID, "user_id", targetID)
	return Outcome{Text: "User has been unbanned"}
}

func (r *Resolver) resolveKick(ctx context.Context, req ActionRequest, targetID int64) Outcome {
	admins, err := r.api.GetChatAdministrators(ctx, &bot.GetChatAdministratorsParams{ChatID: req.ChatID})
	if err != nil {
		r.log.ErrorContext(ctx, "Failed to list chat administrators", "error", err, "chat_id", req.ChatID)
		return denied("Failed to verify permissions")
	}

	isAdmin := false
	for _, member := range admins {
		if id, ok := memberUserID(member); ok && id == req.ActorID {
			isAdmin = true
			break
		}
	}
	if !isAdmin {
		return denied("Only administrators can kick users")
	}

	if _, err := r.api.BanChatMember(ctx, &bot.BanChatMemberParams{
		ChatID: req.ChatID,
		UserID: targetID,
	}); err != nil {
		r.log.ErrorContext(ctx, "Failed to ban user", "error", err, "chat_id", req.ChatID, "user_id", targetID)
		return denied("Failed to kick user")
	}

	r.finishAction(ctx, req, targetID, "kick")
	r.log.InfoContext(ctx, "User kicked",
		"chat_id", req.ChatID, "actor_id", req.ActorID, "user_id", targetID)
	return Outcome{Text: "User has been permanently kicked"}
}

// finishAction performs the shared tail of a successful resolution: delete the
// prompt best-effort, clear the notification record, and write the audit
// entry.
func (r *Resolver) finishAction(ctx context.Context, req ActionRequest, targetID int64, action string) {
	if _, err := r.api.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    req.ChatID,
		MessageID: req.PromptMessageID,
	}); err != nil {
		r.log.ErrorContext(ctx, "Failed to delete moderation prompt", "error", err, "message_id", req.PromptMessageID)
	}

	r.store.RemoveNotification(req.ChatID, targetID)

	if r.auditLog != nil {
		entry := &audit.Entry{
			ChatID: req.ChatID,
			UserID: targetID,
			Action: action,
			Detail: "resolved by " + strconv.FormatInt(req.ActorID, 10),
		}
		if err := r.auditLog.Record(ctx, entry); err != nil {
			r.log.ErrorContext(ctx, "Failed to record audit entry", "error", err)
		}
	}
}
