package handlers

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/LEXUGE/tg-anti-spam/internal/classifier"
	"github.com/LEXUGE/tg-anti-spam/internal/config"
	"github.com/LEXUGE/tg-anti-spam/internal/filter"
	"github.com/LEXUGE/tg-anti-spam/internal/moderation"
	"github.com/LEXUGE/tg-anti-spam/internal/state"
)

type stubClassifier struct {
	verdict classifier.Verdict
	err     error

	calls    int
	lastText string
	lastCtx  []classifier.ContextMessage
}

func (s *stubClassifier) Check(_ context.Context, text string, contextMsgs []classifier.ContextMessage) (classifier.Verdict, error) {
	s.calls++
	s.lastText = text
	s.lastCtx = contextMsgs
	if s.err != nil {
		return classifier.Verdict{}, s.err
	}
	return s.verdict, nil
}

// noopChatAPI satisfies moderation.ChatAPI and records whether any
// enforcement call reached the transport.
type noopChatAPI struct {
	deletes int
	sends   int
}

func (a *noopChatAPI) SendMessage(context.Context, *bot.SendMessageParams) (*models.Message, error) {
	a.sends++
	return &models.Message{ID: 1}, nil
}

func (a *noopChatAPI) DeleteMessage(context.Context, *bot.DeleteMessageParams) (bool, error) {
	a.deletes++
	return true, nil
}

func (a *noopChatAPI) RestrictChatMember(context.Context, *bot.RestrictChatMemberParams) (bool, error) {
	return true, nil
}

func (a *noopChatAPI) BanChatMember(context.Context, *bot.BanChatMemberParams) (bool, error) {
	return true, nil
}

func (a *noopChatAPI) GetChatAdministrators(context.Context, *bot.GetChatAdministratorsParams) ([]models.ChatMember, error) {
	return nil, nil
}

func newTestDeps(threshold uint64, cls classifier.Client, api moderation.ChatAPI) (*HandlerDeps, *state.Store) {
	store := state.NewStore(slog.Default())
	cfg := &config.Config{}
	cfg.Moderation.CheckThreshold = threshold
	cfg.Moderation.ContextMessages = 5

	deps := &HandlerDeps{
		Logger:      slog.Default(),
		Config:      cfg,
		State:       store,
		Filter:      filter.New(store, threshold, slog.Default()),
		Classifier:  cls,
		Coordinator: moderation.NewCoordinator(api, store, nil, 24*time.Hour, slog.Default()),
		Resolver:    moderation.NewResolver(api, store, nil, threshold, slog.Default()),
	}
	return deps, store
}

func textUpdate(chatID, userID int64, messageID int, text string) *models.Update {
	return &models.Update{
		Message: &models.Message{
			ID:   messageID,
			Chat: models.Chat{ID: chatID},
			From: &models.User{ID: userID, FirstName: "Alice"},
			Text: text,
		},
	}
}

func TestMessageHandlerSkipsClassificationOverThreshold(t *testing.T) {
	t.Parallel()

	cls := &stubClassifier{verdict: classifier.Verdict{Category: classifier.CategoryNotSpam}}
	deps, store := newTestDeps(1, cls, &noopChatAPI{})
	h := NewMessageHandler(deps)

	h(context.Background(), nil, textUpdate(1, 100, 1, "first"))
	h(context.Background(), nil, textUpdate(1, 100, 2, "second"))

	if cls.calls != 1 {
		t.Fatalf("classifier called %d times, want 1 (second message is over threshold)", cls.calls)
	}
	// The counter keeps growing even for skipped messages.
	if got := store.Count(1, 100); got != 2 {
		t.Fatalf("Count = %d, want 2", got)
	}
	// Skipped messages are not added to the context buffer either.
	if got := len(store.Context(1)); got != 1 {
		t.Fatalf("Context has %d entries, want 1", got)
	}
}

func TestMessageHandlerNotSpamLeavesTransportAlone(t *testing.T) {
	t.Parallel()

	api := &noopChatAPI{}
	cls := &stubClassifier{verdict: classifier.Verdict{Category: classifier.CategoryNotSpam}}
	deps, store := newTestDeps(20, cls, api)
	h := NewMessageHandler(deps)

	h(context.Background(), nil, textUpdate(1, 100, 1, "hello there"))

	if api.deletes != 0 || api.sends != 0 {
		t.Fatalf("no transport calls expected for not_spam, got deletes=%d sends=%d", api.deletes, api.sends)
	}
	if got := len(store.Context(1)); got != 1 {
		t.Fatalf("message should be buffered, Context has %d entries", got)
	}
}

func TestMessageHandlerEnforcesSpamVerdict(t *testing.T) {
	t.Parallel()

	api := &noopChatAPI{}
	cls := &stubClassifier{verdict: classifier.Verdict{Category: classifier.CategoryScam, Reason: "scam"}}
	deps, store := newTestDeps(20, cls, api)
	h := NewMessageHandler(deps)

	h(context.Background(), nil, textUpdate(1, 100, 1, "send me your wallet seed"))

	if api.deletes == 0 {
		t.Error("spam verdict should delete the offending message")
	}
	if api.sends == 0 {
		t.Error("spam verdict should send a moderation prompt")
	}
	// The spam message is still appended to the context buffer.
	if got := len(store.Context(1)); got != 1 {
		t.Fatalf("Context has %d entries, want 1", got)
	}
}

func TestMessageHandlerFailsOpenOnClassifierError(t *testing.T) {
	t.Parallel()

	api := &noopChatAPI{}
	cls := &stubClassifier{err: errors.New("network down")}
	deps, _ := newTestDeps(20, cls, api)
	h := NewMessageHandler(deps)

	h(context.Background(), nil, textUpdate(1, 100, 1, "anything"))

	if api.deletes != 0 || api.sends != 0 {
		t.Fatalf("classifier failure must not trigger moderation, got deletes=%d sends=%d", api.deletes, api.sends)
	}
}

func TestMessageHandlerContextExcludesCurrentMessage(t *testing.T) {
	t.Parallel()

	cls := &stubClassifier{verdict: classifier.Verdict{Category: classifier.CategoryNotSpam}}
	deps, _ := newTestDeps(20, cls, &noopChatAPI{})
	h := NewMessageHandler(deps)

	h(context.Background(), nil, textUpdate(1, 100, 1, "earlier message"))
	h(context.Background(), nil, textUpdate(1, 200, 2, "current message"))

	if len(cls.lastCtx) != 1 {
		t.Fatalf("classifier context has %d entries, want 1", len(cls.lastCtx))
	}
	if cls.lastCtx[0].Text != "earlier message" {
		t.Errorf("classifier context[0].Text = %q, want %q", cls.lastCtx[0].Text, "earlier message")
	}
	if cls.lastText != "current message" {
		t.Errorf("classifier text = %q, want %q", cls.lastText, "current message")
	}
}

func TestMessageHandlerIgnoresNonTextMessages(t *testing.T) {
	t.Parallel()

	cls := &stubClassifier{verdict: classifier.Verdict{Category: classifier.CategoryNotSpam}}
	deps, store := newTestDeps(20, cls, &noopChatAPI{})
	h := NewMessageHandler(deps)

	h(context.Background(), nil, textUpdate(1, 100, 1, ""))

	if cls.calls != 0 {
		t.Error("messages without text must not be classified")
	}
	// The rate counter still ticks for non-text messages.
	if got := store.Count(1, 100); got != 1 {
		t.Fatalf("Count = %d, want 1", got)
	}
}
