// Package bot implements lifecycle management and component orchestration for
// the anti-spam bot.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/LEXUGE/tg-anti-spam/internal/config"
	"github.com/LEXUGE/tg-anti-spam/internal/state"
)

// Bot ties the Telegram listener and the scheduler together and manages their
// lifecycle.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	store     *state.Store
	tgBot     *tgbot.Bot
	scheduler *Scheduler
}

// NewBot creates the orchestrator.
func NewBot(logger *slog.Logger, cfg *config.Config, store *state.Store, tgBot *tgbot.Bot, scheduler *Scheduler) *Bot {
	return &Bot{
		logger:    logger.With("component", "orchestrator"),
		cfg:       cfg,
		store:     store,
		tgBot:     tgBot,
		scheduler: scheduler,
	}
}

// Run starts all components and blocks until the context is cancelled or a
// component fails. On shutdown a final best-effort state save is performed.
func (b *Bot) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Telegram listener...")
		b.tgBot.Start(gCtx)
		b.logger.Info("Telegram listener stopped.")

		if gCtx.Err() == nil {
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		if err := b.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	err := g.Wait()

	if saveErr := b.store.Save(b.cfg.State.Path); saveErr != nil {
		b.logger.Error("Final state save failed", "error", saveErr)
	} else {
		b.logger.Info("Final state save completed", "path", b.cfg.State.Path)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
