// Package main contains the entrypoint for the anti-spam Telegram bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbot "github.com/go-telegram/bot"

	"github.com/LEXUGE/tg-anti-spam/internal/audit"
	"github.com/LEXUGE/tg-anti-spam/internal/bot"
	"github.com/LEXUGE/tg-anti-spam/internal/bot/handlers"
	"github.com/LEXUGE/tg-anti-spam/internal/bot/tasks"
	"github.com/LEXUGE/tg-anti-spam/internal/classifier"
	"github.com/LEXUGE/tg-anti-spam/internal/config"
	"github.com/LEXUGE/tg-anti-spam/internal/filter"
	"github.com/LEXUGE/tg-anti-spam/internal/logger"
	"github.com/LEXUGE/tg-anti-spam/internal/moderation"
	"github.com/LEXUGE/tg-anti-spam/internal/state"
	"github.com/LEXUGE/tg-anti-spam/internal/telegram"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all components, starts the bot, and returns the process
// exit code. Apart from configuration, the audit database, and the classifier
// client, every failure mode degrades gracefully instead of aborting startup.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)

	// A missing or corrupt snapshot yields an empty store, never an error.
	store := state.Load(cfg.State.Path, log)

	db, err := audit.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to open audit database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer audit.CloseDB(db)
	auditLog := audit.NewStore(db, log)

	cls, err := classifier.NewClient(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error("Failed to initialize classifier", "error", err)
		return 1
	}

	rateFilter := filter.New(store, cfg.Moderation.CheckThreshold, log)

	hDeps := &handlers.HandlerDeps{
		Logger:     log,
		Config:     cfg,
		State:      store,
		Filter:     rateFilter,
		Classifier: cls,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewMessageHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	if err := telegram.SetCommands(ctx, tg); err != nil {
		log.Warn("Failed to publish bot commands", "error", err)
	}

	hDeps.Coordinator = moderation.NewCoordinator(tg, store, auditLog, cfg.Moderation.MuteDuration, log)
	hDeps.Resolver = moderation.NewResolver(tg, store, auditLog, cfg.Moderation.CheckThreshold, log)

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	tDeps := tasks.TaskDeps{
		Logger:   log,
		Config:   cfg,
		State:    store,
		AuditLog: auditLog,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, cfg, store, tg, sched)

	log.Info("Starting anti-spam bot...")
	runErr := app.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
