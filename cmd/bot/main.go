// Package main contains the entrypoint for the blessing bot application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/chengmaomao/sendblessings/internal/blessing"
	"github.com/chengmaomao/sendblessings/internal/bot"
	"github.com/chengmaomao/sendblessings/internal/bot/handlers"
	"github.com/chengmaomao/sendblessings/internal/bot/tasks"
	"github.com/chengmaomao/sendblessings/internal/config"
	"github.com/chengmaomao/sendblessings/internal/database"
	"github.com/chengmaomao/sendblessings/internal/dispatch"
	"github.com/chengmaomao/sendblessings/internal/holiday"
	"github.com/chengmaomao/sendblessings/internal/imagegen"
	"github.com/chengmaomao/sendblessings/internal/logger"
	"github.com/chengmaomao/sendblessings/internal/nap"
	"github.com/chengmaomao/sendblessings/internal/telegram"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger,
// ledger, holiday cache, composer, image generator, bot, scheduler), handles
// graceful shutdown, and returns an exit code.
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
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to open delivery ledger", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	source := holiday.NewHTTPSource(cfg.Holiday.SourceURL, cfg.Holiday.Timeout)
	holidays := holiday.NewCache(cfg.Holiday.CacheFile, source, log)
	if err := holidays.Load(ctx); err != nil {
		// Not fatal: the cache refills on the next reload or refresh task.
		log.Warn("Holiday calendar not loaded at startup", "error", err)
	}

	var textGen blessing.TextGenerator
	if cfg.Blessing.APIKey != "" {
		gemini, err := blessing.NewGeminiGenerator(ctx, cfg.Blessing, log)
		if err != nil {
			log.Error("Failed to initialize blessing text generator", "error", err)
			return 1
		}
		textGen = gemini
	} else {
		log.Info("No blessing API key configured, using built-in templates")
	}
	composer := blessing.NewComposer(textGen, cfg.Blessing.Timeout, log)

	var relay imagegen.Relay
	if cfg.NAP.Address != "" && cfg.NAP.Address != "localhost" {
		relay = nap.NewClient(cfg.NAP.Address, cfg.NAP.Port, cfg.NAP.Timeout, log)
	}

	var generator *imagegen.Generator
	var imageSvc dispatch.ImageService
	if cfg.Image.Enabled && len(cfg.Image.APIKeys) > 0 {
		pool, err := imagegen.NewKeyPool(cfg.Image.APIKeys)
		if err != nil {
			log.Error("Failed to initialize image API key pool", "error", err)
			return 1
		}
		generator = imagegen.NewGenerator(cfg.Image, pool, relay, log)
		imageSvc = generator
	} else {
		log.Info("Image generation disabled, blessings will be text-only")
	}

	refImages := imagegen.LoadReferenceImages(cfg.Image.Reference, log)
	targets := telegram.TargetsFromConfig(cfg.Telegram)

	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log,
		tgbot.WithMiddlewares(logger.Middleware(log)))
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

	messenger := telegram.NewMessenger(tg, log)
	dispatcher := dispatch.NewDispatcher(log, composer, imageSvc, messenger, store, targets, refImages)

	hDeps := handlers.HandlerDeps{
		Logger:     log,
		Config:     cfg,
		Holidays:   holidays,
		Dispatcher: dispatcher,
	}
	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	tDeps := tasks.TaskDeps{
		Logger:     log,
		Config:     cfg,
		Holidays:   holidays,
		Dispatcher: dispatcher,
		Generator:  generator,
		Store:      store,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, cfg, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
