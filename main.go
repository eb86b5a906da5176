package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"Tasmeem/ai"
	"Tasmeem/bot"
	"Tasmeem/catalog"
	"Tasmeem/core"
	"Tasmeem/flow"
	"Tasmeem/lib/sl"
	"Tasmeem/session"
	"Tasmeem/storage"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	flag.Parse()

	conf := core.MustLoad(*configPath)
	log := setupLogger(conf.Env)
	log.With(
		slog.String("config", *configPath),
		slog.String("env", conf.Env),
		slog.String("sheet", conf.Sheet.SpreadsheetId),
	).Info("starting tasmeem bot")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Seen-user storage based on config
	var seen storage.SeenStore
	if conf.Mongo.Enabled {
		mongoURI := fmt.Sprintf("mongodb://%s:%s@%s:%s",
			conf.Mongo.User, conf.Mongo.Password,
			conf.Mongo.Host, conf.Mongo.Port)
		var err error
		seen, err = storage.NewMongoSeenStore(mongoURI, conf.Mongo.Database, log)
		if err != nil {
			log.With(
				slog.String("db", conf.Mongo.Database),
				slog.String("user", conf.Mongo.User),
				slog.String("host", conf.Mongo.Host),
			).Error("falling back to memory", sl.Err(err))
			seen = storage.NewMemorySeenStore()
		} else {
			log.Info("using MongoDB storage")
		}
	} else {
		seen = storage.NewMemorySeenStore()
		log.Info("using in-memory storage")
	}

	source := catalog.NewSheetSource(conf.Sheet.SpreadsheetId, conf.Sheet.ApiKey, conf.Sheet.Range, log)
	cache := catalog.NewCache(source, log)
	if err := cache.EnsureWarm(ctx); err != nil {
		// the next refresh tick or a user lookup will retry
		log.Error("initial catalog refresh failed", sl.Err(err))
	} else {
		log.With(slog.Int("styles", cache.Size())).Info("catalog warmed up")
	}
	cache.StartAutoRefresh(ctx, conf.RefreshInterval())

	gateways := map[catalog.Provider]ai.Gateway{
		catalog.ProviderGemini: ai.NewGemini(conf.GeminiApiKey, log),
		catalog.ProviderOpenAI: ai.NewOpenAI(conf.OpenAIApiKey, log),
	}

	sessions := session.NewStore(conf.SessionTTL())
	controller := flow.NewController(cache, sessions, seen, gateways, log)

	tgBot, err := bot.NewTgBot(conf, log)
	if err != nil {
		log.Error("creating telegram", sl.Err(err))
		return
	}
	tgBot.SetController(controller)

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start bot in goroutine
	go func() {
		if err := tgBot.Start(); err != nil {
			log.Error("bot stopped with error", sl.Err(err))
		}
	}()

	log.Info("bot started")

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info("received signal, shutting down", slog.String("signal", sig.String()))

	// Graceful shutdown
	tgBot.Stop()
	cancel()

	if err := seen.Close(); err != nil {
		log.Error("error closing storage", sl.Err(err))
	}

	log.Info("shutdown complete")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
