package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/joho/godotenv/autoload"

	"github.com/rateradar/currency-rate-bot/internal/bot"
	"github.com/rateradar/currency-rate-bot/internal/config"
	"github.com/rateradar/currency-rate-bot/internal/domain"
	"github.com/rateradar/currency-rate-bot/internal/infrastructure/binance"
	"github.com/rateradar/currency-rate-bot/internal/infrastructure/database"
	"github.com/rateradar/currency-rate-bot/internal/infrastructure/redisstore"
	"github.com/rateradar/currency-rate-bot/internal/usecase"
	"github.com/rateradar/currency-rate-bot/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	tracked := domain.NewPairSet(cfg.Feed.Pairs)

	db, err := database.NewConnection(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	priceStore, err := redisstore.NewPriceStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Error("failed to connect to redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer priceStore.Close()

	bus := redisstore.NewBus(priceStore.Client(), logger)

	registry := database.NewSubscriptionRepository(db, tracked, logger)
	feed := binance.NewClient(cfg.Feed.BaseURL, cfg.Feed.Timeout)

	ingestor := usecase.NewFeedIngestor(feed, priceStore, bus, tracked, cfg.Feed.Interval, cfg.Feed.Timeout, logger)
	evaluator := usecase.NewCrossingEvaluator(registry, bus, logger)
	manager := worker.NewManager(bus, evaluator, logger)

	tgBot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error("failed to init telegram bot", slog.String("error", err.Error()))
		os.Exit(1)
	}

	tgBot.Debug = false
	logger.Info("Telegram bot authorized", slog.String("username", tgBot.Self.UserName))

	dispatcher := bot.NewDispatcher(bus, bot.NewSender(tgBot), logger)
	botHandler := bot.NewHandler(tgBot, registry, priceStore, tracked, cfg.Telegram.AdminID, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting bot...",
		slog.String("env", cfg.Env),
		slog.Int("pairs", tracked.Len()))

	// Подписки оформляются синхронно до первого цикла инжеста,
	// иначе первый батч уйдет в пустоту
	if err := manager.Start(ctx); err != nil {
		logger.Error("failed to start manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := dispatcher.Start(ctx); err != nil {
		logger.Error("failed to start dispatcher", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Первичное наполнение кэша, чтобы меню бота сразу показывало курсы
	if err := ingestor.RunOnce(ctx); err != nil {
		logger.Error("initial feed fetch failed", slog.String("error", err.Error()))
	}

	go ingestor.Run(ctx)
	go botHandler.Start(ctx)

	<-ctx.Done()
	logger.Info("Bot stopped gracefully")
}
