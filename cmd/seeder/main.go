package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/rateradar/currency-rate-bot/internal/config"
	"github.com/rateradar/currency-rate-bot/internal/domain"
	"github.com/rateradar/currency-rate-bot/internal/infrastructure/database"
)

// Схема реестра. Сидер накатывает её сам, чтобы локальный запуск
// не требовал отдельных миграций.
const schema = `
CREATE TABLE IF NOT EXISTS subscriptions (
	id                UUID PRIMARY KEY,
	subscriber_id     BIGINT NOT NULL,
	pair              TEXT NOT NULL,
	direction         TEXT NOT NULL,
	threshold_percent NUMERIC NOT NULL,
	baseline_rate     NUMERIC NOT NULL,
	baseline_at       TIMESTAMPTZ NOT NULL,
	active            BOOLEAN NOT NULL DEFAULT TRUE,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_subscriptions_pair_active
	ON subscriptions (pair) WHERE active;
CREATE INDEX IF NOT EXISTS idx_subscriptions_subscriber_active
	ON subscriptions (subscriber_id) WHERE active;
`

func main() {
	// 1. Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	if cfg.Env != "local" {
		log.Fatal("Seeder allowed only in local environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// 2. Database
	db, err := database.NewConnection(database.Config{
		Host: cfg.Database.Host, Port: cfg.Database.Port, User: cfg.Database.User,
		Password: cfg.Database.Password, DBName: cfg.Database.DBName, SSLMode: cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	log.Println("✅ Schema applied")

	// 3. Тестовая подписка для чата 12345
	tracked := domain.NewPairSet(cfg.Feed.Pairs)
	repo := database.NewSubscriptionRepository(db, tracked, logger)

	existing, err := repo.ListActiveForSubscriber(ctx, 12345)
	if err != nil {
		log.Fatalf("Failed to list subscriptions: %v", err)
	}
	if len(existing) > 0 {
		log.Printf("[Seeder] Found %d active subscriptions for test chat. Skipping creation.", len(existing))
		return
	}

	// База 0: взведется первым циклом инжеста
	sub, err := repo.Create(ctx, 12345, "BTCUSDT", domain.DirectionUp,
		decimal.RequireFromString("2"), decimal.Zero)
	if err != nil {
		log.Fatalf("Failed to create subscription: %v", err)
	}

	log.Printf("✅ Subscription created! ID: %s", sub.ID)
}
