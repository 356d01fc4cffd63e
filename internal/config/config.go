package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Пары, отслеживаемые по умолчанию
var defaultPairs = []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT", "XRPUSDT"}

// Config - глобальная конфигурация бота
type Config struct {
	Env string // "local", "prod"

	Telegram TelegramConfig
	Feed     FeedConfig
	Redis    RedisConfig
	Database DatabaseConfig
}

type TelegramConfig struct {
	BotToken string
	AdminID  int64
}

type FeedConfig struct {
	BaseURL  string
	Interval time.Duration // Период опроса фида
	Timeout  time.Duration // Таймаут одного запроса к фиду
	Pairs    []string      // Отслеживаемые пары
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// LoadConfig читает настройки из окружения (.env подхватывает
// godotenv/autoload в main)
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Env: getEnv("APP_ENV", "local"),
		Telegram: TelegramConfig{
			BotToken: os.Getenv("BOT_TOKEN"),
			AdminID:  getEnvInt64("ADMIN_ID", 0),
		},
		Feed: FeedConfig{
			BaseURL:  getEnv("FEED_BASE_URL", "https://api.binance.com"),
			Interval: getEnvDuration("FEED_INTERVAL", time.Minute),
			Timeout:  getEnvDuration("FEED_TIMEOUT", 10*time.Second),
			Pairs:    getEnvList("TRACKED_PAIRS", defaultPairs),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       int(getEnvInt64("REDIS_DB", 0)),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     int(getEnvInt64("DB_PORT", 5432)),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   getEnv("DB_NAME", "currency_bot"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}

	if cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}
	if cfg.Feed.Interval <= 0 {
		return nil, fmt.Errorf("FEED_INTERVAL must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
