package redisstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rateradar/currency-rate-bot/internal/domain"
)

// PriceStore хранит последний известный курс пары в Redis.
// Контракт ключей: SET <pair> "<decimal-string>", плюс <pair>:ts с меткой
// наблюдения, чтобы курс переживал рестарт вместе со временем.
type PriceStore struct {
	client *redis.Client
	logger *slog.Logger
}

func NewPriceStore(addr, password string, db int, logger *slog.Logger) (*PriceStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Мертвый Redis на старте - фатально, в рантайме ошибки переживаем
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("%w: redis ping: %v", domain.ErrStoreUnavailable, err)
	}

	logger.Info("Redis price store initialized", slog.String("addr", addr))

	return &PriceStore{client: client, logger: logger}, nil
}

func tsKey(pair string) string { return pair + ":ts" }

func (s *PriceStore) Set(ctx context.Context, point domain.PricePoint) error {
	pipe := s.client.Pipeline()
	pipe.Set(ctx, point.Pair, point.Rate.String(), 0)
	pipe.Set(ctx, tsKey(point.Pair), point.ObservedAt.UTC().Format(time.RFC3339Nano), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache rate %s: %w", point.Pair, err)
	}
	return nil
}

func (s *PriceStore) Get(ctx context.Context, pair string) (domain.PricePoint, error) {
	raw, err := s.client.Get(ctx, pair).Result()
	if errors.Is(err, redis.Nil) {
		return domain.PricePoint{}, domain.ErrPriceNotFound
	}
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("read rate %s: %w", pair, err)
	}

	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("corrupted rate for %s: %w", pair, err)
	}

	point := domain.PricePoint{Pair: pair, Rate: rate}

	// Метки может не быть (ключ писала старая версия) - это не ошибка
	if rawTS, err := s.client.Get(ctx, tsKey(pair)).Result(); err == nil {
		if ts, perr := time.Parse(time.RFC3339Nano, rawTS); perr == nil {
			point.ObservedAt = ts
		}
	}

	return point, nil
}

func (s *PriceStore) Close() error {
	return s.client.Close()
}

// Client отдает подключение для шины событий: один коннект на процесс
func (s *PriceStore) Client() *redis.Client {
	return s.client
}
