package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/rateradar/currency-rate-bot/internal/domain"
)

const subscriberBuffer = 100

// Bus - шина событий поверх Redis pub/sub.
// Pub/sub сохраняет порядок публикаций внутри канала, что закрывает
// требование упорядоченности батчей по паре: батчи публикует один инжестор.
type Bus struct {
	client *redis.Client
	logger *slog.Logger
}

func NewBus(client *redis.Client, logger *slog.Logger) *Bus {
	return &Bus{
		client: client,
		logger: logger.With(slog.String("component", "redis_bus")),
	}
}

// --- Implementation of EventBus ---

func (b *Bus) PublishPriceUpdate(ctx context.Context, event domain.PriceUpdateEvent) error {
	return b.publish(ctx, domain.TopicCurrencyUpdate, event)
}

func (b *Bus) PublishNotification(ctx context.Context, event domain.NotificationEvent) error {
	return b.publish(ctx, domain.TopicUserNotify, event)
}

func (b *Bus) publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}
	if err := b.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (b *Bus) SubscribePriceUpdates(ctx context.Context) (<-chan domain.PriceUpdateEvent, error) {
	return subscribe[domain.PriceUpdateEvent](ctx, b, domain.TopicCurrencyUpdate)
}

func (b *Bus) SubscribeNotifications(ctx context.Context) (<-chan domain.NotificationEvent, error) {
	return subscribe[domain.NotificationEvent](ctx, b, domain.TopicUserNotify)
}

// subscribe поднимает горутину-ретранслятор: сырые сообщения канала
// разбираются в типизированные события. Битое сообщение логируется
// и пропускается, подписка живет дальше.
func subscribe[T any](ctx context.Context, b *Bus, topic string) (<-chan T, error) {
	sub := b.client.Subscribe(ctx, topic)

	// Принудительно дожидаемся подтверждения подписки,
	// чтобы не потерять события, опубликованные сразу после старта
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	out := make(chan T, subscriberBuffer)

	go func() {
		defer close(out)
		defer sub.Close()

		raw := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-raw:
				if !ok {
					return
				}
				var event T
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Error("Dropping malformed event",
						slog.String("topic", topic),
						slog.String("err", err.Error()))
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
