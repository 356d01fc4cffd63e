package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rateradar/currency-rate-bot/internal/domain"
)

const subscriberBuffer = 100

// Bus - шина событий на каналах, для локального запуска без Redis
// и для тестов. Публикация не блокируется: если подписчик не
// успевает, событие для него теряется с логом (как select/default
// в стриме котировок).
type Bus struct {
	logger *slog.Logger

	mu         sync.RWMutex
	priceSubs  []chan domain.PriceUpdateEvent
	notifySubs []chan domain.NotificationEvent
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{logger: logger}
}

func (b *Bus) PublishPriceUpdate(_ context.Context, event domain.PriceUpdateEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.priceSubs {
		select {
		case ch <- event:
		default:
			b.logger.Warn("Price update dropped: slow subscriber",
				slog.String("topic", domain.TopicCurrencyUpdate))
		}
	}
	return nil
}

func (b *Bus) PublishNotification(_ context.Context, event domain.NotificationEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.notifySubs {
		select {
		case ch <- event:
		default:
			b.logger.Warn("Notification dropped: slow subscriber",
				slog.String("topic", domain.TopicUserNotify))
		}
	}
	return nil
}

func (b *Bus) SubscribePriceUpdates(ctx context.Context) (<-chan domain.PriceUpdateEvent, error) {
	ch := make(chan domain.PriceUpdateEvent, subscriberBuffer)

	b.mu.Lock()
	b.priceSubs = append(b.priceSubs, ch)
	b.mu.Unlock()

	go b.reapOnDone(ctx, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, c := range b.priceSubs {
			if c == ch {
				b.priceSubs = append(b.priceSubs[:i], b.priceSubs[i+1:]...)
				close(c)
				break
			}
		}
	})

	return ch, nil
}

func (b *Bus) SubscribeNotifications(ctx context.Context) (<-chan domain.NotificationEvent, error) {
	ch := make(chan domain.NotificationEvent, subscriberBuffer)

	b.mu.Lock()
	b.notifySubs = append(b.notifySubs, ch)
	b.mu.Unlock()

	go b.reapOnDone(ctx, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, c := range b.notifySubs {
			if c == ch {
				b.notifySubs = append(b.notifySubs[:i], b.notifySubs[i+1:]...)
				close(c)
				break
			}
		}
	})

	return ch, nil
}

func (b *Bus) reapOnDone(ctx context.Context, remove func()) {
	<-ctx.Done()
	remove()
}
