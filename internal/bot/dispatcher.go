package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rateradar/currency-rate-bot/internal/domain"
)

// Dispatcher снимает уведомления с шины и отдает их в канал доставки.
// Подписка на шину и есть асинхронная развязка: медленный Telegram
// тормозит только этот цикл, эвалюатор публикует дальше.
type Dispatcher struct {
	bus      domain.EventBus
	notifier domain.Notifier
	logger   *slog.Logger
}

func NewDispatcher(bus domain.EventBus, notifier domain.Notifier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "dispatcher")),
	}
}

// Start синхронно подписывается на уведомления и запускает цикл
// доставки. После возврата из Start подписка уже действует.
func (d *Dispatcher) Start(ctx context.Context) error {
	events, err := d.bus.SubscribeNotifications(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to notifications: %w", err)
	}

	d.logger.Info("Dispatcher started")
	go d.loop(ctx, events)
	return nil
}

func (d *Dispatcher) loop(ctx context.Context, events <-chan domain.NotificationEvent) {
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Dispatcher stopped")
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			// Ошибка доставки - забота канала доставки: лог и дальше.
			// Назад в эвалюатор она не возвращается никогда.
			if err := d.notifier.Notify(event.SubscriberID, FormatNotification(event)); err != nil {
				d.logger.Error("Delivery failed",
					slog.Int64("subscriber", event.SubscriberID),
					slog.String("pair", event.Pair),
					slog.String("err", err.Error()))
			}
		}
	}
}

// FormatNotification собирает текст уведомления о пересечении порога
func FormatNotification(e domain.NotificationEvent) string {
	arrow := "📈 вырос"
	if e.Direction == domain.DirectionDown {
		arrow = "📉 упал"
	}
	return fmt.Sprintf("%s %s на %s%% и более!\nБыло: %s\nСтало: %s",
		domain.DisplayPair(e.Pair), arrow, e.ThresholdPercent.String(),
		e.BaselineRate.String(), e.TriggeringRate.String())
}
