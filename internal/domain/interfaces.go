package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceStore - кэш последнего известного курса по паре.
// Семантика last-write-wins: единственный писатель на ключ - инжестор.
type PriceStore interface {
	// Get возвращает ErrPriceNotFound, если курс пары еще не наблюдался
	Get(ctx context.Context, pair string) (PricePoint, error)

	// Set безусловно перезаписывает курс пары
	Set(ctx context.Context, point PricePoint) error
}

// SubscriptionRegistry - реестр активных подписок.
// Операции над одним id линеаризуемы: конкурентные Rearm и Deactivate
// не теряют обновлений.
type SubscriptionRegistry interface {
	// Create выдает новой подписке свежий id и active=true.
	// Возвращает ErrInvalidSubscription при пороге <= 0 и
	// ErrPairNotTracked для неотслеживаемой пары.
	Create(ctx context.Context, subscriberID int64, pair string, direction Direction, thresholdPercent, baselineRate decimal.Decimal) (*Subscription, error)

	// ListActiveForPair отражает самое свежее перевзведенное состояние
	ListActiveForPair(ctx context.Context, pair string) ([]Subscription, error)

	// ListActiveForSubscriber - подписки одного чата, для меню бота
	ListActiveForSubscriber(ctx context.Context, subscriberID int64) ([]Subscription, error)

	// Rearm атомарно двигает базу одной подписки.
	// Если подписку конкурентно деактивировали - тихий no-op (nil).
	Rearm(ctx context.Context, id uuid.UUID, newBaselineRate decimal.Decimal, newBaselineAt time.Time) error

	// Deactivate помечает подписку неактивной. Идемпотентна.
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// EventBus - асинхронная граница между инжестором, эвалюатором и доставкой.
// Порядок публикаций внутри одного топика сохраняется.
type EventBus interface {
	PublishPriceUpdate(ctx context.Context, event PriceUpdateEvent) error
	PublishNotification(ctx context.Context, event NotificationEvent) error

	SubscribePriceUpdates(ctx context.Context) (<-chan PriceUpdateEvent, error)
	SubscribeNotifications(ctx context.Context) (<-chan NotificationEvent, error)
}

// RateFeed - внешний фид курсов (Binance REST)
type RateFeed interface {
	// FetchAll возвращает полный текущий список курсов.
	// Сетевая ошибка или кривой ответ - ErrFeedUnavailable (wrapped).
	FetchAll(ctx context.Context) ([]PairRate, error)
}

// Notifier - канал доставки уведомлений пользователю (Telegram)
type Notifier interface {
	Notify(subscriberID int64, text string) error
}
