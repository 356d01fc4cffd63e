package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Топики шины событий. Имена исторические, менять нельзя:
// на них подписаны внешние потребители.
const (
	TopicCurrencyUpdate = "currency.update"
	TopicUserNotify     = "user.notify"
)

// PairRate - курс одной пары внутри батча.
// decimal.Decimal сериализуется в JSON строкой, поэтому на проводе
// курс всегда string-encoded decimal.
type PairRate struct {
	Symbol string          `json:"symbol"`
	Rate   decimal.Decimal `json:"rate"`
}

// PriceUpdateEvent - один батч свежих курсов от инжестора.
// Один батч = один цикл опроса фида = одна временная метка.
type PriceUpdateEvent struct {
	ObservedAt time.Time  `json:"observedAt"`
	PairsInfo  []PairRate `json:"pairsInfo"`
}

// NotificationEvent - факт пересечения порога. Публикуется не более
// одного раза на пересечение; дедупликация при повторной доставке -
// забота потребителя.
type NotificationEvent struct {
	SubscriberID     int64           `json:"subscriberId"`
	Pair             string          `json:"pair"`
	Direction        Direction       `json:"direction"`
	ThresholdPercent decimal.Decimal `json:"thresholdPercent"`
	BaselineRate     decimal.Decimal `json:"baselineRate"`
	TriggeringRate   decimal.Decimal `json:"triggeringRate"`
	ObservedAt       time.Time       `json:"observedAt"`
}
