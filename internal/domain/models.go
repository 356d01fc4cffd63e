package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Enums & Constants ---

// Direction - направление изменения курса, на которое подписан пользователь
type Direction string

const (
	DirectionUp   Direction = "up"   // Уведомить при росте
	DirectionDown Direction = "down" // Уведомить при падении
)

// ParseDirection разбирает значение из callback-данных или с шины
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case DirectionUp:
		return DirectionUp, true
	case DirectionDown:
		return DirectionDown, true
	}
	return "", false
}

// --- Entities ---

// PricePoint - последний известный курс пары. Неизменяем после создания.
type PricePoint struct {
	Pair       string
	Rate       decimal.Decimal
	ObservedAt time.Time
}

// Subscription - подписка на пересечение порога.
// BaselineRate == 0 означает "базы еще нет": подписка не взведена и не может
// сработать, пока эвалюатор не подставит первый наблюдаемый курс.
type Subscription struct {
	ID           uuid.UUID
	SubscriberID int64  // chat_id в Telegram
	Pair         string // Например "BTCUSDT"

	Direction        Direction
	ThresholdPercent decimal.Decimal // Порог в процентах, строго > 0

	BaselineRate decimal.Decimal // Курс, от которого меряем изменение
	BaselineAt   time.Time

	Active    bool
	CreatedAt time.Time
}

// Armed сообщает, есть ли у подписки база для сравнения
func (s Subscription) Armed() bool {
	return s.BaselineRate.IsPositive()
}

// ChangePercent - изменение курса относительно базы в процентах.
// Вызывать только для взведенной подписки (Armed).
func (s Subscription) ChangePercent(rate decimal.Decimal) decimal.Decimal {
	return rate.Sub(s.BaselineRate).Div(s.BaselineRate).Mul(decimal.NewFromInt(100))
}

// CrossedBy проверяет, пробивает ли курс порог подписки в её направлении.
// Ровно нулевое изменение не срабатывает никогда (порог строго положителен).
func (s Subscription) CrossedBy(rate decimal.Decimal) bool {
	if !s.Armed() {
		return false
	}
	change := s.ChangePercent(rate)
	switch s.Direction {
	case DirectionUp:
		return change.GreaterThanOrEqual(s.ThresholdPercent)
	case DirectionDown:
		return change.LessThanOrEqual(s.ThresholdPercent.Neg())
	}
	return false
}

// ValidateSubscriptionInput - общая валидация для всех реализаций реестра
func ValidateSubscriptionInput(pair string, direction Direction, thresholdPercent decimal.Decimal, tracked PairSet) error {
	if !thresholdPercent.IsPositive() {
		return ErrInvalidSubscription
	}
	if _, ok := ParseDirection(string(direction)); !ok {
		return ErrInvalidSubscription
	}
	if !tracked.Tracks(pair) {
		return ErrPairNotTracked
	}
	return nil
}
