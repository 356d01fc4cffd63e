package domain

import "errors"

var (
	// ErrFeedUnavailable - фид недоступен или ответ не парсится.
	// Цикл инжеста пропускается целиком, процесс живет дальше.
	ErrFeedUnavailable = errors.New("rate feed unavailable")

	// ErrInvalidSubscription - кривые параметры при создании подписки.
	// Возвращается вызывающему синхронно.
	ErrInvalidSubscription = errors.New("invalid subscription parameters")

	// ErrPairNotTracked - пара не входит в отслеживаемый набор
	ErrPairNotTracked = errors.New("pair is not tracked")

	// ErrSubscriptionNotFound - подписки с таким id нет
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrPriceNotFound - курс пары еще не наблюдался
	ErrPriceNotFound = errors.New("price not found")

	// ErrStoreUnavailable - бэкенд кэша или реестра недоступен.
	// Фатально на старте, в рантайме операция пропускается с логом.
	ErrStoreUnavailable = errors.New("backing store unavailable")
)
