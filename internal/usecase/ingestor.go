package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/rateradar/currency-rate-bot/internal/domain"
)

// FeedIngestor по расписанию забирает полный прайс-лист с фида,
// обновляет кэш по отслеживаемым парам и публикует один батч на цикл.
type FeedIngestor struct {
	feed    domain.RateFeed
	store   domain.PriceStore
	bus     domain.EventBus
	tracked domain.PairSet

	interval    time.Duration
	feedTimeout time.Duration
	logger      *slog.Logger
}

func NewFeedIngestor(
	feed domain.RateFeed,
	store domain.PriceStore,
	bus domain.EventBus,
	tracked domain.PairSet,
	interval time.Duration,
	feedTimeout time.Duration,
	logger *slog.Logger,
) *FeedIngestor {
	return &FeedIngestor{
		feed:        feed,
		store:       store,
		bus:         bus,
		tracked:     tracked,
		interval:    interval,
		feedTimeout: feedTimeout,
		logger:      logger.With(slog.String("component", "ingestor")),
	}
}

// Run крутит циклы до отмены контекста. Цикл выполняется в теле цикла
// чтения тикера, поэтому новый цикл физически не может стартовать,
// пока предыдущий в полете - пересечения исключены по построению.
func (s *FeedIngestor) Run(ctx context.Context) {
	s.logger.Info("⏰ Ingestor started", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Ingestor stopped")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				// Ошибка цикла не фатальна: лог и ждем следующего тика
				s.logger.Error("Ingest cycle skipped", slog.String("err", err.Error()))
			}
		}
	}
}

// RunOnce выполняет ровно один цикл инжеста.
// Ошибка фида роняет весь цикл: частичный батч не публикуется никогда.
func (s *FeedIngestor) RunOnce(ctx context.Context) error {
	fetchCtx, cancel := context.WithTimeout(ctx, s.feedTimeout)
	defer cancel()

	rates, err := s.feed.FetchAll(fetchCtx)
	if err != nil {
		return err
	}

	observedAt := time.Now()
	batch := make([]domain.PairRate, 0, s.tracked.Len())

	for _, pr := range rates {
		if !s.tracked.Tracks(pr.Symbol) {
			continue
		}

		point := domain.PricePoint{Pair: pr.Symbol, Rate: pr.Rate, ObservedAt: observedAt}
		if err := s.store.Set(ctx, point); err != nil {
			// Одна неудачная запись не валит цикл, но и в батч пара не попадает:
			// эвалюатор не должен видеть курс, которого нет в кэше
			s.logger.Error("Failed to cache rate",
				slog.String("pair", pr.Symbol),
				slog.String("err", err.Error()))
			continue
		}

		batch = append(batch, pr)
	}

	// Пары, которых нет в ответе фида, остаются в кэше как есть (stale)

	if len(batch) == 0 {
		s.logger.Warn("Feed response contained no tracked pairs")
		return nil
	}

	event := domain.PriceUpdateEvent{ObservedAt: observedAt, PairsInfo: batch}
	if err := s.bus.PublishPriceUpdate(ctx, event); err != nil {
		return err
	}

	s.logger.Info("⏰ Ingest cycle finished", slog.Int("pairs", len(batch)))
	return nil
}
