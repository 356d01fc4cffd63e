package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rateradar/currency-rate-bot/internal/domain"
)

// Сколько пар одного батча проверяем параллельно
const defaultPairParallelism = 4

// CrossingEvaluator - ядро принятия решений. На каждый батч курсов
// он сверяет активные подписки с новой ценой, публикует уведомление
// на каждое пересечение и перевзводит сработавшую подписку на
// триггерную цену, чтобы следующее срабатывание требовало нового
// движения, а не доезжало на том же импульсе.
type CrossingEvaluator struct {
	registry    domain.SubscriptionRegistry
	bus         domain.EventBus
	parallelism int
	logger      *slog.Logger
}

func NewCrossingEvaluator(registry domain.SubscriptionRegistry, bus domain.EventBus, logger *slog.Logger) *CrossingEvaluator {
	return &CrossingEvaluator{
		registry:    registry,
		bus:         bus,
		parallelism: defaultPairParallelism,
		logger:      logger.With(slog.String("component", "evaluator")),
	}
}

// pairBatch - все котировки одной пары внутри батча, в исходном порядке.
// Обычно одна, но дубль пары в батче обрабатывается последовательно,
// и вторая котировка видит уже перевзведенную базу.
type pairBatch struct {
	symbol string
	rates  []decimal.Decimal
}

// EvaluateBatch обрабатывает один батч целиком. Разные пары идут
// параллельно, батчи между собой - строго последовательно (это
// гарантирует вызывающий цикл), поэтому порядок котировок по паре
// не нарушается.
func (s *CrossingEvaluator) EvaluateBatch(ctx context.Context, event domain.PriceUpdateEvent) {
	groups := groupBySymbol(event.PairsInfo)

	sem := make(chan struct{}, s.parallelism)
	var wg sync.WaitGroup

	for _, group := range groups {
		wg.Add(1)
		sem <- struct{}{}
		go func(g pairBatch) {
			defer wg.Done()
			defer func() { <-sem }()
			s.evaluatePair(ctx, g, event)
		}(group)
	}

	wg.Wait()
}

func (s *CrossingEvaluator) evaluatePair(ctx context.Context, group pairBatch, event domain.PriceUpdateEvent) {
	for _, rate := range group.rates {
		subs, err := s.registry.ListActiveForPair(ctx, group.symbol)
		if err != nil {
			// Реестр недоступен: пропускаем пару в этом батче, подписки целы
			s.logger.Error("Failed to list subscriptions",
				slog.String("pair", group.symbol),
				slog.String("err", err.Error()))
			return
		}

		for _, sub := range subs {
			if err := s.evaluateOne(ctx, sub, rate, event); err != nil {
				// Одна битая подписка не блокирует остальные
				s.logger.Error("Subscription evaluation failed",
					slog.String("id", sub.ID.String()),
					slog.String("pair", sub.Pair),
					slog.String("err", err.Error()))
			}
		}
	}
}

func (s *CrossingEvaluator) evaluateOne(ctx context.Context, sub domain.Subscription, rate decimal.Decimal, event domain.PriceUpdateEvent) error {
	// Подписка без базы (курс был неизвестен при создании) не может
	// сработать: первый наблюдаемый курс становится её базой
	if !sub.Armed() {
		s.logger.Debug("Backfilling baseline",
			slog.String("id", sub.ID.String()),
			slog.String("pair", sub.Pair),
			slog.String("rate", rate.String()))
		return s.registry.Rearm(ctx, sub.ID, rate, event.ObservedAt)
	}

	if !sub.CrossedBy(rate) {
		return nil
	}

	notification := domain.NotificationEvent{
		SubscriberID:     sub.SubscriberID,
		Pair:             sub.Pair,
		Direction:        sub.Direction,
		ThresholdPercent: sub.ThresholdPercent,
		BaselineRate:     sub.BaselineRate,
		TriggeringRate:   rate,
		ObservedAt:       event.ObservedAt,
	}

	// Сначала публикация, потом перевзвод. Если публикация не прошла,
	// базу не двигаем: следующий тик повторит срабатывание, и доставка
	// получится at-least-once вместо потерянного уведомления.
	if err := s.bus.PublishNotification(ctx, notification); err != nil {
		return err
	}

	s.logger.Info("🔔 Threshold crossed",
		slog.String("pair", sub.Pair),
		slog.String("direction", string(sub.Direction)),
		slog.String("baseline", sub.BaselineRate.String()),
		slog.String("rate", rate.String()))

	return s.registry.Rearm(ctx, sub.ID, rate, event.ObservedAt)
}

func groupBySymbol(pairs []domain.PairRate) []pairBatch {
	index := make(map[string]int, len(pairs))
	var groups []pairBatch

	for _, pr := range pairs {
		i, ok := index[pr.Symbol]
		if !ok {
			i = len(groups)
			index[pr.Symbol] = i
			groups = append(groups, pairBatch{symbol: pr.Symbol})
		}
		groups[i].rates = append(groups[i].rates, pr.Rate)
	}
	return groups
}
