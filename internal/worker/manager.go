package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rateradar/currency-rate-bot/internal/domain"
	"github.com/rateradar/currency-rate-bot/internal/usecase"
)

// Manager связывает шину событий с ядром: подписывается на батчи
// курсов и скармливает их эвалюатору. Батчи обрабатываются строго
// по одному - параллельность живет внутри EvaluateBatch (по парам),
// а порядок котировок по каждой паре сохраняется.
type Manager struct {
	bus       domain.EventBus
	evaluator *usecase.CrossingEvaluator
	logger    *slog.Logger
}

func NewManager(bus domain.EventBus, evaluator *usecase.CrossingEvaluator, logger *slog.Logger) *Manager {
	return &Manager{
		bus:       bus,
		evaluator: evaluator,
		logger:    logger.With(slog.String("component", "manager")),
	}
}

// Start синхронно оформляет подписку на шину и только потом запускает
// цикл обработки. К возврату из Start подписка уже действует: батч,
// опубликованный сразу после, потеряться не может.
func (m *Manager) Start(ctx context.Context) error {
	updates, err := m.bus.SubscribePriceUpdates(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to price updates: %w", err)
	}

	m.logger.Info("Starting Manager: Event-Driven Mode")
	go m.loop(ctx, updates)
	return nil
}

func (m *Manager) loop(ctx context.Context, updates <-chan domain.PriceUpdateEvent) {
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Manager stopped")
			return
		case event, ok := <-updates:
			if !ok {
				m.logger.Info("Price update channel closed")
				return
			}
			m.evaluator.EvaluateBatch(ctx, event)
		}
	}
}
