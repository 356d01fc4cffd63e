package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rateradar/currency-rate-bot/internal/domain"
)

// Registry - реестр подписок в памяти. Все операции идут под одним
// замком, поэтому операции над одним id линеаризуемы: Rearm не
// перетрет конкурентный Deactivate и наоборот.
type Registry struct {
	tracked domain.PairSet

	mu   sync.RWMutex
	subs map[uuid.UUID]*domain.Subscription
}

func NewRegistry(tracked domain.PairSet) *Registry {
	return &Registry{
		tracked: tracked,
		subs:    make(map[uuid.UUID]*domain.Subscription),
	}
}

// --- Implementation of SubscriptionRegistry ---

func (r *Registry) Create(_ context.Context, subscriberID int64, pair string, direction domain.Direction, thresholdPercent, baselineRate decimal.Decimal) (*domain.Subscription, error) {
	if err := domain.ValidateSubscriptionInput(pair, direction, thresholdPercent, r.tracked); err != nil {
		return nil, err
	}

	now := time.Now()
	sub := &domain.Subscription{
		ID:               uuid.New(),
		SubscriberID:     subscriberID,
		Pair:             pair,
		Direction:        direction,
		ThresholdPercent: thresholdPercent,
		BaselineRate:     baselineRate,
		BaselineAt:       now,
		Active:           true,
		CreatedAt:        now,
	}

	r.mu.Lock()
	r.subs[sub.ID] = sub
	r.mu.Unlock()

	copied := *sub
	return &copied, nil
}

func (r *Registry) ListActiveForPair(_ context.Context, pair string) ([]domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Subscription
	for _, sub := range r.subs {
		if sub.Active && sub.Pair == pair {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (r *Registry) ListActiveForSubscriber(_ context.Context, subscriberID int64) ([]domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Subscription
	for _, sub := range r.subs {
		if sub.Active && sub.SubscriberID == subscriberID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (r *Registry) Rearm(_ context.Context, id uuid.UUID, newBaselineRate decimal.Decimal, newBaselineAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	if !ok {
		return domain.ErrSubscriptionNotFound
	}
	// Конкурентно деактивированную подписку не трогаем
	if !sub.Active {
		return nil
	}

	sub.BaselineRate = newBaselineRate
	sub.BaselineAt = newBaselineAt
	return nil
}

func (r *Registry) Deactivate(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub, ok := r.subs[id]; ok {
		sub.Active = false
	}
	return nil
}
