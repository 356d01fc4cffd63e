package memory

import (
	"context"
	"sync"

	"github.com/rateradar/currency-rate-bot/internal/domain"
)

// PriceStore - внутрипроцессный кэш курсов. После рестарта курсы
// "неизвестны" до первого цикла инжеста, как и требует контракт.
type PriceStore struct {
	mu     sync.RWMutex
	points map[string]domain.PricePoint
}

func NewPriceStore() *PriceStore {
	return &PriceStore{points: make(map[string]domain.PricePoint)}
}

func (s *PriceStore) Set(_ context.Context, point domain.PricePoint) error {
	s.mu.Lock()
	s.points[point.Pair] = point
	s.mu.Unlock()
	return nil
}

func (s *PriceStore) Get(_ context.Context, pair string) (domain.PricePoint, error) {
	s.mu.RLock()
	point, ok := s.points[pair]
	s.mu.RUnlock()
	if !ok {
		return domain.PricePoint{}, domain.ErrPriceNotFound
	}
	return point, nil
}
