package usecase_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rateradar/currency-rate-bot/internal/domain"
	"github.com/rateradar/currency-rate-bot/internal/infrastructure/memory"
	"github.com/rateradar/currency-rate-bot/internal/usecase"
)

type stubFeed struct {
	rates []domain.PairRate
	err   error
}

func (f *stubFeed) FetchAll(context.Context) ([]domain.PairRate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rates, nil
}

func drainUpdates(ch <-chan domain.PriceUpdateEvent) []domain.PriceUpdateEvent {
	var out []domain.PriceUpdateEvent
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}

func newIngestorFixture(t *testing.T, feed domain.RateFeed) (*usecase.FeedIngestor, *memory.PriceStore, <-chan domain.PriceUpdateEvent) {
	t.Helper()

	logger := discardLogger()
	store := memory.NewPriceStore()
	bus := memory.NewBus(logger)
	tracked := domain.NewPairSet([]string{"BTCUSDT", "ETHUSDT"})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	updates, err := bus.SubscribePriceUpdates(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	ing := usecase.NewFeedIngestor(feed, store, bus, tracked, time.Minute, time.Second, logger)
	return ing, store, updates
}

func TestIngestor_CycleWritesStoreAndPublishesOneBatch(t *testing.T) {
	feed := &stubFeed{rates: []domain.PairRate{
		{Symbol: "BTCUSDT", Rate: d("50000")},
		{Symbol: "ETHUSDT", Rate: d("3000")},
		{Symbol: "DOGEUSDT", Rate: d("0.1")}, // не отслеживается
	}}
	ing, store, updates := newIngestorFixture(t, feed)
	ctx := context.Background()

	if err := ing.RunOnce(ctx); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	btcPoint, err := store.Get(ctx, "BTCUSDT")
	if err != nil || !btcPoint.Rate.Equal(d("50000")) {
		t.Fatalf("BTCUSDT not cached: %v %v", btcPoint, err)
	}
	if _, err := store.Get(ctx, "DOGEUSDT"); !errors.Is(err, domain.ErrPriceNotFound) {
		t.Errorf("untracked pair must not be cached")
	}

	events := drainUpdates(updates)
	if len(events) != 1 {
		t.Fatalf("exactly one batch per cycle, got %d", len(events))
	}
	if len(events[0].PairsInfo) != 2 {
		t.Fatalf("batch should contain the two tracked pairs, got %+v", events[0].PairsInfo)
	}
	if events[0].ObservedAt.IsZero() {
		t.Errorf("batch must carry a single timestamp")
	}
	if !btcPoint.ObservedAt.Equal(events[0].ObservedAt) {
		t.Errorf("store timestamp and batch timestamp must match")
	}
}

// Сбой фида: кэш не тронут, батч не опубликован, следующий цикл штатный
func TestIngestor_FeedFailureSkipsCycle(t *testing.T) {
	feed := &stubFeed{err: domain.ErrFeedUnavailable}
	ing, store, updates := newIngestorFixture(t, feed)
	ctx := context.Background()

	if err := ing.RunOnce(ctx); !errors.Is(err, domain.ErrFeedUnavailable) {
		t.Fatalf("expected ErrFeedUnavailable, got %v", err)
	}
	if _, err := store.Get(ctx, "BTCUSDT"); !errors.Is(err, domain.ErrPriceNotFound) {
		t.Errorf("store must stay untouched after failed cycle")
	}
	if events := drainUpdates(updates); len(events) != 0 {
		t.Fatalf("no batch after failed cycle, got %d", len(events))
	}

	// Фид ожил - следующий цикл проходит как ни в чем не бывало
	feed.err = nil
	feed.rates = []domain.PairRate{{Symbol: "BTCUSDT", Rate: d("50000")}}

	if err := ing.RunOnce(ctx); err != nil {
		t.Fatalf("recovered cycle failed: %v", err)
	}
	if events := drainUpdates(updates); len(events) != 1 {
		t.Fatalf("recovered cycle should publish, got %d", len(events))
	}
}

// Пары, пропавшие из ответа фида, остаются в кэше как есть
func TestIngestor_AbsentPairsLeftStale(t *testing.T) {
	feed := &stubFeed{rates: []domain.PairRate{{Symbol: "BTCUSDT", Rate: d("50000")}}}
	ing, store, updates := newIngestorFixture(t, feed)
	ctx := context.Background()

	stale := domain.PricePoint{Pair: "ETHUSDT", Rate: d("3000"), ObservedAt: time.Now().Add(-time.Hour)}
	if err := store.Set(ctx, stale); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	if err := ing.RunOnce(ctx); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	point, err := store.Get(ctx, "ETHUSDT")
	if err != nil || !point.Rate.Equal(d("3000")) || !point.ObservedAt.Equal(stale.ObservedAt) {
		t.Fatalf("absent pair must stay stale-but-present, got %+v %v", point, err)
	}

	events := drainUpdates(updates)
	if len(events) != 1 || len(events[0].PairsInfo) != 1 || events[0].PairsInfo[0].Symbol != "BTCUSDT" {
		t.Fatalf("batch should only carry pairs present in the response, got %+v", events)
	}
}

// Повтор цикла с тем же ответом фида дает те же курсы и эквивалентный батч
func TestIngestor_RerunSameResponseIsIdempotent(t *testing.T) {
	feed := &stubFeed{rates: []domain.PairRate{{Symbol: "BTCUSDT", Rate: d("50000")}}}
	ing, store, updates := newIngestorFixture(t, feed)
	ctx := context.Background()

	if err := ing.RunOnce(ctx); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if err := ing.RunOnce(ctx); err != nil {
		t.Fatalf("second cycle: %v", err)
	}

	point, _ := store.Get(ctx, "BTCUSDT")
	if !point.Rate.Equal(d("50000")) {
		t.Fatalf("rate changed on rerun: %s", point.Rate)
	}

	events := drainUpdates(updates)
	if len(events) != 2 {
		t.Fatalf("each cycle publishes its own batch, got %d", len(events))
	}
	if !events[0].PairsInfo[0].Rate.Equal(events[1].PairsInfo[0].Rate) {
		t.Errorf("batches must be equivalent apart from timestamp")
	}
}

// slowFeed отвечает дольше периода опроса и фиксирует, не зашли ли
// в него два запроса одновременно
type slowFeed struct {
	delay      time.Duration
	calls      atomic.Int32
	inFlight   atomic.Int32
	overlapped atomic.Bool
}

func (f *slowFeed) FetchAll(context.Context) ([]domain.PairRate, error) {
	if f.inFlight.Add(1) > 1 {
		f.overlapped.Store(true)
	}
	defer f.inFlight.Add(-1)

	f.calls.Add(1)
	time.Sleep(f.delay)
	return []domain.PairRate{{Symbol: "BTCUSDT", Rate: d("50000")}}, nil
}

// Циклы не накладываются: медленный фид растягивает цикл,
// пропущенные тики не порождают параллельных запросов
func TestIngestor_CyclesNeverOverlap(t *testing.T) {
	logger := discardLogger()
	feed := &slowFeed{delay: 30 * time.Millisecond}
	store := memory.NewPriceStore()
	bus := memory.NewBus(logger)
	tracked := domain.NewPairSet([]string{"BTCUSDT"})

	ing := usecase.NewFeedIngestor(feed, store, bus, tracked, 10*time.Millisecond, time.Second, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ing.Run(ctx)
		close(done)
	}()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run must stop after context cancellation")
	}

	if feed.overlapped.Load() {
		t.Fatal("feed fetches overlapped")
	}
	if calls := feed.calls.Load(); calls < 2 {
		t.Fatalf("expected several cycles, got %d", calls)
	}
}

// failingStore роняет запись по одной паре, остальные пишет штатно
type failingStore struct {
	*memory.PriceStore
	failPair string
}

func (s *failingStore) Set(ctx context.Context, point domain.PricePoint) error {
	if point.Pair == s.failPair {
		return domain.ErrStoreUnavailable
	}
	return s.PriceStore.Set(ctx, point)
}

// Сбой записи в кэш выбивает из батча только свою пару:
// эвалюатор не должен увидеть курс, которого нет в кэше
func TestIngestor_StoreWriteFailureSkipsOnlyThatPair(t *testing.T) {
	logger := discardLogger()
	feed := &stubFeed{rates: []domain.PairRate{
		{Symbol: "BTCUSDT", Rate: d("50000")},
		{Symbol: "ETHUSDT", Rate: d("3000")},
	}}
	store := &failingStore{PriceStore: memory.NewPriceStore(), failPair: "ETHUSDT"}
	bus := memory.NewBus(logger)
	tracked := domain.NewPairSet([]string{"BTCUSDT", "ETHUSDT"})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	updates, err := bus.SubscribePriceUpdates(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	ing := usecase.NewFeedIngestor(feed, store, bus, tracked, time.Minute, time.Second, logger)
	if err := ing.RunOnce(ctx); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	if _, err := store.Get(ctx, "BTCUSDT"); err != nil {
		t.Errorf("healthy pair must be cached: %v", err)
	}
	if _, err := store.Get(ctx, "ETHUSDT"); !errors.Is(err, domain.ErrPriceNotFound) {
		t.Errorf("failed pair must not appear cached, got %v", err)
	}

	events := drainUpdates(updates)
	if len(events) != 1 {
		t.Fatalf("cycle must still publish a batch, got %d", len(events))
	}
	if len(events[0].PairsInfo) != 1 || events[0].PairsInfo[0].Symbol != "BTCUSDT" {
		t.Fatalf("batch must carry only the cached pair, got %+v", events[0].PairsInfo)
	}
}

func TestIngestor_EmptyBatchNotPublished(t *testing.T) {
	// Фид отвечает, но отслеживаемых пар в ответе нет
	feed := &stubFeed{rates: []domain.PairRate{{Symbol: "DOGEUSDT", Rate: d("0.1")}}}
	ing, _, updates := newIngestorFixture(t, feed)

	if err := ing.RunOnce(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if events := drainUpdates(updates); len(events) != 0 {
		t.Fatalf("empty batch must not be published, got %d", len(events))
	}
}
