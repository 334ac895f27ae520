package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AnDev002/G-Mall-BE-sub001/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCounter mimics the Redis stock counter: absent keys fail closed, and
// reserve is check-and-decrement under one lock.
type fakeCounter struct {
	mu       sync.Mutex
	stock    map[int64]int
	reserves []int64 // product ids in reserve-call order
	releases []int64
	failWith error
}

func newFakeCounter(stock map[int64]int) *fakeCounter {
	s := make(map[int64]int, len(stock))
	for k, v := range stock {
		s[k] = v
	}
	return &fakeCounter{stock: s}
}

func (c *fakeCounter) Reserve(ctx context.Context, productID int64, quantity int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failWith != nil {
		return false, c.failWith
	}

	c.reserves = append(c.reserves, productID)
	current, ok := c.stock[productID]
	if !ok || current < quantity {
		return false, nil
	}
	c.stock[productID] = current - quantity
	return true, nil
}

func (c *fakeCounter) Release(ctx context.Context, productID int64, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.releases = append(c.releases, productID)
	c.stock[productID] += quantity
	return nil
}

func (c *fakeCounter) value(productID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stock[productID]
}

// fakeStore mimics the durable store's commit transaction: idempotency
// short-circuit, conditional decrement, all-or-nothing under one lock.
type fakeStore struct {
	mu       sync.Mutex
	prices   map[int64]int64
	stock    map[int64]int
	orders   map[string]int64 // order id -> committed total
	failWith error
}

func newFakeStore(prices map[int64]int64, stock map[int64]int) *fakeStore {
	s := make(map[int64]int, len(stock))
	for k, v := range stock {
		s[k] = v
	}
	return &fakeStore{prices: prices, stock: s, orders: make(map[string]int64)}
}

func (s *fakeStore) CommitOrder(ctx context.Context, job *models.OrderJob) (*CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return nil, s.failWith
	}

	if total, ok := s.orders[job.OrderID]; ok {
		return &CommitResult{Total: total, Replayed: true}, nil
	}

	for _, item := range job.Items {
		if _, ok := s.prices[item.ProductID]; !ok {
			return nil, ErrUnitNotFound
		}
		if s.stock[item.ProductID] < item.Quantity {
			return nil, ErrStockConflict
		}
	}

	var total int64
	for _, item := range job.Items {
		s.stock[item.ProductID] -= item.Quantity
		total += s.prices[item.ProductID] * int64(item.Quantity)
	}
	s.orders[job.OrderID] = total

	return &CommitResult{Total: total}, nil
}

func (s *fakeStore) committed(orderID string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total, ok := s.orders[orderID]
	return total, ok
}

func (s *fakeStore) stockOf(productID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[productID]
}

type purchase struct {
	orderID string
	total   int64
}

type fakeEffects struct {
	mu            sync.Mutex
	cleared       []int64
	purchases     []purchase
	failCart      error
	failAnalytics error
}

func (e *fakeEffects) OrderCommitted(ctx context.Context, orderID string, buyerID int64, directPurchase bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failCart != nil {
		return e.failCart
	}
	e.cleared = append(e.cleared, buyerID)
	return nil
}

func (e *fakeEffects) PurchaseRecorded(ctx context.Context, orderID string, totalAmount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failAnalytics != nil {
		return e.failAnalytics
	}
	e.purchases = append(e.purchases, purchase{orderID: orderID, total: totalAmount})
	return nil
}

func newJob(orderID string, items ...models.JobItem) *models.OrderJob {
	return &models.OrderJob{
		OrderID:       orderID,
		BuyerID:       77,
		Items:         items,
		PaymentMethod: "COD",
		EnqueuedAt:    time.Now(),
	}
}

func TestProcessCommitsOrder(t *testing.T) {
	counter := newFakeCounter(map[int64]int{1: 10, 2: 5})
	store := newFakeStore(map[int64]int64{1: 1000, 2: 500}, map[int64]int{1: 10, 2: 5})
	effects := &fakeEffects{}
	p := NewPipeline(counter, store, effects, time.Second)

	job := newJob("ord-1",
		models.JobItem{ProductID: 1, Quantity: 2},
		models.JobItem{ProductID: 2, Quantity: 1})

	outcome := p.Process(context.Background(), job)

	require.Equal(t, Succeeded, outcome.Status)
	assert.Equal(t, "ord-1", outcome.OrderID)

	total, ok := store.committed("ord-1")
	require.True(t, ok)
	assert.Equal(t, int64(2*1000+1*500), total)

	assert.Equal(t, 8, counter.value(1))
	assert.Equal(t, 4, counter.value(2))
	assert.Equal(t, 8, store.stockOf(1))
	assert.Equal(t, 4, store.stockOf(2))

	require.Len(t, effects.purchases, 1)
	assert.Equal(t, purchase{orderID: "ord-1", total: total}, effects.purchases[0])
	assert.Equal(t, []int64{77}, effects.cleared)
}

func TestDirectPurchaseSkipsCartClear(t *testing.T) {
	counter := newFakeCounter(map[int64]int{1: 3})
	store := newFakeStore(map[int64]int64{1: 100}, map[int64]int{1: 3})
	effects := &fakeEffects{}
	p := NewPipeline(counter, store, effects, time.Second)

	job := newJob("ord-direct", models.JobItem{ProductID: 1, Quantity: 1})
	job.DirectPurchase = true

	outcome := p.Process(context.Background(), job)

	require.Equal(t, Succeeded, outcome.Status)
	assert.Empty(t, effects.cleared)
	assert.Len(t, effects.purchases, 1)
}

func TestFailFastOrdering(t *testing.T) {
	// Items [A: ok, B: insufficient, C: ok]: C must never be attempted and
	// only A may be released.
	counter := newFakeCounter(map[int64]int{10: 5, 20: 0, 30: 5})
	store := newFakeStore(map[int64]int64{10: 1, 20: 1, 30: 1}, map[int64]int{10: 5, 20: 0, 30: 5})
	effects := &fakeEffects{}
	p := NewPipeline(counter, store, effects, time.Second)

	job := newJob("ord-ff",
		models.JobItem{ProductID: 10, Quantity: 1},
		models.JobItem{ProductID: 20, Quantity: 1},
		models.JobItem{ProductID: 30, Quantity: 1})

	outcome := p.Process(context.Background(), job)

	require.Equal(t, Fatal, outcome.Status)
	assert.True(t, errors.Is(outcome.Err, ErrReservationDenied))

	assert.Equal(t, []int64{10, 20}, counter.reserves)
	assert.Equal(t, []int64{10}, counter.releases)

	// Counters back at their pre-job values.
	assert.Equal(t, 5, counter.value(10))
	assert.Equal(t, 0, counter.value(20))
	assert.Equal(t, 5, counter.value(30))

	_, committed := store.committed("ord-ff")
	assert.False(t, committed)
	assert.Empty(t, effects.purchases)
}

func TestNoLeakOnTransientCommitFailure(t *testing.T) {
	counter := newFakeCounter(map[int64]int{1: 4, 2: 4})
	store := newFakeStore(map[int64]int64{1: 1, 2: 1}, map[int64]int{1: 4, 2: 4})
	store.failWith = errors.New("connection reset by peer")
	effects := &fakeEffects{}
	p := NewPipeline(counter, store, effects, time.Second)

	job := newJob("ord-transient",
		models.JobItem{ProductID: 1, Quantity: 2},
		models.JobItem{ProductID: 2, Quantity: 3})

	outcome := p.Process(context.Background(), job)

	require.Equal(t, Retriable, outcome.Status)
	assert.Error(t, outcome.Err)

	// Reserve then release nets to zero so the retry starts clean.
	assert.Equal(t, 4, counter.value(1))
	assert.Equal(t, 4, counter.value(2))
}

func TestAuthoritativeBackstop(t *testing.T) {
	// The fast counter erroneously shows 5 while authoritative stock is 0.
	// The conditional decrement must abort, the counter must be restored and
	// authoritative stock must remain untouched.
	counter := newFakeCounter(map[int64]int{7: 5})
	store := newFakeStore(map[int64]int64{7: 100}, map[int64]int{7: 0})
	effects := &fakeEffects{}
	p := NewPipeline(counter, store, effects, time.Second)

	job := newJob("ord-drift", models.JobItem{ProductID: 7, Quantity: 1})

	outcome := p.Process(context.Background(), job)

	require.Equal(t, Fatal, outcome.Status)
	assert.True(t, errors.Is(outcome.Err, ErrStockConflict))

	assert.Equal(t, 5, counter.value(7))
	assert.Equal(t, 0, store.stockOf(7))
	_, committed := store.committed("ord-drift")
	assert.False(t, committed)
}

func TestUninitializedCounterFailsClosed(t *testing.T) {
	// Product 99 was never synced into the counter; it must read as "no
	// stock" even though the durable store has plenty.
	counter := newFakeCounter(map[int64]int{})
	store := newFakeStore(map[int64]int64{99: 100}, map[int64]int{99: 50})
	effects := &fakeEffects{}
	p := NewPipeline(counter, store, effects, time.Second)

	outcome := p.Process(context.Background(), newJob("ord-cold", models.JobItem{ProductID: 99, Quantity: 1}))

	require.Equal(t, Fatal, outcome.Status)
	assert.True(t, errors.Is(outcome.Err, ErrReservationDenied))
	assert.Equal(t, 50, store.stockOf(99))
}

func TestValidationRejectsBeforeReserving(t *testing.T) {
	counter := newFakeCounter(map[int64]int{1: 5})
	store := newFakeStore(map[int64]int64{1: 1}, map[int64]int{1: 5})
	effects := &fakeEffects{}
	p := NewPipeline(counter, store, effects, time.Second)

	for _, job := range []*models.OrderJob{
		newJob("ord-zero", models.JobItem{ProductID: 1, Quantity: 0}),
		newJob("ord-neg", models.JobItem{ProductID: 1, Quantity: -2}),
		newJob("ord-empty"),
	} {
		outcome := p.Process(context.Background(), job)
		require.Equal(t, Fatal, outcome.Status, job.OrderID)
		assert.True(t, errors.Is(outcome.Err, ErrInvalidQuantity), job.OrderID)
	}

	// Nothing was reserved, so nothing may have been released either.
	assert.Empty(t, counter.reserves)
	assert.Empty(t, counter.releases)
}

func TestIdempotentRedelivery(t *testing.T) {
	counter := newFakeCounter(map[int64]int{1: 10})
	store := newFakeStore(map[int64]int64{1: 250}, map[int64]int{1: 10})
	effects := &fakeEffects{}
	p := NewPipeline(counter, store, effects, time.Second)

	job := newJob("ord-replay", models.JobItem{ProductID: 1, Quantity: 3})

	first := p.Process(context.Background(), job)
	require.Equal(t, Succeeded, first.Status)

	// Redelivery of the same job: must succeed without a second decrement of
	// authoritative stock, and must hand back the counter units this attempt
	// re-reserved.
	second := p.Process(context.Background(), job)
	require.Equal(t, Succeeded, second.Status)

	total, ok := store.committed("ord-replay")
	require.True(t, ok)
	assert.Equal(t, int64(750), total)
	assert.Equal(t, 7, store.stockOf(1))
	assert.Equal(t, 7, counter.value(1))
}

func TestEffectFailureNeverCompensates(t *testing.T) {
	counter := newFakeCounter(map[int64]int{1: 5})
	store := newFakeStore(map[int64]int64{1: 100}, map[int64]int{1: 5})
	effects := &fakeEffects{
		failCart:      errors.New("cart service down"),
		failAnalytics: errors.New("broker down"),
	}
	p := NewPipeline(counter, store, effects, time.Second)

	outcome := p.Process(context.Background(), newJob("ord-fx", models.JobItem{ProductID: 1, Quantity: 2}))

	// The order committed; effect failures must not fail the job and, above
	// all, must not release the committed stock.
	require.Equal(t, Succeeded, outcome.Status)
	assert.Empty(t, counter.releases)
	assert.Equal(t, 3, counter.value(1))
	assert.Equal(t, 3, store.stockOf(1))
}

func TestConcurrentSingleUnitRace(t *testing.T) {
	// Authoritative stock 1, counter 1, two concurrent jobs for 1 unit each:
	// exactly one commits, the other is denied, no oversell, no leak.
	counter := newFakeCounter(map[int64]int{1: 1})
	store := newFakeStore(map[int64]int64{1: 100}, map[int64]int{1: 1})
	effects := &fakeEffects{}
	p := NewPipeline(counter, store, effects, time.Second)

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			job := newJob([]string{"ord-j1", "ord-j2"}[i], models.JobItem{ProductID: 1, Quantity: 1})
			outcomes[i] = p.Process(context.Background(), job)
		}(i)
	}
	wg.Wait()

	succeeded, denied := 0, 0
	for _, o := range outcomes {
		switch {
		case o.Status == Succeeded:
			succeeded++
		case o.Status == Fatal && errors.Is(o.Err, ErrReservationDenied):
			denied++
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, denied)
	assert.Equal(t, 0, counter.value(1))
	assert.Equal(t, 0, store.stockOf(1))
}

func TestNoOversellUnderContention(t *testing.T) {
	// 20 concurrent buyers fight over 3 units; committed quantity across all
	// winners must never exceed authoritative stock.
	const stock = 3
	const buyers = 20

	counter := newFakeCounter(map[int64]int{1: stock})
	store := newFakeStore(map[int64]int64{1: 100}, map[int64]int{1: stock})
	effects := &fakeEffects{}
	p := NewPipeline(counter, store, effects, time.Second)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			job := newJob(string(rune('a'+i))+"-ord", models.JobItem{ProductID: 1, Quantity: 1})
			job.BuyerID = int64(i)
			if p.Process(context.Background(), job).Status == Succeeded {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, stock, succeeded)
	assert.Equal(t, 0, counter.value(1))
	assert.Equal(t, 0, store.stockOf(1))
}

func TestUnitVanishedBetweenEnqueueAndCommit(t *testing.T) {
	counter := newFakeCounter(map[int64]int{5: 2})
	// Counter knows product 5, catalog does not: hard failure, compensated.
	store := newFakeStore(map[int64]int64{}, map[int64]int{})
	effects := &fakeEffects{}
	p := NewPipeline(counter, store, effects, time.Second)

	outcome := p.Process(context.Background(), newJob("ord-gone", models.JobItem{ProductID: 5, Quantity: 1}))

	require.Equal(t, Fatal, outcome.Status)
	assert.True(t, errors.Is(outcome.Err, ErrUnitNotFound))
	assert.Equal(t, 2, counter.value(5))
}
