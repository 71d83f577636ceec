package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dujiao-next/foodcart/internal/constants"
	"github.com/dujiao-next/foodcart/internal/logger"
	"github.com/dujiao-next/foodcart/internal/models"
)

func money(v float64) models.Money {
	return models.NewMoneyFromFloat(v)
}

func product(id uint, price float64) ProductInput {
	return ProductInput{ProductID: id, ProductName: "product", Price: money(price)}
}

func restaurant(id uint, name string) RestaurantInput {
	return RestaurantInput{ID: id, Name: name, Status: constants.RestaurantStatusOpen}
}

func itemFor(id string, productID, restaurantID uint, price float64) CartItem {
	return CartItem{
		ID:             id,
		ProductID:      productID,
		ProductName:    "product",
		Price:          money(price),
		RestaurantID:   restaurantID,
		RestaurantName: "restaurant",
	}
}

func addTo(state State, item CartItem) State {
	return Reduce(state, AddItem{Item: item, Restaurant: RestaurantRef{ID: item.RestaurantID, Name: item.RestaurantName}})
}

// quoteCall 记录一次报价调用
type quoteCall struct {
	ctx         context.Context
	location    DeliveryLocation
	restaurants []RestaurantRef
}

// fakeQuoter 可编排的报价客户端
type fakeQuoter struct {
	mu      sync.Mutex
	calls   []quoteCall
	started chan int
	respond func(ctx context.Context, call int, location DeliveryLocation, restaurants []RestaurantRef) QuoteResult
}

func newFakeQuoter(respond func(ctx context.Context, call int, location DeliveryLocation, restaurants []RestaurantRef) QuoteResult) *fakeQuoter {
	return &fakeQuoter{started: make(chan int, 16), respond: respond}
}

func (q *fakeQuoter) Quote(ctx context.Context, _ IdentityKey, location *DeliveryLocation, restaurants []RestaurantRef) QuoteResult {
	q.mu.Lock()
	call := len(q.calls) + 1
	q.calls = append(q.calls, quoteCall{ctx: ctx, location: *location, restaurants: restaurants})
	q.mu.Unlock()
	select {
	case q.started <- call:
	default:
	}
	return q.respond(ctx, call, *location, restaurants)
}

func (q *fakeQuoter) callCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.calls)
}

func fixedQuote(fee float64) func(context.Context, int, DeliveryLocation, []RestaurantRef) QuoteResult {
	return func(context.Context, int, DeliveryLocation, []RestaurantRef) QuoteResult {
		return QuoteResult{Fee: money(fee), Status: constants.FeeStatusQuoted}
	}
}

type testEngineOptions struct {
	key       IdentityKey
	quoter    Quoter
	store     Store
	requireID bool
}

func newTestEngine(t *testing.T, opts testEngineOptions) (*Engine, *Persister) {
	t.Helper()
	if opts.store == nil {
		opts.store = NewMemoryStore()
	}
	if opts.key == "" && !opts.requireID {
		opts.key = GuestKey("", "")
	}
	persister := NewPersister(opts.store, PersisterOptions{Logger: logger.Nop()})
	engine := NewEngine(context.Background(), opts.key, EngineOptions{
		Persister:       persister,
		Quoter:          opts.quoter,
		QuoteTimeout:    2 * time.Second,
		RequireIdentity: opts.requireID,
		Logger:          logger.Nop(),
	})
	t.Cleanup(func() {
		engine.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = persister.Close(ctx)
	})
	return engine, persister
}

func waitIdle(t *testing.T, engine *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := engine.WaitIdle(ctx); err != nil {
		t.Fatalf("wait idle failed: %v", err)
	}
}

func waitStarted(t *testing.T, q *fakeQuoter, call int) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case got := <-q.started:
			if got == call {
				return
			}
		case <-timeout:
			t.Fatalf("quote call %d did not start", call)
		}
	}
}

func assertInvariants(t *testing.T, s State) {
	t.Helper()
	distinct := map[uint]bool{}
	quantity := 0
	for _, item := range s.Items {
		distinct[item.RestaurantID] = true
		quantity += item.Quantity
	}
	if len(distinct) != len(s.Restaurants) {
		t.Fatalf("restaurant map mismatch: items reference %d restaurants, map has %d", len(distinct), len(s.Restaurants))
	}
	for id := range s.Restaurants {
		if !distinct[id] {
			t.Fatalf("orphan restaurant %d", id)
		}
	}
	if s.ItemCount != quantity {
		t.Fatalf("item count want %d got %d", quantity, s.ItemCount)
	}
	if s.Total.Decimal.IsNegative() {
		t.Fatalf("total must not be negative: %s", s.Total)
	}
}
