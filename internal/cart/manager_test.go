package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dujiao-next/foodcart/internal/logger"
)

func newTestManager(t *testing.T, idleAfter time.Duration) *Manager {
	t.Helper()
	persister := NewPersister(NewMemoryStore(), PersisterOptions{Logger: logger.Nop()})
	m := NewManager("test", EngineOptions{Persister: persister, Logger: logger.Nop()}, idleAfter)
	t.Cleanup(func() {
		_ = m.Close(flushCtx(t))
		_ = persister.Close(flushCtx(t))
	})
	return m
}

func TestManagerGetReusesEngine(t *testing.T) {
	m := newTestManager(t, time.Minute)
	ctx := context.Background()

	first, err := m.Get(ctx, UserKey("", 1))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	again, err := m.Get(ctx, UserKey("", 1))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if first != again {
		t.Fatalf("same key should reuse engine")
	}
	other, err := m.Get(ctx, UserKey("", 2))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if other == first || m.Len() != 2 {
		t.Fatalf("different keys should get different engines, len=%d", m.Len())
	}
	if m.Name() != "test" || len(m.Promos().Codes()) == 0 {
		t.Fatalf("unexpected manager metadata")
	}
}

func TestManagerEvictIdle(t *testing.T) {
	m := newTestManager(t, time.Minute)
	ctx := context.Background()

	engine, err := m.Get(ctx, GuestKey("", "a"))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	waitIdle(t, engine)

	if n := m.EvictIdle(time.Now()); n != 0 {
		t.Fatalf("fresh engine should not be evicted, got %d", n)
	}
	if n := m.EvictIdle(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Fatalf("idle engine should be evicted, got %d", n)
	}
	if m.Len() != 0 {
		t.Fatalf("manager should be empty")
	}
	fresh, err := m.Get(ctx, GuestKey("", "a"))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if fresh == engine {
		t.Fatalf("evicted engine must not be reused")
	}
}

func TestManagerEvictDisabled(t *testing.T) {
	m := newTestManager(t, 0)
	if _, err := m.Get(context.Background(), GuestKey("", "")); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if n := m.EvictIdle(time.Now().Add(24 * time.Hour)); n != 0 {
		t.Fatalf("eviction disabled, got %d", n)
	}
}

func TestManagerGetAfterClose(t *testing.T) {
	m := newTestManager(t, time.Minute)
	if err := m.Close(flushCtx(t)); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := m.Get(context.Background(), GuestKey("", "")); !errors.Is(err, ErrManagerClosed) {
		t.Fatalf("want ErrManagerClosed got %v", err)
	}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClockedManager(t *testing.T, clock *testClock, store Store) *Manager {
	t.Helper()
	persister := NewPersister(store, PersisterOptions{Logger: logger.Nop()})
	m := NewManager("test", EngineOptions{Persister: persister, Logger: logger.Nop(), Now: clock.Now}, time.Minute)
	t.Cleanup(func() {
		_ = m.Close(flushCtx(t))
		_ = persister.Close(flushCtx(t))
	})
	return m
}

func TestManagerGetKeepsEngineActive(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newClockedManager(t, clock, NewMemoryStore())
	ctx := context.Background()
	key := UserKey("", 11)

	engine, err := m.Get(ctx, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	added := mustAdd(t, engine, product(1, 100), restaurant(1, "R1"))
	waitIdle(t, engine)

	clock.Advance(2 * time.Minute)
	again, err := m.Get(ctx, key)
	if err != nil || again != engine {
		t.Fatalf("get should reuse the engine, err=%v", err)
	}
	if n := m.EvictIdle(clock.Now()); n != 0 {
		t.Fatalf("engine fetched just now should not be evicted, got %d", n)
	}
	state, err := again.UpdateQuantity(ctx, added.Item.ID, 5)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if state.Items[0].Quantity != 5 {
		t.Fatalf("want quantity 5 got %d", state.Items[0].Quantity)
	}
}

func TestEvictedEngineRejectsWrites(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newClockedManager(t, clock, NewMemoryStore())
	ctx := context.Background()
	key := GuestKey("", "evicted")

	engine, err := m.Get(ctx, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	added := mustAdd(t, engine, product(1, 100), restaurant(1, "R1"))
	waitIdle(t, engine)

	clock.Advance(2 * time.Minute)
	if n := m.EvictIdle(clock.Now()); n != 1 {
		t.Fatalf("idle engine should be evicted, got %d", n)
	}

	if _, err := engine.UpdateQuantity(ctx, added.Item.ID, 5); !errors.Is(err, ErrEngineClosed) {
		t.Fatalf("update on evicted engine want ErrEngineClosed got %v", err)
	}
	if _, err := engine.RemoveItem(ctx, added.Item.ID); !errors.Is(err, ErrEngineClosed) {
		t.Fatalf("remove on evicted engine want ErrEngineClosed got %v", err)
	}
	if _, err := engine.SetDiscount(ctx, money(5)); !errors.Is(err, ErrEngineClosed) {
		t.Fatalf("discount on evicted engine want ErrEngineClosed got %v", err)
	}
	if _, err := engine.SetDeliveryFee(ctx, money(5)); !errors.Is(err, ErrEngineClosed) {
		t.Fatalf("fee on evicted engine want ErrEngineClosed got %v", err)
	}
	if _, err := engine.SetDeliveryLocation(ctx, locationA); !errors.Is(err, ErrEngineClosed) {
		t.Fatalf("location on evicted engine want ErrEngineClosed got %v", err)
	}
	if _, err := engine.ApplyPromoCode(ctx, "SAVE10"); !errors.Is(err, ErrEngineClosed) {
		t.Fatalf("promo on evicted engine want ErrEngineClosed got %v", err)
	}
	if _, err := engine.RemovePromoCode(ctx); !errors.Is(err, ErrEngineClosed) {
		t.Fatalf("promo removal on evicted engine want ErrEngineClosed got %v", err)
	}
	if _, err := engine.ClearCart(ctx); !errors.Is(err, ErrEngineClosed) {
		t.Fatalf("clear on evicted engine want ErrEngineClosed got %v", err)
	}
	if result := engine.AddItem(ctx, product(2, 10), restaurant(1, "R1")); result.Success || !errors.Is(result.Err, ErrEngineClosed) {
		t.Fatalf("add on evicted engine should fail, got %+v", result)
	}

	fresh, err := m.Get(ctx, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if fresh == engine {
		t.Fatalf("evicted engine must not be reused")
	}
	state, err := fresh.UpdateQuantity(ctx, added.Item.ID, 5)
	if err != nil {
		t.Fatalf("update on fresh engine failed: %v", err)
	}
	if len(state.Items) != 1 || state.Items[0].Quantity != 5 {
		t.Fatalf("fresh engine should carry the evicted cart, got %+v", state.Items)
	}
}
