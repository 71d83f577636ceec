package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dujiao-next/foodcart/internal/cart"
	"github.com/dujiao-next/foodcart/internal/models"
	"github.com/dujiao-next/foodcart/internal/queue"
	"github.com/dujiao-next/foodcart/internal/repository"

	"github.com/hibiken/asynq"
)

func setupCartSnapshotStore(t *testing.T) *CartSnapshotStore {
	t.Helper()
	db := openServiceTestDB(t, &models.CartSnapshot{})
	return NewCartSnapshotStore(repository.NewCartSnapshotRepository(db))
}

func TestCartSnapshotStoreRevisionGuard(t *testing.T) {
	store := setupCartSnapshotStore(t)
	ctx := context.Background()
	key := cart.UserKey("cart_", 7)

	if record, err := store.Load(ctx, key); err != nil || record != nil {
		t.Fatalf("missing key should load nil: %+v err=%v", record, err)
	}

	now := time.Now().UTC()
	if err := store.Save(ctx, cart.Record{Key: key, Revision: 2, Payload: []byte(`{"v":2}`), UpdatedAt: now}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Save(ctx, cart.Record{Key: key, Revision: 1, Payload: []byte(`{"v":1}`), UpdatedAt: now}); err != nil {
		t.Fatalf("stale save should be ignored silently: %v", err)
	}
	record, err := store.Load(ctx, key)
	if err != nil || record == nil {
		t.Fatalf("load failed: %+v err=%v", record, err)
	}
	if record.Revision != 2 || string(record.Payload) != `{"v":2}` {
		t.Fatalf("stale write overwrote newer record: %+v", record)
	}

	if err := store.Delete(ctx, key, 1); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if record, _ := store.Load(ctx, key); record == nil {
		t.Fatalf("stale delete should keep newer record")
	}
	if err := store.Delete(ctx, key, 3); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	record, err = store.Load(ctx, key)
	if err != nil || record == nil || !record.Deleted || record.Revision != 3 || len(record.Payload) != 0 {
		t.Fatalf("delete should leave a tombstone: %+v err=%v", record, err)
	}
}

func TestCartSnapshotStoreStaleSaveAfterDelete(t *testing.T) {
	store := setupCartSnapshotStore(t)
	ctx := context.Background()
	key := cart.GuestKey("guest_cart", "s1")
	payload := []byte(`{"items":[{"id":"1","product_id":1,"price":"10","quantity":1,"restaurant_id":1}]}`)

	if err := store.Save(ctx, cart.Record{Key: key, Revision: 4, Payload: payload}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Delete(ctx, key, 5); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := store.Save(ctx, cart.Record{Key: key, Revision: 4, Payload: payload}); err != nil {
		t.Fatalf("late save failed: %v", err)
	}

	p := cart.NewPersister(store, cart.PersisterOptions{})
	defer p.Close(context.Background())
	_, revision, found := p.Load(ctx, key)
	if found {
		t.Fatalf("cleared cart resurrected by a stale save")
	}
	if revision != 5 {
		t.Fatalf("tombstone revision want 5 got %d", revision)
	}
}

func TestCartSnapshotStoreHonoursContext(t *testing.T) {
	store := setupCartSnapshotStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Save(ctx, cart.Record{Key: cart.GuestKey("guest_cart", ""), Revision: 1, Payload: []byte(`{}`)}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled got %v", err)
	}
	if err := store.Save(context.Background(), cart.Record{Revision: 1}); !errors.Is(err, ErrCartSnapshotInvalid) {
		t.Fatalf("want ErrCartSnapshotInvalid got %v", err)
	}
}

func TestCartSnapshotStorePurgeBefore(t *testing.T) {
	store := setupCartSnapshotStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	old := cart.UserKey("cart_", 1)
	fresh := cart.UserKey("cart_", 2)
	if err := store.Save(ctx, cart.Record{Key: old, Revision: 1, Payload: []byte(`{}`), UpdatedAt: now.Add(-48 * time.Hour)}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Save(ctx, cart.Record{Key: fresh, Revision: 1, Payload: []byte(`{}`), UpdatedAt: now}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	purged, err := store.PurgeBefore(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if purged != 1 {
		t.Fatalf("want 1 purged got %d", purged)
	}
	if record, _ := store.Load(ctx, fresh); record == nil {
		t.Fatalf("fresh record should survive")
	}
}

type fakeSnapshotEnqueuer struct {
	enabled  bool
	err      error
	persists []queue.CartSnapshotPersistPayload
	deletes  []queue.CartSnapshotDeletePayload
}

func (f *fakeSnapshotEnqueuer) Enabled() bool { return f.enabled }

func (f *fakeSnapshotEnqueuer) EnqueueCartSnapshotPersist(payload queue.CartSnapshotPersistPayload, _ ...asynq.Option) error {
	if f.err != nil {
		return f.err
	}
	f.persists = append(f.persists, payload)
	return nil
}

func (f *fakeSnapshotEnqueuer) EnqueueCartSnapshotDelete(payload queue.CartSnapshotDeletePayload, _ ...asynq.Option) error {
	if f.err != nil {
		return f.err
	}
	f.deletes = append(f.deletes, payload)
	return nil
}

func TestQueuedCartStoreEnqueuesWrites(t *testing.T) {
	durable := cart.NewMemoryStore()
	enqueuer := &fakeSnapshotEnqueuer{enabled: true}
	store := NewQueuedCartStore(durable, enqueuer)
	ctx := context.Background()
	key := cart.UserKey("cart_", 3)

	if err := store.Save(ctx, cart.Record{Key: key, Revision: 4, Payload: []byte(`{"items":[]}`)}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Delete(ctx, key, 5); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(enqueuer.persists) != 1 || enqueuer.persists[0].Revision != 4 || enqueuer.persists[0].Key != key.String() {
		t.Fatalf("unexpected persist tasks: %+v", enqueuer.persists)
	}
	if len(enqueuer.deletes) != 1 || enqueuer.deletes[0].Revision != 5 {
		t.Fatalf("unexpected delete tasks: %+v", enqueuer.deletes)
	}
	if durable.Len() != 0 {
		t.Fatalf("durable store should not be written directly")
	}

	if err := store.Save(ctx, cart.Record{Key: key, Revision: 6, Payload: []byte(`not json`)}); !errors.Is(err, ErrCartSnapshotInvalid) {
		t.Fatalf("want ErrCartSnapshotInvalid got %v", err)
	}
}

func TestQueuedCartStoreFallsBackToDurable(t *testing.T) {
	ctx := context.Background()
	key := cart.UserKey("cart_", 8)

	cases := []struct {
		name     string
		enqueuer *fakeSnapshotEnqueuer
	}{
		{"queue disabled", &fakeSnapshotEnqueuer{enabled: false}},
		{"enqueue failure", &fakeSnapshotEnqueuer{enabled: true, err: errors.New("redis down")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			durable := cart.NewMemoryStore()
			store := NewQueuedCartStore(durable, tc.enqueuer)
			if err := store.Save(ctx, cart.Record{Key: key, Revision: 1, Payload: []byte(`{}`)}); err != nil {
				t.Fatalf("save failed: %v", err)
			}
			record, err := store.Load(ctx, key)
			if err != nil || record == nil || record.Revision != 1 {
				t.Fatalf("record should be in durable store: %+v err=%v", record, err)
			}
			if err := store.Delete(ctx, key, 1); err != nil {
				t.Fatalf("delete failed: %v", err)
			}
			if durable.Len() != 0 {
				t.Fatalf("durable record should be deleted")
			}
		})
	}
}
