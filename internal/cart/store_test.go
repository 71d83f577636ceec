package cart

import (
	"context"
	"testing"
)

func TestIdentityKeys(t *testing.T) {
	if got := UserKey("", 42); got != "cart_42" {
		t.Fatalf("want cart_42 got %s", got)
	}
	if got := UserKey("basket:", 7); got != "basket:7" {
		t.Fatalf("want basket:7 got %s", got)
	}
	if got := UserKey("", 0); got != "" {
		t.Fatalf("user 0 should yield empty key, got %s", got)
	}
	if got := GuestKey("", ""); got != "guest_cart" {
		t.Fatalf("want guest_cart got %s", got)
	}
	if got := GuestKey("", " abc "); got != "guest_cart_abc" {
		t.Fatalf("want guest_cart_abc got %s", got)
	}
}

func TestMemoryStoreIgnoresOlderRevisions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	key := IdentityKey("cart_1")

	if err := store.Save(ctx, Record{Key: key, Revision: 5, Payload: []byte(`{"v":5}`)}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Save(ctx, Record{Key: key, Revision: 3, Payload: []byte(`{"v":3}`)}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	record, err := store.Load(ctx, key)
	if err != nil || record == nil {
		t.Fatalf("load failed: %v", err)
	}
	if record.Revision != 5 || string(record.Payload) != `{"v":5}` {
		t.Fatalf("stale save should be ignored, got rev=%d payload=%s", record.Revision, record.Payload)
	}
	if record.UpdatedAt.IsZero() {
		t.Fatalf("updated_at should be stamped")
	}

	if err := store.Delete(ctx, key, 4); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("stale delete should be ignored")
	}
	if err := store.Delete(ctx, key, 6); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	record, err = store.Load(ctx, key)
	if err != nil || record == nil {
		t.Fatalf("delete should leave a tombstone, got %+v err=%v", record, err)
	}
	if !record.Deleted || record.Revision != 6 || len(record.Payload) != 0 {
		t.Fatalf("unexpected tombstone %+v", record)
	}
	if store.Len() != 0 {
		t.Fatalf("tombstone should not count as a record")
	}
}

func TestMemoryStoreStaleSaveCannotResurrectClearedCart(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	key := IdentityKey("cart_8")

	if err := store.Save(ctx, Record{Key: key, Revision: 4, Payload: []byte(`{"items":[{"product_id":1}]}`)}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Delete(ctx, key, 5); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	// 重试或乱序到达的旧版本写入
	if err := store.Save(ctx, Record{Key: key, Revision: 4, Payload: []byte(`{"items":[{"product_id":1}]}`)}); err != nil {
		t.Fatalf("late save failed: %v", err)
	}
	if err := store.Save(ctx, Record{Key: key, Revision: 5, Payload: []byte(`{"items":[{"product_id":1}]}`)}); err != nil {
		t.Fatalf("same revision save failed: %v", err)
	}
	record, err := store.Load(ctx, key)
	if err != nil || record == nil || !record.Deleted || record.Revision != 5 {
		t.Fatalf("cleared cart resurrected by stale save: %+v err=%v", record, err)
	}

	if err := store.Save(ctx, Record{Key: key, Revision: 6, Payload: []byte(`{"items":[]}`)}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	record, _ = store.Load(ctx, key)
	if record == nil || record.Deleted || record.Revision != 6 {
		t.Fatalf("newer save should replace the tombstone, got %+v", record)
	}
}
