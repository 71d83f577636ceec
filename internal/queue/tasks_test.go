package queue

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewCartSnapshotPersistTask(t *testing.T) {
	updatedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	task, err := NewCartSnapshotPersistTask(CartSnapshotPersistPayload{
		Key:       "cart_7",
		Revision:  12,
		Payload:   json.RawMessage(`{"items":[]}`),
		UpdatedAt: updatedAt,
	})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if task.Type() != TaskCartSnapshotPersist {
		t.Fatalf("unexpected task type: %s", task.Type())
	}
	var decoded CartSnapshotPersistPayload
	if err := json.Unmarshal(task.Payload(), &decoded); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	if decoded.Key != "cart_7" || decoded.Revision != 12 || !decoded.UpdatedAt.Equal(updatedAt) {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
	if string(decoded.Payload) != `{"items":[]}` {
		t.Fatalf("cart payload should be embedded verbatim, got %s", decoded.Payload)
	}
}

func TestDisabledClientSkipsEnqueue(t *testing.T) {
	client, err := NewClient(nil)
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client without config should be disabled")
	}
	if err := client.EnqueueCartSnapshotDelete(CartSnapshotDeletePayload{Key: "guest_cart", Revision: 1}); err != nil {
		t.Fatalf("disabled enqueue should be a no-op, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(nil)
	if opt.Addr != "127.0.0.1:6379" {
		t.Fatalf("unexpected addr: %s", opt.Addr)
	}
	if cfg.Concurrency != 10 || cfg.Queues[DefaultQueue] != 1 {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
}
