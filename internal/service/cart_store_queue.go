package service

import (
	"context"
	"encoding/json"

	"github.com/dujiao-next/foodcart/internal/cart"
	"github.com/dujiao-next/foodcart/internal/logger"
	"github.com/dujiao-next/foodcart/internal/queue"

	"github.com/hibiken/asynq"
)

// CartSnapshotEnqueuer 购物车快照任务投递接口
type CartSnapshotEnqueuer interface {
	Enabled() bool
	EnqueueCartSnapshotPersist(payload queue.CartSnapshotPersistPayload, opts ...asynq.Option) error
	EnqueueCartSnapshotDelete(payload queue.CartSnapshotDeletePayload, opts ...asynq.Option) error
}

// QueuedCartStore 读走持久存储，写转为异步任务；投递失败时直接写持久存储
type QueuedCartStore struct {
	durable cart.Store
	queue   CartSnapshotEnqueuer
}

// NewQueuedCartStore 创建异步写入的购物车存储
func NewQueuedCartStore(durable cart.Store, enqueuer CartSnapshotEnqueuer) *QueuedCartStore {
	return &QueuedCartStore{durable: durable, queue: enqueuer}
}

// Load 读取快照
func (s *QueuedCartStore) Load(ctx context.Context, key cart.IdentityKey) (*cart.Record, error) {
	return s.durable.Load(ctx, key)
}

// Save 投递快照落库任务
func (s *QueuedCartStore) Save(ctx context.Context, record cart.Record) error {
	if s.queue == nil || !s.queue.Enabled() {
		return s.durable.Save(ctx, record)
	}
	payload := json.RawMessage(record.Payload)
	if !json.Valid(payload) {
		return ErrCartSnapshotInvalid
	}
	err := s.queue.EnqueueCartSnapshotPersist(queue.CartSnapshotPersistPayload{
		Key:       record.Key.String(),
		Revision:  record.Revision,
		Payload:   payload,
		UpdatedAt: record.UpdatedAt,
	})
	if err == nil {
		return nil
	}
	logger.Warnw("cart_snapshot_enqueue_persist_failed", "key", record.Key.String(), "revision", record.Revision, "error", err)
	return s.durable.Save(ctx, record)
}

// Delete 投递快照删除任务
func (s *QueuedCartStore) Delete(ctx context.Context, key cart.IdentityKey, revision int64) error {
	if s.queue == nil || !s.queue.Enabled() {
		return s.durable.Delete(ctx, key, revision)
	}
	err := s.queue.EnqueueCartSnapshotDelete(queue.CartSnapshotDeletePayload{
		Key:      key.String(),
		Revision: revision,
	})
	if err == nil {
		return nil
	}
	logger.Warnw("cart_snapshot_enqueue_delete_failed", "key", key.String(), "revision", revision, "error", err)
	return s.durable.Delete(ctx, key, revision)
}
