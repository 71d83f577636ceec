package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/dujiao-next/foodcart/internal/cart"
	"github.com/dujiao-next/foodcart/internal/logger"
	"github.com/dujiao-next/foodcart/internal/provider"
	"github.com/dujiao-next/foodcart/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCartSnapshotPersist, c.handleCartSnapshotPersist)
	mux.HandleFunc(queue.TaskCartSnapshotDelete, c.handleCartSnapshotDelete)
}

func (c *Consumer) snapshotStore() cart.Store {
	if c == nil || c.Container == nil || c.CartSnapshotStore == nil {
		return nil
	}
	return c.CartSnapshotStore
}

func (c *Consumer) handleCartSnapshotPersist(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_cart_snapshot_persist_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CartSnapshotPersistPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_cart_snapshot_persist_unmarshal_failed", "error", err)
		return errors.Join(err, asynq.SkipRetry)
	}
	key := strings.TrimSpace(payload.Key)
	if key == "" || len(payload.Payload) == 0 {
		logger.Debugw("worker_cart_snapshot_persist_skip_invalid_payload", "key", key, "revision", payload.Revision)
		return nil
	}
	store := c.snapshotStore()
	if store == nil {
		logger.Warnw("worker_cart_snapshot_persist_skip_store_nil", "key", key)
		return nil
	}
	err := store.Save(ctx, cart.Record{
		Key:       cart.IdentityKey(key),
		Revision:  payload.Revision,
		Payload:   []byte(payload.Payload),
		UpdatedAt: payload.UpdatedAt,
	})
	if err != nil {
		logger.Warnw("worker_cart_snapshot_persist_failed", "key", key, "revision", payload.Revision, "error", err)
		return err
	}
	logger.Debugw("worker_cart_snapshot_persisted", "key", key, "revision", payload.Revision)
	return nil
}

func (c *Consumer) handleCartSnapshotDelete(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_cart_snapshot_delete_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CartSnapshotDeletePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_cart_snapshot_delete_unmarshal_failed", "error", err)
		return errors.Join(err, asynq.SkipRetry)
	}
	key := strings.TrimSpace(payload.Key)
	if key == "" {
		logger.Debugw("worker_cart_snapshot_delete_skip_invalid_payload", "revision", payload.Revision)
		return nil
	}
	store := c.snapshotStore()
	if store == nil {
		logger.Warnw("worker_cart_snapshot_delete_skip_store_nil", "key", key)
		return nil
	}
	if err := store.Delete(ctx, cart.IdentityKey(key), payload.Revision); err != nil {
		logger.Warnw("worker_cart_snapshot_delete_failed", "key", key, "revision", payload.Revision, "error", err)
		return err
	}
	return nil
}
