package service

import (
	"context"
	"time"

	"github.com/dujiao-next/foodcart/internal/cart"
	"github.com/dujiao-next/foodcart/internal/models"
	"github.com/dujiao-next/foodcart/internal/repository"
)

// CartSnapshotStore 基于数据库的购物车存储
type CartSnapshotStore struct {
	repo repository.CartSnapshotRepository
}

// NewCartSnapshotStore 创建数据库购物车存储
func NewCartSnapshotStore(repo repository.CartSnapshotRepository) *CartSnapshotStore {
	return &CartSnapshotStore{repo: repo}
}

// Load 读取快照
func (s *CartSnapshotStore) Load(ctx context.Context, key cart.IdentityKey) (*cart.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row, err := s.repo.GetByKey(key.String())
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	record := &cart.Record{
		Key:       key,
		Revision:  row.Revision,
		Deleted:   row.Deleted,
		UpdatedAt: row.UpdatedAt,
	}
	if !row.Deleted {
		record.Payload = []byte(row.Payload)
	}
	return record, nil
}

// Save 写入快照，旧版本被忽略
func (s *CartSnapshotStore) Save(ctx context.Context, record cart.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.Key == "" {
		return ErrCartSnapshotInvalid
	}
	_, err := s.repo.SaveIfNewer(&models.CartSnapshot{
		Key:       record.Key.String(),
		Revision:  record.Revision,
		Payload:   string(record.Payload),
		UpdatedAt: record.UpdatedAt.UTC(),
	})
	return err
}

// Delete 写入墓碑，已存储版本更新时保留
func (s *CartSnapshotStore) Delete(ctx context.Context, key cart.IdentityKey, revision int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.repo.MarkDeletedIfNotNewer(key.String(), revision)
	return err
}

// PurgeBefore 清理超过保留期未更新的快照
func (s *CartSnapshotStore) PurgeBefore(cutoff time.Time) (int64, error) {
	return s.repo.DeleteUpdatedBefore(cutoff.UTC())
}
