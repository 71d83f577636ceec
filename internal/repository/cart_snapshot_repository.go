package repository

import (
	"errors"
	"time"

	"github.com/dujiao-next/foodcart/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartSnapshotRepository 购物车快照数据访问接口
type CartSnapshotRepository interface {
	GetByKey(key string) (*models.CartSnapshot, error)
	SaveIfNewer(snapshot *models.CartSnapshot) (bool, error)
	MarkDeletedIfNotNewer(key string, revision int64) (bool, error)
	DeleteUpdatedBefore(cutoff time.Time) (int64, error)
	WithTx(tx *gorm.DB) CartSnapshotRepository
}

// GormCartSnapshotRepository GORM 实现
type GormCartSnapshotRepository struct {
	db *gorm.DB
}

// NewCartSnapshotRepository 创建购物车快照仓库
func NewCartSnapshotRepository(db *gorm.DB) *GormCartSnapshotRepository {
	return &GormCartSnapshotRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCartSnapshotRepository) WithTx(tx *gorm.DB) CartSnapshotRepository {
	if tx == nil {
		return r
	}
	return &GormCartSnapshotRepository{db: tx}
}

// GetByKey 根据身份键获取快照
func (r *GormCartSnapshotRepository) GetByKey(key string) (*models.CartSnapshot, error) {
	var snapshot models.CartSnapshot
	if err := r.db.Where("key = ?", key).First(&snapshot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

// SaveIfNewer 写入快照，已存储版本更新时忽略本次写入
func (r *GormCartSnapshotRepository) SaveIfNewer(snapshot *models.CartSnapshot) (bool, error) {
	if snapshot == nil || snapshot.Key == "" {
		return false, errors.New("invalid cart snapshot")
	}
	snapshot.Deleted = false
	return r.upsertIfNotOlder(snapshot)
}

// MarkDeletedIfNotNewer 将快照替换为墓碑，已存储版本更新时保留
// 墓碑保留版本号，之后到达的同版本或旧版本写入仍会被拒绝
func (r *GormCartSnapshotRepository) MarkDeletedIfNotNewer(key string, revision int64) (bool, error) {
	if key == "" {
		return false, errors.New("invalid cart snapshot")
	}
	return r.upsertIfNotOlder(&models.CartSnapshot{
		Key:      key,
		Revision: revision,
		Payload:  "",
		Deleted:  true,
	})
}

func (r *GormCartSnapshotRepository) upsertIfNotOlder(snapshot *models.CartSnapshot) (bool, error) {
	if snapshot.UpdatedAt.IsZero() {
		snapshot.UpdatedAt = time.Now()
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"revision", "payload", "deleted", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "cart_snapshots.revision < excluded.revision OR (cart_snapshots.revision = excluded.revision AND NOT cart_snapshots.deleted)"},
		}},
	}).Create(snapshot)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteUpdatedBefore 清理过期快照
func (r *GormCartSnapshotRepository) DeleteUpdatedBefore(cutoff time.Time) (int64, error) {
	result := r.db.Where("updated_at < ?", cutoff).Delete(&models.CartSnapshot{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
