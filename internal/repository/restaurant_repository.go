package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dujiao-next/foodcart/internal/models"

	"gorm.io/gorm"
)

// RestaurantRepository 餐厅数据访问接口
type RestaurantRepository interface {
	List(filter RestaurantListFilter) ([]models.Restaurant, int64, error)
	GetByID(id uint) (*models.Restaurant, error)
	ListByIDs(ids []uint) ([]models.Restaurant, error)
	Create(restaurant *models.Restaurant) error
	Update(restaurant *models.Restaurant) error
	CountByName(name string) (int64, error)
}

// GormRestaurantRepository GORM 实现
type GormRestaurantRepository struct {
	db *gorm.DB
}

// NewRestaurantRepository 创建餐厅仓库
func NewRestaurantRepository(db *gorm.DB) *GormRestaurantRepository {
	return &GormRestaurantRepository{db: db}
}

// List 餐厅列表
func (r *GormRestaurantRepository) List(filter RestaurantListFilter) ([]models.Restaurant, int64, error) {
	var restaurants []models.Restaurant

	query := r.db.Model(&models.Restaurant{})
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}
	if status := strings.ToLower(strings.TrimSpace(filter.Status)); status != "" {
		query = query.Where("status = ?", status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		operator := likeOperatorByDialect(dbDialectName(r.db))
		condition := fmt.Sprintf("name %s ? OR address %s ?", operator, operator)
		query = query.Where(condition, repeatLikeArgs(like, 2)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	if err := query.Order("id ASC").Find(&restaurants).Error; err != nil {
		return nil, 0, err
	}
	return restaurants, total, nil
}

// GetByID 根据 ID 获取餐厅
func (r *GormRestaurantRepository) GetByID(id uint) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := r.db.First(&restaurant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &restaurant, nil
}

// ListByIDs 批量获取餐厅
func (r *GormRestaurantRepository) ListByIDs(ids []uint) ([]models.Restaurant, error) {
	if len(ids) == 0 {
		return []models.Restaurant{}, nil
	}
	var restaurants []models.Restaurant
	if err := r.db.Where("id IN ?", ids).Find(&restaurants).Error; err != nil {
		return nil, err
	}
	return restaurants, nil
}

// Create 创建餐厅
func (r *GormRestaurantRepository) Create(restaurant *models.Restaurant) error {
	return r.db.Create(restaurant).Error
}

// Update 更新餐厅
func (r *GormRestaurantRepository) Update(restaurant *models.Restaurant) error {
	return r.db.Save(restaurant).Error
}

// CountByName 统计同名餐厅数量
func (r *GormRestaurantRepository) CountByName(name string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Restaurant{}).Where("name = ?", strings.TrimSpace(name)).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
