package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dujiao-next/foodcart/internal/config"
	"github.com/dujiao-next/foodcart/internal/models"
	"github.com/dujiao-next/foodcart/internal/repository"
)

// SettingService 设置业务服务
type SettingService struct {
	repo             repository.SettingRepository
	deliveryDefaults DeliverySetting
}

// NewSettingService 创建设置服务，delivery 为数据库缺省时的配送设置
func NewSettingService(repo repository.SettingRepository, delivery config.DeliveryConfig) *SettingService {
	return &SettingService{
		repo:             repo,
		deliveryDefaults: DeliverySettingFromConfig(delivery),
	}
}

// GetByKey 获取设置
func (s *SettingService) GetByKey(key string) (models.JSON, error) {
	setting, err := s.repo.GetByKey(key)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return nil, nil
	}
	return setting.ValueJSON, nil
}

// Update 设置值
func (s *SettingService) Update(key string, value map[string]interface{}) (models.JSON, error) {
	normalized := s.normalizeSettingValueByKey(key, value)

	setting, err := s.repo.Upsert(key, normalized)
	if err != nil {
		return nil, err
	}
	return setting.ValueJSON, nil
}

// PublicSettings 公共配送设置（合并默认值），供购物车引擎刷新
func (s *SettingService) PublicSettings(ctx context.Context) (models.JSON, error) {
	setting, err := s.GetDeliverySetting()
	if err != nil {
		return nil, err
	}
	return models.JSON(DeliverySettingToMap(setting)), nil
}

func parseSettingFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, fmt.Errorf("empty string")
		}
		return strconv.ParseFloat(trimmed, 64)
	default:
		return 0, fmt.Errorf("unsupported value type")
	}
}
