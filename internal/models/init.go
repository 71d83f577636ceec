package models

import (
	"errors"

	"github.com/dujiao-next/foodcart/internal/constants"
	"github.com/dujiao-next/foodcart/internal/logger"

	"gorm.io/gorm"
)

// InitDefaultDeliverySettings 初始化默认配送设置（已存在则跳过）
func InitDefaultDeliverySettings(defaults JSON) error {
	var existing Setting
	err := DB.Where("key = ?", constants.SettingKeyDeliveryConfig).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	setting := Setting{
		Key:       constants.SettingKeyDeliveryConfig,
		ValueJSON: defaults,
	}
	if err := DB.Create(&setting).Error; err != nil {
		return err
	}
	logger.Infow("default_delivery_settings_created", "key", setting.Key)
	return nil
}
