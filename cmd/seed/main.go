package main

import (
	"github.com/dujiao-next/foodcart/internal/config"
	"github.com/dujiao-next/foodcart/internal/constants"
	"github.com/dujiao-next/foodcart/internal/logger"
	"github.com/dujiao-next/foodcart/internal/models"
	"github.com/dujiao-next/foodcart/internal/repository"
	"github.com/dujiao-next/foodcart/internal/service"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 默认配送设置
	defaults := service.DeliverySettingToMap(service.DeliverySettingFromConfig(cfg.Delivery))
	if err := models.InitDefaultDeliverySettings(models.JSON(defaults)); err != nil {
		stdLog.Printf("Failed to init delivery settings: %v", err)
	}

	// 添加餐厅（亚的斯亚贝巴市区）
	restaurants := []models.Restaurant{
		{
			Name:      "Yod Abyssinia",
			Address:   "Bole, Addis Ababa",
			Phone:     "+251115517070",
			Latitude:  8.9955,
			Longitude: 38.7895,
			Status:    constants.RestaurantStatusOpen,
			IsActive:  true,
		},
		{
			Name:      "Kategna",
			Address:   "Bole Medhanialem, Addis Ababa",
			Phone:     "+251116616262",
			Latitude:  9.0011,
			Longitude: 38.7832,
			Status:    constants.RestaurantStatusOpen,
			IsActive:  true,
		},
		{
			Name:      "Tomoca Coffee Piassa",
			Address:   "Piassa, Addis Ababa",
			Phone:     "+251111111093",
			Latitude:  9.0338,
			Longitude: 38.7510,
			Status:    constants.RestaurantStatusBusy,
			IsActive:  true,
		},
		{
			Name:      "Lucy Lounge",
			Address:   "Arat Kilo, Addis Ababa",
			Phone:     "+251111226543",
			Latitude:  9.0333,
			Longitude: 38.7636,
			Status:    constants.RestaurantStatusClosed,
			IsActive:  true,
		},
	}

	restaurantService := service.NewRestaurantService(repository.NewRestaurantRepository(models.DB))
	for _, restaurant := range restaurants {
		var existing models.Restaurant
		if err := models.DB.Where("name = ?", restaurant.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&restaurant).Error; err != nil {
				stdLog.Printf("Failed to create restaurant %s: %v", restaurant.Name, err)
			} else {
				stdLog.Printf("Created restaurant: %s", restaurant.Name)
			}
			continue
		}
		existing.Address = restaurant.Address
		existing.Phone = restaurant.Phone
		existing.Latitude = restaurant.Latitude
		existing.Longitude = restaurant.Longitude
		existing.IsActive = restaurant.IsActive
		if err := models.DB.Save(&existing).Error; err != nil {
			stdLog.Printf("Failed to update restaurant %s: %v", restaurant.Name, err)
			continue
		}
		// 营业状态走服务层校验
		if _, err := restaurantService.UpdateStatus(existing.ID, restaurant.Status); err != nil {
			stdLog.Printf("Failed to update restaurant status %s: %v", restaurant.Name, err)
			continue
		}
		stdLog.Printf("Updated restaurant: %s", restaurant.Name)
	}

	stdLog.Printf("Seed completed")
}
