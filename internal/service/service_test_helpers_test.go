package service

import (
	"fmt"
	"testing"

	"github.com/dujiao-next/foodcart/internal/config"
	"github.com/dujiao-next/foodcart/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type mockSettingRepo struct {
	store map[string]models.JSON
}

func newMockSettingRepo() *mockSettingRepo {
	return &mockSettingRepo{store: map[string]models.JSON{}}
}

func (m *mockSettingRepo) GetByKey(key string) (*models.Setting, error) {
	value, ok := m.store[key]
	if !ok {
		return nil, nil
	}
	return &models.Setting{Key: key, ValueJSON: value}, nil
}

func (m *mockSettingRepo) Upsert(key string, value models.JSON) (*models.Setting, error) {
	m.store[key] = value
	return &models.Setting{Key: key, ValueJSON: value}, nil
}

func testDeliveryConfig() config.DeliveryConfig {
	return config.DeliveryConfig{
		BaseDeliveryFee:              20,
		IncludedDistanceKm:           2,
		PerKmFee:                     5,
		MaxDeliveryDistance:          50,
		MultiRestaurantAdditionalFee: 10,
		DeliveryTimeSlots:            []string{"09:00-21:00"},
		EnableScheduledDelivery:      true,
		Currency:                     "ETB",
	}
}

func openServiceTestDB(t *testing.T, dst ...interface{}) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(dst...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
