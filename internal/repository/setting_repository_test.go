package repository

import (
	"testing"

	"github.com/dujiao-next/foodcart/internal/constants"
	"github.com/dujiao-next/foodcart/internal/models"
)

func TestSettingUpsertCreatesThenUpdates(t *testing.T) {
	db := setupSQLiteTestDB(t, &models.Setting{})
	repo := NewSettingRepository(db)

	missing, err := repo.GetByKey(constants.SettingKeyDeliveryConfig)
	if err != nil || missing != nil {
		t.Fatalf("missing setting want nil got=%+v err=%v", missing, err)
	}

	if _, err := repo.Upsert(constants.SettingKeyDeliveryConfig, models.JSON{"base_delivery_fee": 20.0}); err != nil {
		t.Fatalf("create setting failed: %v", err)
	}
	if _, err := repo.Upsert(constants.SettingKeyDeliveryConfig, models.JSON{"base_delivery_fee": 30.0}); err != nil {
		t.Fatalf("update setting failed: %v", err)
	}

	got, err := repo.GetByKey(constants.SettingKeyDeliveryConfig)
	if err != nil || got == nil {
		t.Fatalf("get setting failed: got=%+v err=%v", got, err)
	}
	if got.ValueJSON["base_delivery_fee"] != 30.0 {
		t.Fatalf("setting want 30 got %v", got.ValueJSON["base_delivery_fee"])
	}
}
