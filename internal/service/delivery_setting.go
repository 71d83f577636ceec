package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/dujiao-next/foodcart/internal/config"
	"github.com/dujiao-next/foodcart/internal/constants"
	"github.com/dujiao-next/foodcart/internal/models"
)

const (
	deliveryDistanceMaxKm       = 1000
	deliveryTimeSlotsMaxSize    = 12
	deliveryTimeSlotMaxRune     = 32
	deliveryDefaultCurrency     = "ETB"
	deliveryCurrencyMaxRuneSize = 8
)

// DeliverySetting 配送费设置
type DeliverySetting struct {
	BaseDeliveryFee              float64  `json:"base_delivery_fee"`
	IncludedDistanceKm           float64  `json:"included_distance_km"`
	PerKmFee                     float64  `json:"per_km_fee"`
	MinDeliveryFee               float64  `json:"min_delivery_fee"`
	MaxDeliveryFee               float64  `json:"max_delivery_fee"`
	MaxDeliveryDistance          float64  `json:"max_delivery_distance"`
	FreeDeliveryMinimum          float64  `json:"free_delivery_minimum"`
	MultiRestaurantBaseFee       float64  `json:"multi_restaurant_base_fee"`
	MultiRestaurantAdditionalFee float64  `json:"multi_restaurant_additional_fee"`
	DeliveryTimeSlots            []string `json:"delivery_time_slots"`
	EnableScheduledDelivery      bool     `json:"enable_scheduled_delivery"`
	Currency                     string   `json:"currency"`
}

// DeliverySettingFromConfig 由配置文件生成默认配送设置
func DeliverySettingFromConfig(cfg config.DeliveryConfig) DeliverySetting {
	return NormalizeDeliverySetting(DeliverySetting{
		BaseDeliveryFee:              cfg.BaseDeliveryFee,
		IncludedDistanceKm:           cfg.IncludedDistanceKm,
		PerKmFee:                     cfg.PerKmFee,
		MinDeliveryFee:               cfg.MinDeliveryFee,
		MaxDeliveryFee:               cfg.MaxDeliveryFee,
		MaxDeliveryDistance:          cfg.MaxDeliveryDistance,
		FreeDeliveryMinimum:          cfg.FreeDeliveryMinimum,
		MultiRestaurantBaseFee:       cfg.MultiRestaurantBaseFee,
		MultiRestaurantAdditionalFee: cfg.MultiRestaurantAdditionalFee,
		DeliveryTimeSlots:            cloneStringSlice(cfg.DeliveryTimeSlots),
		EnableScheduledDelivery:      cfg.EnableScheduledDelivery,
		Currency:                     cfg.Currency,
	})
}

// NormalizeDeliverySetting 归一化配送设置：金额保留 2 位、负数归零、距离限制在合理范围
func NormalizeDeliverySetting(setting DeliverySetting) DeliverySetting {
	setting.BaseDeliveryFee = nonNegativeRound(setting.BaseDeliveryFee)
	setting.PerKmFee = nonNegativeRound(setting.PerKmFee)
	setting.MinDeliveryFee = nonNegativeRound(setting.MinDeliveryFee)
	setting.MaxDeliveryFee = nonNegativeRound(setting.MaxDeliveryFee)
	setting.FreeDeliveryMinimum = nonNegativeRound(setting.FreeDeliveryMinimum)
	setting.MultiRestaurantBaseFee = nonNegativeRound(setting.MultiRestaurantBaseFee)
	setting.MultiRestaurantAdditionalFee = nonNegativeRound(setting.MultiRestaurantAdditionalFee)
	if setting.MaxDeliveryFee > 0 && setting.MaxDeliveryFee < setting.MinDeliveryFee {
		setting.MaxDeliveryFee = setting.MinDeliveryFee
	}

	setting.IncludedDistanceKm = clampDistance(setting.IncludedDistanceKm)
	setting.MaxDeliveryDistance = clampDistance(setting.MaxDeliveryDistance)

	setting.DeliveryTimeSlots = normalizeSettingStringList(setting.DeliveryTimeSlots, deliveryTimeSlotsMaxSize, deliveryTimeSlotMaxRune)
	currency := strings.ToUpper(normalizeSettingTextWithRuneLimit(setting.Currency, deliveryCurrencyMaxRuneSize))
	if currency == "" {
		currency = deliveryDefaultCurrency
	}
	setting.Currency = currency
	return setting
}

// ValidateDeliverySetting 校验配送设置
func ValidateDeliverySetting(setting DeliverySetting) error {
	normalized := NormalizeDeliverySetting(setting)
	if normalized.MaxDeliveryDistance > 0 && normalized.IncludedDistanceKm > normalized.MaxDeliveryDistance {
		return fmt.Errorf("%w: included distance exceeds max delivery distance", ErrDeliveryConfigInvalid)
	}
	for _, value := range []float64{setting.BaseDeliveryFee, setting.PerKmFee, setting.MinDeliveryFee, setting.MaxDeliveryFee} {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("%w: fee must be a finite number", ErrDeliveryConfigInvalid)
		}
	}
	return nil
}

// DeliverySettingToMap 将配送设置转换为 settings 存储结构
func DeliverySettingToMap(setting DeliverySetting) map[string]interface{} {
	normalized := NormalizeDeliverySetting(setting)
	return map[string]interface{}{
		constants.SettingFieldBaseDeliveryFee:              normalized.BaseDeliveryFee,
		constants.SettingFieldIncludedDistanceKm:           normalized.IncludedDistanceKm,
		constants.SettingFieldPerKmFee:                     normalized.PerKmFee,
		constants.SettingFieldMinDeliveryFee:               normalized.MinDeliveryFee,
		constants.SettingFieldMaxDeliveryFee:               normalized.MaxDeliveryFee,
		constants.SettingFieldMaxDeliveryDistance:          normalized.MaxDeliveryDistance,
		constants.SettingFieldFreeDeliveryMinimum:          normalized.FreeDeliveryMinimum,
		constants.SettingFieldMultiRestaurantBaseFee:       normalized.MultiRestaurantBaseFee,
		constants.SettingFieldMultiRestaurantAdditionalFee: normalized.MultiRestaurantAdditionalFee,
		constants.SettingFieldDeliveryTimeSlots:            cloneStringSlice(normalized.DeliveryTimeSlots),
		constants.SettingFieldEnableScheduledDelivery:      normalized.EnableScheduledDelivery,
		constants.SettingFieldCurrency:                     normalized.Currency,
	}
}

func deliverySettingFromJSON(raw models.JSON, fallback DeliverySetting) DeliverySetting {
	result := fallback
	result.DeliveryTimeSlots = cloneStringSlice(fallback.DeliveryTimeSlots)

	floatFields := []struct {
		key    string
		target *float64
	}{
		{constants.SettingFieldBaseDeliveryFee, &result.BaseDeliveryFee},
		{constants.SettingFieldIncludedDistanceKm, &result.IncludedDistanceKm},
		{constants.SettingFieldPerKmFee, &result.PerKmFee},
		{constants.SettingFieldMinDeliveryFee, &result.MinDeliveryFee},
		{constants.SettingFieldMaxDeliveryFee, &result.MaxDeliveryFee},
		{constants.SettingFieldMaxDeliveryDistance, &result.MaxDeliveryDistance},
		{constants.SettingFieldFreeDeliveryMinimum, &result.FreeDeliveryMinimum},
		{constants.SettingFieldMultiRestaurantBaseFee, &result.MultiRestaurantBaseFee},
		{constants.SettingFieldMultiRestaurantAdditionalFee, &result.MultiRestaurantAdditionalFee},
	}
	for _, field := range floatFields {
		value, ok := raw[field.key]
		if !ok || value == nil {
			continue
		}
		if parsed, err := parseSettingFloat(value); err == nil && !math.IsNaN(parsed) && !math.IsInf(parsed, 0) {
			*field.target = parsed
		}
	}
	if slotsRaw, ok := raw[constants.SettingFieldDeliveryTimeSlots]; ok {
		result.DeliveryTimeSlots = normalizeSettingStringList(slotsRaw, deliveryTimeSlotsMaxSize, deliveryTimeSlotMaxRune)
	}
	if scheduledRaw, ok := raw[constants.SettingFieldEnableScheduledDelivery]; ok {
		result.EnableScheduledDelivery = parseSettingBool(scheduledRaw)
	}
	if currency := normalizeSettingText(raw[constants.SettingFieldCurrency]); currency != "" {
		result.Currency = currency
	}

	return NormalizeDeliverySetting(result)
}

// GetDeliverySetting 获取配送设置（优先 settings，空时回退配置默认值）
func (s *SettingService) GetDeliverySetting() (DeliverySetting, error) {
	if s == nil {
		return NormalizeDeliverySetting(DeliverySetting{}), nil
	}
	fallback := s.deliveryDefaults

	value, err := s.GetByKey(constants.SettingKeyDeliveryConfig)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	return deliverySettingFromJSON(value, fallback), nil
}

// UpdateDeliverySetting 更新配送设置
func (s *SettingService) UpdateDeliverySetting(setting DeliverySetting) (DeliverySetting, error) {
	normalized := NormalizeDeliverySetting(setting)
	if err := ValidateDeliverySetting(setting); err != nil {
		return s.deliveryDefaults, err
	}
	if _, err := s.Update(constants.SettingKeyDeliveryConfig, DeliverySettingToMap(normalized)); err != nil {
		return s.deliveryDefaults, err
	}
	return normalized, nil
}

func nonNegativeRound(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0
	}
	return math.Round(value*100) / 100
}

func clampDistance(value float64) float64 {
	value = nonNegativeRound(value)
	if value > deliveryDistanceMaxKm {
		return deliveryDistanceMaxKm
	}
	return value
}
