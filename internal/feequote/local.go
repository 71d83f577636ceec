package feequote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dujiao-next/foodcart/internal/models"
	"github.com/dujiao-next/foodcart/internal/service"
)

// DeliveryFeeCalculator 本地配送费计算
type DeliveryFeeCalculator interface {
	CalculateSingle(input service.SingleDeliveryFeeInput) (*service.SingleDeliveryFeeResult, error)
	CalculateMulti(input service.MultiDeliveryFeeInput) (*service.MultiDeliveryFeeResult, error)
}

// SettingsProvider 公共配送设置来源
type SettingsProvider interface {
	PublicSettings(ctx context.Context) (models.JSON, error)
}

// LocalService 进程内报价服务
type LocalService struct {
	fees     DeliveryFeeCalculator
	settings SettingsProvider
}

// NewLocalService 创建进程内报价服务
func NewLocalService(fees DeliveryFeeCalculator, settings SettingsProvider) *LocalService {
	return &LocalService{fees: fees, settings: settings}
}

// QuoteSingle 单餐厅报价
func (s *LocalService) QuoteSingle(ctx context.Context, req SingleRequest) (*SingleQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := s.fees.CalculateSingle(service.SingleDeliveryFeeInput{
		RestaurantID: req.RestaurantID,
		Latitude:     req.DeliveryLatitude,
		Longitude:    req.DeliveryLongitude,
	})
	if err != nil {
		return nil, err
	}
	return &SingleQuote{DeliveryFee: result.DeliveryFee, DistanceKm: result.DistanceKm}, nil
}

// QuoteMulti 多餐厅报价
func (s *LocalService) QuoteMulti(ctx context.Context, req MultiRequest) (*MultiQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := s.fees.CalculateMulti(service.MultiDeliveryFeeInput{
		RestaurantIDs: req.RestaurantIDs,
		Latitude:      req.DeliveryLatitude,
		Longitude:     req.DeliveryLongitude,
	})
	if err != nil {
		return nil, err
	}
	return MultiQuoteFromResult(result)
}

// PublicSettings 公共配送设置
func (s *LocalService) PublicSettings(ctx context.Context) (models.JSON, error) {
	if s.settings == nil {
		return models.JSON{}, nil
	}
	return s.settings.PublicSettings(ctx)
}

// MultiQuoteFromResult 将多餐厅计算结果转换为线上格式
func MultiQuoteFromResult(result *service.MultiDeliveryFeeResult) (*MultiQuote, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: empty result", ErrResponseInvalid)
	}
	breakdown, err := toJSONObject(result.FeeBreakdown)
	if err != nil {
		return nil, err
	}
	restaurants := make([]models.JSON, 0, len(result.Restaurants))
	for _, item := range result.Restaurants {
		row, err := toJSONObject(item)
		if err != nil {
			return nil, err
		}
		restaurants = append(restaurants, row)
	}
	return &MultiQuote{
		TotalDeliveryFee:  result.TotalDeliveryFee,
		FeeBreakdown:      breakdown,
		Explanation:       result.Explanation,
		Restaurants:       restaurants,
		CalculationMethod: result.CalculationMethod,
	}, nil
}

func toJSONObject(value interface{}) (models.JSON, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: encode breakdown failed", ErrResponseInvalid)
	}
	out := models.JSON{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode breakdown failed", ErrResponseInvalid)
	}
	return out, nil
}
