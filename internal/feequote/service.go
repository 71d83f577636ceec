package feequote

import (
	"context"
	"errors"

	"github.com/dujiao-next/foodcart/internal/models"
)

var (
	ErrRequestInvalid  = errors.New("fee quote request invalid")
	ErrRequestFailed   = errors.New("fee quote request failed")
	ErrResponseInvalid = errors.New("fee quote response invalid")
)

const (
	PathSingle         = "/calculate-delivery-fee/"
	PathMulti          = "/calculate-multi-restaurant-delivery-fee/"
	PathPublicSettings = "/app-settings/public/"
)

// SingleRequest 单餐厅报价请求
type SingleRequest struct {
	RestaurantID      uint    `json:"restaurant_id"`
	DeliveryLatitude  float64 `json:"delivery_latitude"`
	DeliveryLongitude float64 `json:"delivery_longitude"`
}

// MultiRequest 多餐厅报价请求
type MultiRequest struct {
	RestaurantIDs     []uint  `json:"restaurant_ids"`
	DeliveryLatitude  float64 `json:"delivery_latitude"`
	DeliveryLongitude float64 `json:"delivery_longitude"`
}

// SingleQuote 单餐厅报价
type SingleQuote struct {
	DeliveryFee models.Money `json:"delivery_fee"`
	DistanceKm  float64      `json:"distance_km"`
}

// MultiQuote 多餐厅报价
type MultiQuote struct {
	TotalDeliveryFee  models.Money  `json:"total_delivery_fee"`
	FeeBreakdown      models.JSON   `json:"fee_breakdown"`
	Explanation       string        `json:"explanation"`
	Restaurants       []models.JSON `json:"restaurants"`
	CalculationMethod string        `json:"calculation_method"`
}

// Service 配送费报价服务
type Service interface {
	QuoteSingle(ctx context.Context, req SingleRequest) (*SingleQuote, error)
	QuoteMulti(ctx context.Context, req MultiRequest) (*MultiQuote, error)
	PublicSettings(ctx context.Context) (models.JSON, error)
}
