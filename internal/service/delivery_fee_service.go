package service

import (
	"fmt"
	"math"

	"github.com/dujiao-next/foodcart/internal/constants"
	"github.com/dujiao-next/foodcart/internal/models"
	"github.com/dujiao-next/foodcart/internal/repository"

	"github.com/shopspring/decimal"
)

const earthRadiusKm = 6371.0

// DeliverySettingProvider 配送设置来源
type DeliverySettingProvider interface {
	GetDeliverySetting() (DeliverySetting, error)
}

// DeliveryFeeService 按距离计算配送费
type DeliveryFeeService struct {
	restaurantRepo repository.RestaurantRepository
	settings       DeliverySettingProvider
}

// NewDeliveryFeeService 创建配送费服务
func NewDeliveryFeeService(restaurantRepo repository.RestaurantRepository, settings DeliverySettingProvider) *DeliveryFeeService {
	return &DeliveryFeeService{
		restaurantRepo: restaurantRepo,
		settings:       settings,
	}
}

// SingleDeliveryFeeInput 单餐厅报价输入
type SingleDeliveryFeeInput struct {
	RestaurantID uint
	Latitude     float64
	Longitude    float64
}

// SingleDeliveryFeeResult 单餐厅报价结果
type SingleDeliveryFeeResult struct {
	RestaurantID uint         `json:"restaurant_id"`
	DeliveryFee  models.Money `json:"delivery_fee"`
	DistanceKm   float64      `json:"distance_km"`
}

// MultiDeliveryFeeInput 多餐厅报价输入
type MultiDeliveryFeeInput struct {
	RestaurantIDs []uint
	Latitude      float64
	Longitude     float64
}

// RestaurantDeliveryFee 多餐厅报价中单个餐厅的明细
type RestaurantDeliveryFee struct {
	RestaurantID   uint         `json:"restaurant_id"`
	RestaurantName string       `json:"restaurant_name"`
	DistanceKm     float64      `json:"distance_km"`
	DeliveryFee    models.Money `json:"delivery_fee"`
	IsFarthest     bool         `json:"is_farthest"`
}

// DeliveryFeeBreakdown 多餐厅配送费构成
type DeliveryFeeBreakdown struct {
	FarthestRestaurantID   uint         `json:"farthest_restaurant_id"`
	FarthestDistanceKm     float64      `json:"farthest_distance_km"`
	BaseFee                models.Money `json:"base_fee"`
	MultiRestaurantBaseFee models.Money `json:"multi_restaurant_base_fee"`
	AdditionalRestaurants  int          `json:"additional_restaurants"`
	AdditionalFeeEach      models.Money `json:"additional_fee_each"`
	AdditionalFee          models.Money `json:"additional_fee"`
}

// MultiDeliveryFeeResult 多餐厅报价结果
type MultiDeliveryFeeResult struct {
	TotalDeliveryFee  models.Money            `json:"total_delivery_fee"`
	FeeBreakdown      DeliveryFeeBreakdown    `json:"fee_breakdown"`
	Explanation       string                  `json:"explanation"`
	Restaurants       []RestaurantDeliveryFee `json:"restaurants"`
	CalculationMethod string                  `json:"calculation_method"`
}

// CalculateSingle 单餐厅配送费
func (s *DeliveryFeeService) CalculateSingle(input SingleDeliveryFeeInput) (*SingleDeliveryFeeResult, error) {
	if !validCoordinates(input.Latitude, input.Longitude) {
		return nil, ErrDeliveryCoordinatesInvalid
	}
	if input.RestaurantID == 0 {
		return nil, ErrDeliveryRestaurantsRequired
	}
	setting, err := s.settings.GetDeliverySetting()
	if err != nil {
		return nil, err
	}
	restaurants, err := s.loadRestaurants([]uint{input.RestaurantID})
	if err != nil {
		return nil, err
	}
	quote, err := quoteRestaurant(restaurants[0], input.Latitude, input.Longitude, setting)
	if err != nil {
		return nil, err
	}
	return &SingleDeliveryFeeResult{
		RestaurantID: quote.RestaurantID,
		DeliveryFee:  quote.DeliveryFee,
		DistanceKm:   quote.DistanceKm,
	}, nil
}

// CalculateMulti 多餐厅配送费：以最远餐厅计费，每多一家餐厅加收附加费
func (s *DeliveryFeeService) CalculateMulti(input MultiDeliveryFeeInput) (*MultiDeliveryFeeResult, error) {
	if !validCoordinates(input.Latitude, input.Longitude) {
		return nil, ErrDeliveryCoordinatesInvalid
	}
	ids := uniqueRestaurantIDs(input.RestaurantIDs)
	if len(ids) == 0 {
		return nil, ErrDeliveryRestaurantsRequired
	}
	setting, err := s.settings.GetDeliverySetting()
	if err != nil {
		return nil, err
	}
	restaurants, err := s.loadRestaurants(ids)
	if err != nil {
		return nil, err
	}

	quotes := make([]RestaurantDeliveryFee, 0, len(restaurants))
	farthest := 0
	for idx, restaurant := range restaurants {
		quote, err := quoteRestaurant(restaurant, input.Latitude, input.Longitude, setting)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, quote)
		if quote.DistanceKm > quotes[farthest].DistanceKm {
			farthest = idx
		}
	}
	quotes[farthest].IsFarthest = true

	additional := len(quotes) - 1
	baseFee := quotes[farthest].DeliveryFee.Decimal
	multiBase := decimal.Zero
	additionalEach := decimal.NewFromFloat(setting.MultiRestaurantAdditionalFee)
	method := constants.FeeMethodSingle
	if additional > 0 {
		multiBase = decimal.NewFromFloat(setting.MultiRestaurantBaseFee)
		method = constants.FeeMethodFarthestRestaurant
	}
	additionalFee := additionalEach.Mul(decimal.NewFromInt(int64(additional)))
	total := baseFee.Add(multiBase).Add(additionalFee)

	return &MultiDeliveryFeeResult{
		TotalDeliveryFee: models.NewMoneyFromDecimal(total),
		FeeBreakdown: DeliveryFeeBreakdown{
			FarthestRestaurantID:   quotes[farthest].RestaurantID,
			FarthestDistanceKm:     quotes[farthest].DistanceKm,
			BaseFee:                models.NewMoneyFromDecimal(baseFee),
			MultiRestaurantBaseFee: models.NewMoneyFromDecimal(multiBase),
			AdditionalRestaurants:  additional,
			AdditionalFeeEach:      models.NewMoneyFromDecimal(additionalEach),
			AdditionalFee:          models.NewMoneyFromDecimal(additionalFee),
		},
		Explanation:       buildDeliveryExplanation(quotes[farthest], additional, additionalEach, multiBase, setting.Currency),
		Restaurants:       quotes,
		CalculationMethod: method,
	}, nil
}

// CalculateDeliveryFee 按距离计算配送费：包含距离内收基础费，超出部分按公里加收，再按上下限截断
func CalculateDeliveryFee(distanceKm float64, setting DeliverySetting) decimal.Decimal {
	fee := decimal.NewFromFloat(setting.BaseDeliveryFee)
	if distanceKm > setting.IncludedDistanceKm {
		extra := decimal.NewFromFloat(distanceKm - setting.IncludedDistanceKm)
		fee = fee.Add(extra.Mul(decimal.NewFromFloat(setting.PerKmFee)))
	}
	if setting.MinDeliveryFee > 0 {
		if floor := decimal.NewFromFloat(setting.MinDeliveryFee); fee.LessThan(floor) {
			fee = floor
		}
	}
	if setting.MaxDeliveryFee > 0 {
		if ceiling := decimal.NewFromFloat(setting.MaxDeliveryFee); fee.GreaterThan(ceiling) {
			fee = ceiling
		}
	}
	return fee.Round(2)
}

// HaversineDistanceKm 两点间球面距离（公里）
func HaversineDistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 {
		return deg * math.Pi / 180
	}

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(toRad(lat1))*math.Cos(toRad(lat2))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func (s *DeliveryFeeService) loadRestaurants(ids []uint) ([]models.Restaurant, error) {
	rows, err := s.restaurantRepo.ListByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Restaurant, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	result := make([]models.Restaurant, 0, len(ids))
	for _, id := range ids {
		row, ok := byID[id]
		if !ok || !row.IsActive {
			return nil, fmt.Errorf("%w: id=%d", ErrRestaurantNotFound, id)
		}
		result = append(result, row)
	}
	return result, nil
}

func quoteRestaurant(restaurant models.Restaurant, lat, lng float64, setting DeliverySetting) (RestaurantDeliveryFee, error) {
	if !restaurant.HasCoordinates() {
		return RestaurantDeliveryFee{}, fmt.Errorf("%w: id=%d", ErrRestaurantLocationMissing, restaurant.ID)
	}
	distance := roundDistance(HaversineDistanceKm(restaurant.Latitude, restaurant.Longitude, lat, lng))
	if setting.MaxDeliveryDistance > 0 && distance > setting.MaxDeliveryDistance {
		return RestaurantDeliveryFee{}, fmt.Errorf("%w: %s is %.2f km away, limit %.2f km",
			ErrDeliveryOutOfRange, restaurant.Name, distance, setting.MaxDeliveryDistance)
	}
	return RestaurantDeliveryFee{
		RestaurantID:   restaurant.ID,
		RestaurantName: restaurant.Name,
		DistanceKm:     distance,
		DeliveryFee:    models.NewMoneyFromDecimal(CalculateDeliveryFee(distance, setting)),
	}, nil
}

func buildDeliveryExplanation(farthest RestaurantDeliveryFee, additional int, each, multiBase decimal.Decimal, currency string) string {
	if additional == 0 {
		return fmt.Sprintf("Delivery fee for %s (%.2f km): %s %s",
			farthest.RestaurantName, farthest.DistanceKm, farthest.DeliveryFee.String(), currency)
	}
	text := fmt.Sprintf("Based on the farthest restaurant %s (%.2f km): %s %s, plus %s %s for each of %d additional restaurant(s)",
		farthest.RestaurantName, farthest.DistanceKm, farthest.DeliveryFee.String(), currency,
		each.StringFixed(2), currency, additional)
	if multiBase.IsPositive() {
		text += fmt.Sprintf(" and a multi-restaurant base fee of %s %s", multiBase.StringFixed(2), currency)
	}
	return text
}

func uniqueRestaurantIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

func validCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	if lat == 0 && lng == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func roundDistance(value float64) float64 {
	return math.Round(value*1000) / 1000
}
