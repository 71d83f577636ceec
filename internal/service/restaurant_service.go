package service

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/foodcart/internal/cart"
	"github.com/dujiao-next/foodcart/internal/constants"
	"github.com/dujiao-next/foodcart/internal/models"
	"github.com/dujiao-next/foodcart/internal/repository"
)

// RestaurantService 餐厅业务服务
type RestaurantService struct {
	repo repository.RestaurantRepository
}

// NewRestaurantService 创建餐厅服务
func NewRestaurantService(repo repository.RestaurantRepository) *RestaurantService {
	return &RestaurantService{repo: repo}
}

// CreateRestaurantInput 创建餐厅输入
type CreateRestaurantInput struct {
	Name      string
	Address   string
	Phone     string
	Latitude  float64
	Longitude float64
	Status    string
}

// List 餐厅列表
func (s *RestaurantService) List(filter repository.RestaurantListFilter) ([]models.Restaurant, int64, error) {
	return s.repo.List(filter)
}

// GetByID 获取餐厅
func (s *RestaurantService) GetByID(id uint) (*models.Restaurant, error) {
	if id == 0 {
		return nil, ErrRestaurantNotFound
	}
	restaurant, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if restaurant == nil {
		return nil, ErrRestaurantNotFound
	}
	return restaurant, nil
}

// Create 创建餐厅
func (s *RestaurantService) Create(input CreateRestaurantInput) (*models.Restaurant, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrRestaurantInvalid)
	}
	if input.Latitude != 0 || input.Longitude != 0 {
		if !validCoordinates(input.Latitude, input.Longitude) {
			return nil, fmt.Errorf("%w: coordinates out of range", ErrRestaurantInvalid)
		}
	}
	status, ok := normalizeRestaurantStatus(input.Status)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported status %q", ErrRestaurantInvalid, input.Status)
	}
	count, err := s.repo.CountByName(name)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrRestaurantNameExists
	}

	restaurant := &models.Restaurant{
		Name:      name,
		Address:   strings.TrimSpace(input.Address),
		Phone:     strings.TrimSpace(input.Phone),
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
		Status:    status,
		IsActive:  true,
	}
	if err := s.repo.Create(restaurant); err != nil {
		return nil, err
	}
	return restaurant, nil
}

// UpdateStatus 修改营业状态
func (s *RestaurantService) UpdateStatus(id uint, status string) (*models.Restaurant, error) {
	normalized, ok := normalizeRestaurantStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported status %q", ErrRestaurantInvalid, status)
	}
	restaurant, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	restaurant.Status = normalized
	if err := s.repo.Update(restaurant); err != nil {
		return nil, err
	}
	return restaurant, nil
}

// EnrichCartRestaurant 用餐厅表补全加购载荷中缺失的名称、地址、电话与营业状态
// 餐厅表中不存在时原样返回，停用餐厅视为 closed
func (s *RestaurantService) EnrichCartRestaurant(input cart.RestaurantInput) (cart.RestaurantInput, error) {
	id := input.ResolvedID()
	if s == nil || id == 0 {
		return input, nil
	}
	restaurant, err := s.repo.GetByID(id)
	if err != nil {
		return input, err
	}
	if restaurant == nil {
		return input, nil
	}
	if strings.TrimSpace(input.Name) == "" {
		input.Name = restaurant.Name
	}
	if strings.TrimSpace(input.Address) == "" {
		input.Address = restaurant.Address
	}
	if strings.TrimSpace(input.Phone) == "" && strings.TrimSpace(input.PhoneNumber) == "" {
		input.Phone = restaurant.Phone
	}
	switch {
	case !restaurant.IsActive:
		input.Status = constants.RestaurantStatusClosed
	case strings.TrimSpace(input.Status) == "":
		input.Status = restaurant.Status
	}
	return input, nil
}

func normalizeRestaurantStatus(status string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(status))
	switch normalized {
	case "":
		return constants.RestaurantStatusOpen, true
	case constants.RestaurantStatusOpen, constants.RestaurantStatusClosed, constants.RestaurantStatusBusy:
		return normalized, true
	default:
		return "", false
	}
}
