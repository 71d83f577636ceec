package public

import (
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/foodcart/internal/cache"
	"github.com/dujiao-next/foodcart/internal/http/response"
	"github.com/dujiao-next/foodcart/internal/models"
	"github.com/dujiao-next/foodcart/internal/repository"
	"github.com/dujiao-next/foodcart/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	publicSettingsCacheKey = "public:app_settings"
	publicSettingsCacheTTL = 60 * time.Second
)

// DeliveryFeeRequest 单餐厅配送费请求
type DeliveryFeeRequest struct {
	RestaurantID      uint    `json:"restaurant_id" binding:"required"`
	DeliveryLatitude  float64 `json:"delivery_latitude"`
	DeliveryLongitude float64 `json:"delivery_longitude"`
}

// MultiDeliveryFeeRequest 多餐厅配送费请求
type MultiDeliveryFeeRequest struct {
	RestaurantIDs     []uint  `json:"restaurant_ids" binding:"required"`
	DeliveryLatitude  float64 `json:"delivery_latitude"`
	DeliveryLongitude float64 `json:"delivery_longitude"`
}

// CalculateDeliveryFee 单餐厅配送费报价
func (h *Handler) CalculateDeliveryFee(c *gin.Context) {
	var req DeliveryFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "restaurant_id, delivery_latitude and delivery_longitude are required", nil)
		return
	}

	result, err := h.DeliveryFeeService.CalculateSingle(service.SingleDeliveryFeeInput{
		RestaurantID: req.RestaurantID,
		Latitude:     req.DeliveryLatitude,
		Longitude:    req.DeliveryLongitude,
	})
	if err != nil {
		respondWithMappedError(c, err, deliveryFeeErrorRules, response.CodeInternal, "delivery fee calculation failed")
		return
	}
	response.Success(c, result)
}

// CalculateMultiDeliveryFee 多餐厅配送费报价
func (h *Handler) CalculateMultiDeliveryFee(c *gin.Context) {
	var req MultiDeliveryFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "restaurant_ids, delivery_latitude and delivery_longitude are required", nil)
		return
	}

	result, err := h.DeliveryFeeService.CalculateMulti(service.MultiDeliveryFeeInput{
		RestaurantIDs: req.RestaurantIDs,
		Latitude:      req.DeliveryLatitude,
		Longitude:     req.DeliveryLongitude,
	})
	if err != nil {
		respondWithMappedError(c, err, deliveryFeeErrorRules, response.CodeInternal, "delivery fee calculation failed")
		return
	}
	response.Success(c, result)
}

// GetPublicSettings 公共配送设置
func (h *Handler) GetPublicSettings(c *gin.Context) {
	var cached models.JSON
	if hit, err := cache.GetJSON(c.Request.Context(), publicSettingsCacheKey, &cached); err == nil && hit {
		response.Success(c, cached)
		return
	}

	data, err := h.SettingService.PublicSettings(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeInternal, "delivery settings fetch failed", err)
		return
	}

	_ = cache.SetJSON(c.Request.Context(), publicSettingsCacheKey, data, publicSettingsCacheTTL)
	response.Success(c, data)
}

// GetRestaurants 启用中的餐厅列表
func (h *Handler) GetRestaurants(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	restaurants, total, err := h.RestaurantService.List(repository.RestaurantListFilter{
		Page:       page,
		PageSize:   pageSize,
		Search:     strings.TrimSpace(c.Query("search")),
		Status:     strings.TrimSpace(c.Query("status")),
		OnlyActive: true,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "restaurant fetch failed", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, restaurants, pagination)
}

// GetRestaurant 餐厅详情
func (h *Handler) GetRestaurant(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid restaurant id", nil)
		return
	}
	restaurant, err := h.RestaurantService.GetByID(uint(id))
	if err != nil {
		respondWithMappedError(c, err, restaurantErrorRules, response.CodeInternal, "restaurant fetch failed")
		return
	}
	if !restaurant.IsActive {
		respondError(c, response.CodeNotFound, "restaurant not found", nil)
		return
	}
	response.Success(c, restaurant)
}
