package public

import (
	"errors"
	"strings"

	"github.com/dujiao-next/foodcart/internal/cart"
	handlershared "github.com/dujiao-next/foodcart/internal/http/handlers/shared"
	"github.com/dujiao-next/foodcart/internal/http/response"
	"github.com/dujiao-next/foodcart/internal/models"

	"github.com/gin-gonic/gin"
)

type cartScope string

const (
	cartScopeUser  cartScope = "user"
	cartScopeGuest cartScope = "guest"
)

// CartHandler 购物车接口，用户与访客共用同一组处理函数
type CartHandler struct {
	*Handler
	scope cartScope
}

// UserCart 已登录用户购物车接口
func (h *Handler) UserCart() *CartHandler {
	return &CartHandler{Handler: h, scope: cartScopeUser}
}

// GuestCart 访客购物车接口
func (h *Handler) GuestCart() *CartHandler {
	return &CartHandler{Handler: h, scope: cartScopeGuest}
}

// AddCartItemRequest 加购请求
type AddCartItemRequest struct {
	Product    cart.ProductInput    `json:"product"`
	Restaurant cart.RestaurantInput `json:"restaurant"`
}

// UpdateCartItemRequest 修改数量请求
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// DeliveryLocationRequest 配送坐标请求，lat/lng 均为空时清除坐标
type DeliveryLocationRequest struct {
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lng"`
	Address   string   `json:"address"`
}

// DeliveryFeeOverrideRequest 覆盖配送费请求
type DeliveryFeeOverrideRequest struct {
	DeliveryFee models.Money `json:"delivery_fee"`
}

// DiscountRequest 覆盖优惠金额请求
type DiscountRequest struct {
	Discount models.Money `json:"discount"`
}

// PromoCodeRequest 优惠码请求
type PromoCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// AddCartItemResponse 加购响应
type AddCartItemResponse struct {
	cart.AddItemResult
	Cart cart.State `json:"cart"`
}

// ApplyPromoResponse 优惠码响应
type ApplyPromoResponse struct {
	Promo cart.PromoResult `json:"promo"`
	Cart  cart.State       `json:"cart"`
}

// CartGroupsResponse 按餐厅分组响应
type CartGroupsResponse struct {
	Groups          []cart.RestaurantGroup `json:"groups"`
	RestaurantCount int                    `json:"restaurant_count"`
}

// identity 解析当前请求对应的购物车键
func (h *CartHandler) identity(c *gin.Context) (cart.IdentityKey, *cart.Manager, bool) {
	if h.scope == cartScopeGuest {
		key := cart.GuestKey(h.Config.Cart.GuestKey, getGuestSession(c))
		return key, h.GuestCarts, key != ""
	}
	uid, ok := getUserID(c)
	if !ok {
		return "", h.UserCarts, false
	}
	key := cart.UserKey(h.Config.Cart.UserKeyPrefix, uid)
	return key, h.UserCarts, key != ""
}

// engine 获取购物车引擎，未登录时返回 401
func (h *CartHandler) engine(c *gin.Context) (*cart.Engine, bool) {
	key, manager, ok := h.identity(c)
	if !ok {
		respondError(c, response.CodeUnauthorized, cart.MessageLoginRequired, nil)
		return nil, false
	}
	engine, err := manager.Get(c.Request.Context(), key)
	if err != nil {
		respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, "cart fetch failed")
		return nil, false
	}
	return engine, true
}

// mutate 获取引擎并执行写操作；引擎恰好被回收时重新获取一次
// 失败时已写出错误响应，调用方直接返回
func (h *CartHandler) mutate(c *gin.Context, op func(engine *cart.Engine) error) (*cart.Engine, bool) {
	for attempt := 0; ; attempt++ {
		engine, ok := h.engine(c)
		if !ok {
			return nil, false
		}
		err := op(engine)
		if err == nil {
			return engine, true
		}
		if errors.Is(err, cart.ErrEngineClosed) && attempt == 0 {
			handlershared.RequestLog(c).Infow("cart_engine_closed_retry", "key", engine.Key().String())
			continue
		}
		respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, "cart update failed")
		return nil, false
	}
}

// waitSettled 等待进行中的配送费重算，被中断时只记录日志
func (h *CartHandler) waitSettled(c *gin.Context, engine *cart.Engine) {
	if err := engine.WaitIdle(c.Request.Context()); err != nil {
		handlershared.RequestLog(c).Warnw("cart_wait_idle_interrupted",
			"key", engine.Key().String(),
			"error", err,
		)
	}
}

// settled 等待进行中的配送费重算后返回最新状态
func (h *CartHandler) settled(c *gin.Context, engine *cart.Engine) cart.State {
	h.waitSettled(c, engine)
	return engine.Snapshot()
}

// GetCart 获取购物车
func (h *CartHandler) GetCart(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	response.Success(c, h.settled(c, engine))
}

// AddItem 加购
func (h *CartHandler) AddItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid cart item payload", nil)
		return
	}

	if _, _, ok := h.identity(c); !ok {
		result := cart.LoginRequiredResult()
		respondErrorWithData(c, response.CodeUnauthorized, result.Error, result, nil)
		return
	}
	restaurant, err := h.RestaurantService.EnrichCartRestaurant(req.Restaurant)
	if err != nil {
		handlershared.RequestLog(c).Warnw("cart_restaurant_enrich_failed",
			"restaurant_id", req.Restaurant.ResolvedID(),
			"error", err,
		)
		restaurant = req.Restaurant
	}

	var result cart.AddItemResult
	engine, ok := h.mutate(c, func(engine *cart.Engine) error {
		result = engine.AddItem(c.Request.Context(), req.Product, restaurant)
		if errors.Is(result.Err, cart.ErrEngineClosed) {
			return result.Err
		}
		return nil
	})
	if !ok {
		return
	}
	if !result.Success {
		code := response.CodeBadRequest
		for _, rule := range cartErrorRules {
			if errors.Is(result.Err, rule.target) {
				code = rule.code
				break
			}
		}
		respondErrorWithData(c, code, result.Error, result, nil)
		return
	}
	response.Success(c, AddCartItemResponse{
		AddItemResult: result,
		Cart:          h.settled(c, engine),
	})
}

// UpdateItem 修改购物车行数量，数量 <= 0 时删除
func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "quantity is required", nil)
		return
	}
	itemID := strings.TrimSpace(c.Param("item_id"))
	engine, ok := h.mutate(c, func(engine *cart.Engine) error {
		_, err := engine.UpdateQuantity(c.Request.Context(), itemID, *req.Quantity)
		return err
	})
	if !ok {
		return
	}
	response.Success(c, h.settled(c, engine))
}

// RemoveItem 删除购物车行
func (h *CartHandler) RemoveItem(c *gin.Context) {
	itemID := strings.TrimSpace(c.Param("item_id"))
	engine, ok := h.mutate(c, func(engine *cart.Engine) error {
		_, err := engine.RemoveItem(c.Request.Context(), itemID)
		return err
	})
	if !ok {
		return
	}
	response.Success(c, h.settled(c, engine))
}

// ClearCart 清空购物车
func (h *CartHandler) ClearCart(c *gin.Context) {
	var state cart.State
	if _, ok := h.mutate(c, func(engine *cart.Engine) error {
		var err error
		state, err = engine.ClearCart(c.Request.Context())
		return err
	}); !ok {
		return
	}
	response.Success(c, state)
}

// SetDeliveryLocation 设置配送坐标
func (h *CartHandler) SetDeliveryLocation(c *gin.Context) {
	var req DeliveryLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid delivery location", nil)
		return
	}
	var location *cart.DeliveryLocation
	switch {
	case req.Latitude == nil && req.Longitude == nil:
	case req.Latitude == nil || req.Longitude == nil:
		respondError(c, response.CodeBadRequest, "lat and lng must be provided together", nil)
		return
	default:
		location = &cart.DeliveryLocation{
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
			Address:   strings.TrimSpace(req.Address),
		}
	}

	engine, ok := h.mutate(c, func(engine *cart.Engine) error {
		_, err := engine.SetDeliveryLocation(c.Request.Context(), location)
		return err
	})
	if !ok {
		return
	}
	response.Success(c, h.settled(c, engine))
}

// SetDeliveryFee 直接覆盖配送费
func (h *CartHandler) SetDeliveryFee(c *gin.Context) {
	var req DeliveryFeeOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid delivery fee", nil)
		return
	}
	var state cart.State
	if _, ok := h.mutate(c, func(engine *cart.Engine) error {
		var err error
		state, err = engine.SetDeliveryFee(c.Request.Context(), req.DeliveryFee)
		return err
	}); !ok {
		return
	}
	response.Success(c, state)
}

// SetDiscount 直接覆盖优惠金额
func (h *CartHandler) SetDiscount(c *gin.Context) {
	var req DiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid discount", nil)
		return
	}
	var state cart.State
	if _, ok := h.mutate(c, func(engine *cart.Engine) error {
		var err error
		state, err = engine.SetDiscount(c.Request.Context(), req.Discount)
		return err
	}); !ok {
		return
	}
	response.Success(c, state)
}

// ApplyPromoCode 校验并应用优惠码
func (h *CartHandler) ApplyPromoCode(c *gin.Context) {
	var req PromoCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "code is required", nil)
		return
	}
	var result cart.PromoResult
	engine, ok := h.mutate(c, func(engine *cart.Engine) error {
		var err error
		result, err = engine.ApplyPromoCode(c.Request.Context(), req.Code)
		return err
	})
	if !ok {
		return
	}
	if !result.Success {
		respondErrorWithData(c, response.CodeBadRequest, result.Error, result, nil)
		return
	}
	response.Success(c, ApplyPromoResponse{Promo: result, Cart: engine.Snapshot()})
}

// RemovePromoCode 移除优惠码并清零优惠金额
func (h *CartHandler) RemovePromoCode(c *gin.Context) {
	var state cart.State
	if _, ok := h.mutate(c, func(engine *cart.Engine) error {
		var err error
		state, err = engine.RemovePromoCode(c.Request.Context())
		return err
	}); !ok {
		return
	}
	response.Success(c, state)
}

// GetGroups 按餐厅分组的购物车
func (h *CartHandler) GetGroups(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	response.Success(c, CartGroupsResponse{
		Groups:          engine.ItemsByRestaurant(),
		RestaurantCount: engine.RestaurantCount(),
	})
}

// GetFeeBreakdown 最近一次多餐厅报价明细
func (h *CartHandler) GetFeeBreakdown(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	h.waitSettled(c, engine)
	breakdown, err := engine.FeeBreakdown(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeInternal, "fee breakdown fetch failed", err)
		return
	}
	response.Success(c, breakdown)
}

// RefreshSettings 重新拉取公共配送设置
func (h *CartHandler) RefreshSettings(c *gin.Context) {
	var refreshErr error
	engine, ok := h.mutate(c, func(engine *cart.Engine) error {
		err := engine.RefreshDeliverySettings(c.Request.Context())
		if errors.Is(err, cart.ErrEngineClosed) {
			return err
		}
		refreshErr = err
		return nil
	})
	if !ok {
		return
	}
	if refreshErr != nil {
		respondError(c, response.CodeBadGateway, "delivery settings refresh failed", refreshErr)
		return
	}
	response.Success(c, engine.Snapshot())
}
