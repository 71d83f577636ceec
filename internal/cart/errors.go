package cart

import "errors"

var (
	// ErrRestaurantClosed 餐厅未营业，禁止加购
	ErrRestaurantClosed = errors.New("restaurant is closed")
	// ErrLoginRequired 需要登录后才能加购
	ErrLoginRequired = errors.New("login required")
	// ErrInvalidProduct 商品载荷非法
	ErrInvalidProduct = errors.New("invalid product")
	// ErrInvalidRestaurant 餐厅载荷非法
	ErrInvalidRestaurant = errors.New("invalid restaurant")
	// ErrPromoInvalid 优惠码无效
	ErrPromoInvalid = errors.New("invalid promo code")
	// ErrItemNotFound 购物车行不存在
	ErrItemNotFound = errors.New("cart item not found")
	// ErrManagerClosed 管理器已关闭
	ErrManagerClosed = errors.New("cart manager closed")
	// ErrEngineClosed 引擎已被回收或关闭，需重新获取
	ErrEngineClosed = errors.New("cart engine closed")
	// ErrSnapshotInvalid 持久化快照无法解析
	ErrSnapshotInvalid = errors.New("cart snapshot invalid")
)

// 面向购物者的提示文案
const (
	MessageRestaurantClosed = "This restaurant is closed. Cannot add items to cart."
	MessageLoginRequired    = "Please login before adding items to cart"
	MessagePromoInvalid     = "Invalid promo code"
)
