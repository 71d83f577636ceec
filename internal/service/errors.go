package service

import "errors"

var (
	// ErrDeliveryConfigInvalid 配送设置非法
	ErrDeliveryConfigInvalid = errors.New("delivery config invalid")
	// ErrRestaurantNotFound 餐厅不存在或已停用
	ErrRestaurantNotFound = errors.New("restaurant not found")
	// ErrRestaurantInvalid 餐厅参数非法
	ErrRestaurantInvalid = errors.New("restaurant invalid")
	// ErrRestaurantNameExists 餐厅名称重复
	ErrRestaurantNameExists = errors.New("restaurant name already exists")
	// ErrRestaurantLocationMissing 餐厅未配置坐标
	ErrRestaurantLocationMissing = errors.New("restaurant location is not configured")
	// ErrDeliveryCoordinatesInvalid 配送坐标非法
	ErrDeliveryCoordinatesInvalid = errors.New("valid delivery latitude and longitude are required")
	// ErrDeliveryRestaurantsRequired 缺少餐厅
	ErrDeliveryRestaurantsRequired = errors.New("at least one restaurant is required")
	// ErrDeliveryOutOfRange 超出配送范围
	ErrDeliveryOutOfRange = errors.New("delivery location out of range")
	// ErrCartSnapshotInvalid 购物车快照参数非法
	ErrCartSnapshotInvalid = errors.New("cart snapshot invalid")
)
