package constants

// 餐厅营业状态常量
const (
	RestaurantStatusOpen   = "open"
	RestaurantStatusClosed = "closed"
	RestaurantStatusBusy   = "busy"
)

// 购物车持久化键常量
const (
	CartUserKeyPrefix = "cart_"
	CartGuestKey      = "guest_cart"
	CartGuestKeySep   = "_"
)

// 配送费来源状态常量
const (
	FeeStatusNone    = "none"
	FeeStatusPending = "pending"
	FeeStatusQuoted  = "quoted"
	FeeStatusUnknown = "unknown"
)

// 配送费计算方式常量
const (
	FeeMethodSingle             = "single_restaurant_distance"
	FeeMethodFarthestRestaurant = "farthest_restaurant_plus_additional"
)

// 购物车存储后端常量
const (
	CartStoreDatabase = "database"
	CartStoreRedis    = "redis"
	CartStoreMemory   = "memory"
)

// 报价服务模式常量
const (
	FeeQuoteModeLocal = "local"
	FeeQuoteModeHTTP  = "http"
)

// 设置键常量
const (
	SettingKeyDeliveryConfig = "delivery_config"
)

// 配送设置字段常量
const (
	SettingFieldBaseDeliveryFee              = "base_delivery_fee"
	SettingFieldIncludedDistanceKm           = "included_distance_km"
	SettingFieldPerKmFee                     = "per_km_fee"
	SettingFieldMinDeliveryFee               = "min_delivery_fee"
	SettingFieldMaxDeliveryFee               = "max_delivery_fee"
	SettingFieldMaxDeliveryDistance          = "max_delivery_distance"
	SettingFieldFreeDeliveryMinimum          = "free_delivery_minimum"
	SettingFieldMultiRestaurantBaseFee       = "multi_restaurant_base_fee"
	SettingFieldMultiRestaurantAdditionalFee = "multi_restaurant_additional_fee"
	SettingFieldDeliveryTimeSlots            = "delivery_time_slots"
	SettingFieldEnableScheduledDelivery      = "enable_scheduled_delivery"
	SettingFieldCurrency                     = "currency"
)

// 队列名称常量
const (
	QueueDefault = "default"
)

// 异步任务类型常量
const (
	TaskCartSnapshotPersist = "cart:snapshot_persist"
	TaskCartSnapshotDelete  = "cart:snapshot_delete"
)
