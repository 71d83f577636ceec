package cart

import (
	"context"

	"github.com/dujiao-next/foodcart/internal/models"
)

// QuoteResult 配送费报价结果；Err 非空时 Fee 为 0
type QuoteResult struct {
	Fee    models.Money
	Status string
	Err    error
}

// Quoter 配送费报价客户端，错误通过 QuoteResult.Err 返回
type Quoter interface {
	Quote(ctx context.Context, key IdentityKey, location *DeliveryLocation, restaurants []RestaurantRef) QuoteResult
}

// FeeBreakdown 多餐厅配送费明细，保存在购物车状态之外
type FeeBreakdown struct {
	TotalDeliveryFee  models.Money  `json:"total_delivery_fee"`
	FeeBreakdown      models.JSON   `json:"breakdown"`
	Explanation       string        `json:"explanation"`
	Restaurants       []models.JSON `json:"restaurants"`
	CalculationMethod string        `json:"calculation_method"`
}

// BreakdownStore 配送费明细缓存
type BreakdownStore interface {
	Get(ctx context.Context, key IdentityKey) (*FeeBreakdown, error)
	Delete(ctx context.Context, key IdentityKey) error
}

// SettingsSource 公共配送设置来源
type SettingsSource interface {
	PublicSettings(ctx context.Context) (models.JSON, error)
}
