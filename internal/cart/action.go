package cart

import "github.com/dujiao-next/foodcart/internal/models"

// Action 购物车状态迁移动作，仅包内可实现
type Action interface {
	isAction()
}

// AddItem 加购（已完成边界校验与营业状态检查）
type AddItem struct {
	Item       CartItem
	Restaurant RestaurantRef
}

// UpdateQuantity 修改数量，<=0 等同删除
type UpdateQuantity struct {
	ItemID   string
	Quantity int
}

// RemoveItem 删除购物车行
type RemoveItem struct {
	ItemID string
}

// ClearCart 重置为初始状态
type ClearCart struct{}

// SetDeliveryFee 覆盖配送费
type SetDeliveryFee struct {
	Fee models.Money
}

// SetDiscount 覆盖优惠金额
type SetDiscount struct {
	Amount models.Money
}

// SetPromoCode 记录优惠码，不影响金额
type SetPromoCode struct {
	Code string
}

// SetDeliveryLocation 替换配送坐标，nil 表示清除
type SetDeliveryLocation struct {
	Location *DeliveryLocation
}

// LoadCart 以持久化快照整体替换状态
type LoadCart struct {
	Snapshot Snapshot
}

// UpdateDeliverySettings 保存配送设置原始载荷
type UpdateDeliverySettings struct {
	Settings models.JSON
}

// SetFeeStatus 记录当前配送费来源
type SetFeeStatus struct {
	Status string
}

func (AddItem) isAction()                {}
func (UpdateQuantity) isAction()         {}
func (RemoveItem) isAction()             {}
func (ClearCart) isAction()              {}
func (SetDeliveryFee) isAction()         {}
func (SetDiscount) isAction()            {}
func (SetPromoCode) isAction()           {}
func (SetDeliveryLocation) isAction()    {}
func (LoadCart) isAction()               {}
func (UpdateDeliverySettings) isAction() {}
func (SetFeeStatus) isAction()           {}
