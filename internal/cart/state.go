package cart

import (
	"encoding/json"
	"sort"

	"github.com/dujiao-next/foodcart/internal/constants"
	"github.com/dujiao-next/foodcart/internal/models"

	"github.com/shopspring/decimal"
)

// CartItem 购物车行，同一商品只占一行
type CartItem struct {
	ID                  string          `json:"id"`
	ProductID           uint            `json:"product_id"`
	ProductName         string          `json:"product_name"`
	Price               models.Money    `json:"price"`
	Quantity            int             `json:"quantity"`
	RestaurantID        uint            `json:"restaurant_id"`
	RestaurantName      string          `json:"restaurant_name"`
	ImageURL            string          `json:"image_url,omitempty"`
	ImageDisplayURL     string          `json:"image_display_url,omitempty"`
	SpecialInstructions string          `json:"special_instructions"`
	Translations        json.RawMessage `json:"translations,omitempty"`
}

// LineTotal 行小计
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Decimal.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i CartItem) valid() bool {
	return i.ProductID != 0 && i.RestaurantID != 0 && i.Quantity >= 1 && !i.Price.Decimal.IsNegative()
}

// RestaurantRef 购物车内的餐厅快照
type RestaurantRef struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// DeliveryLocation 配送坐标
type DeliveryLocation struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Address   string  `json:"address"`
}

// Complete 坐标是否齐全，零值视为缺失
func (l *DeliveryLocation) Complete() bool {
	return l != nil && l.Latitude != 0 && l.Longitude != 0
}

// State 购物车聚合状态，Subtotal/ItemCount/LineCount/Total 为派生字段
type State struct {
	Items            []CartItem             `json:"items"`
	Restaurants      map[uint]RestaurantRef `json:"restaurants"`
	DeliveryLocation *DeliveryLocation      `json:"delivery_location"`
	DeliveryFee      models.Money           `json:"delivery_fee"`
	Discount         models.Money           `json:"discount"`
	PromoCode        string                 `json:"promo_code"`
	DeliverySettings models.JSON            `json:"delivery_settings"`
	FeeStatus        string                 `json:"fee_status"`

	Subtotal  models.Money `json:"subtotal"`
	ItemCount int          `json:"item_count"`
	LineCount int          `json:"line_count"`
	Total     models.Money `json:"total"`
}

// NewState 初始空状态
func NewState() State {
	return CalculateTotals(State{
		Items:       []CartItem{},
		Restaurants: map[uint]RestaurantRef{},
		FeeStatus:   constants.FeeStatusNone,
	})
}

// Clone 深拷贝，保证 Reduce 不修改入参
func (s State) Clone() State {
	out := s
	out.Items = make([]CartItem, len(s.Items))
	copy(out.Items, s.Items)
	out.Restaurants = make(map[uint]RestaurantRef, len(s.Restaurants))
	for id, ref := range s.Restaurants {
		out.Restaurants[id] = ref
	}
	if s.DeliveryLocation != nil {
		loc := *s.DeliveryLocation
		out.DeliveryLocation = &loc
	}
	out.DeliverySettings = cloneJSON(s.DeliverySettings)
	return out
}

// RestaurantIDs 购物车中的餐厅 ID，升序
func (s State) RestaurantIDs() []uint {
	ids := make([]uint, 0, len(s.Restaurants))
	for id := range s.Restaurants {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RestaurantList 按 ID 升序返回餐厅快照
func (s State) RestaurantList() []RestaurantRef {
	ids := s.RestaurantIDs()
	refs := make([]RestaurantRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, s.Restaurants[id])
	}
	return refs
}

// FindItem 按行 ID 查找
func (s State) FindItem(itemID string) (CartItem, bool) {
	for _, item := range s.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return CartItem{}, false
}

func (s State) indexOfProduct(productID uint) int {
	for idx, item := range s.Items {
		if item.ProductID == productID {
			return idx
		}
	}
	return -1
}

func (s State) hasItemID(id string) bool {
	_, ok := s.FindItem(id)
	return ok
}
