package cart

import (
	"strings"

	"github.com/dujiao-next/foodcart/internal/models"

	"github.com/shopspring/decimal"
)

// UnknownRestaurantName 餐厅快照缺失且行上也无名称时的占位名
const UnknownRestaurantName = "Unknown restaurant"

// RestaurantGroup 按餐厅分组的购物车视图
type RestaurantGroup struct {
	Restaurant RestaurantRef `json:"restaurant"`
	Items      []CartItem    `json:"items"`
	Subtotal   models.Money  `json:"subtotal"`
}

// GroupByRestaurant 按首次出现顺序分组并计算每组小计
func GroupByRestaurant(items []CartItem, restaurants map[uint]RestaurantRef) []RestaurantGroup {
	groups := make([]RestaurantGroup, 0)
	index := make(map[uint]int)
	subtotals := make([]decimal.Decimal, 0)
	for _, item := range items {
		pos, ok := index[item.RestaurantID]
		if !ok {
			ref, found := restaurants[item.RestaurantID]
			if !found {
				name := strings.TrimSpace(item.RestaurantName)
				if name == "" {
					name = UnknownRestaurantName
				}
				ref = RestaurantRef{ID: item.RestaurantID, Name: name}
			}
			pos = len(groups)
			index[item.RestaurantID] = pos
			groups = append(groups, RestaurantGroup{Restaurant: ref, Items: []CartItem{}})
			subtotals = append(subtotals, decimal.Zero)
		}
		groups[pos].Items = append(groups[pos].Items, item)
		subtotals[pos] = subtotals[pos].Add(item.LineTotal())
	}
	for pos := range groups {
		groups[pos].Subtotal = models.NewMoneyFromDecimal(subtotals[pos])
	}
	return groups
}
