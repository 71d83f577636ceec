package cart

import (
	"strconv"

	"github.com/dujiao-next/foodcart/internal/constants"
)

// Reduce 纯状态迁移函数，不修改入参
func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case AddItem:
		return reduceAddItem(state, a)
	case UpdateQuantity:
		if a.Quantity <= 0 {
			return Reduce(state, RemoveItem{ItemID: a.ItemID})
		}
		next := state.Clone()
		for idx := range next.Items {
			if next.Items[idx].ID == a.ItemID {
				next.Items[idx].Quantity = a.Quantity
			}
		}
		return CalculateTotals(next)
	case RemoveItem:
		next := state.Clone()
		kept := make([]CartItem, 0, len(next.Items))
		for _, item := range next.Items {
			if item.ID != a.ItemID {
				kept = append(kept, item)
			}
		}
		next.Items = kept
		syncRestaurants(&next, nil)
		return CalculateTotals(next)
	case ClearCart:
		return NewState()
	case SetDeliveryFee:
		next := state.Clone()
		next.DeliveryFee = a.Fee.NonNegative()
		return CalculateTotals(next)
	case SetDiscount:
		next := state.Clone()
		next.Discount = a.Amount.NonNegative()
		return CalculateTotals(next)
	case SetPromoCode:
		next := state.Clone()
		next.PromoCode = a.Code
		return next
	case SetDeliveryLocation:
		next := state.Clone()
		next.DeliveryLocation = nil
		if a.Location != nil {
			loc := *a.Location
			next.DeliveryLocation = &loc
		}
		return CalculateTotals(next)
	case LoadCart:
		return loadSnapshot(a.Snapshot)
	case UpdateDeliverySettings:
		next := state.Clone()
		next.DeliverySettings = cloneJSON(a.Settings)
		return CalculateTotals(next)
	case SetFeeStatus:
		if !validFeeStatus(a.Status) {
			return state
		}
		next := state.Clone()
		next.FeeStatus = a.Status
		return next
	default:
		return state
	}
}

func reduceAddItem(state State, a AddItem) State {
	next := state.Clone()
	if idx := next.indexOfProduct(a.Item.ProductID); idx >= 0 {
		next.Items[idx].Quantity++
	} else {
		item := a.Item
		item.Quantity = 1
		item.RestaurantID = a.Restaurant.ID
		item.ID = uniqueItemID(next.Items, item.ID)
		next.Items = append(next.Items, item)
	}
	ref := a.Restaurant
	next.Restaurants[ref.ID] = ref
	syncRestaurants(&next, nil)
	return CalculateTotals(next)
}

// syncRestaurants 使餐厅表与购物车行一一对应：补齐缺失、剔除孤立
func syncRestaurants(s *State, known map[uint]RestaurantRef) {
	refs := make(map[uint]RestaurantRef, len(s.Restaurants))
	for _, item := range s.Items {
		if _, ok := refs[item.RestaurantID]; ok {
			continue
		}
		if ref, ok := s.Restaurants[item.RestaurantID]; ok {
			refs[item.RestaurantID] = ref
			continue
		}
		if ref, ok := known[item.RestaurantID]; ok {
			ref.ID = item.RestaurantID
			refs[item.RestaurantID] = ref
			continue
		}
		refs[item.RestaurantID] = RestaurantRef{ID: item.RestaurantID, Name: item.RestaurantName}
	}
	s.Restaurants = refs
}

func loadSnapshot(snap Snapshot) State {
	next := NewState()
	for _, item := range snap.Items {
		if !item.valid() {
			continue
		}
		if idx := next.indexOfProduct(item.ProductID); idx >= 0 {
			next.Items[idx].Quantity += item.Quantity
			continue
		}
		if item.ID == "" {
			item.ID = strconv.FormatUint(uint64(item.ProductID), 10)
		}
		item.ID = uniqueItemID(next.Items, item.ID)
		next.Items = append(next.Items, item)
	}
	syncRestaurants(&next, snap.Restaurants)
	if snap.DeliveryLocation != nil {
		loc := *snap.DeliveryLocation
		next.DeliveryLocation = &loc
	}
	next.DeliveryFee = snap.DeliveryFee.NonNegative()
	next.Discount = snap.Discount.NonNegative()
	next.PromoCode = snap.PromoCode
	next.DeliverySettings = cloneJSON(snap.DeliverySettings)
	if validFeeStatus(snap.FeeStatus) {
		next.FeeStatus = snap.FeeStatus
	}
	return CalculateTotals(next)
}

// uniqueItemID 在候选 ID 冲突时递增，保证购物车内唯一
func uniqueItemID(items []CartItem, candidate string) string {
	exists := func(id string) bool {
		for _, item := range items {
			if item.ID == id {
				return true
			}
		}
		return false
	}
	if candidate != "" && !exists(candidate) {
		return candidate
	}
	if n, err := strconv.ParseInt(candidate, 10, 64); err == nil {
		for {
			n++
			id := strconv.FormatInt(n, 10)
			if !exists(id) {
				return id
			}
		}
	}
	for suffix := 1; ; suffix++ {
		id := candidate + "-" + strconv.Itoa(suffix)
		if !exists(id) {
			return id
		}
	}
}

func validFeeStatus(status string) bool {
	switch status {
	case constants.FeeStatusNone, constants.FeeStatusPending, constants.FeeStatusQuoted, constants.FeeStatusUnknown:
		return true
	default:
		return false
	}
}
