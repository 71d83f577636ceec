package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dujiao-next/foodcart/internal/constants"
	"github.com/dujiao-next/foodcart/internal/models"
)

// ProductInput 外部商品载荷
type ProductInput struct {
	ProductID           uint            `json:"product_id"`
	ProductName         string          `json:"product_name"`
	Price               models.Money    `json:"price"`
	ImageURL            string          `json:"image_url"`
	ImageDisplayURL     string          `json:"image_display_url"`
	RestaurantStatus    string          `json:"restaurant_status"`
	SpecialInstructions string          `json:"special_instructions"`
	Translations        json.RawMessage `json:"translations"`
}

// RestaurantInput 外部餐厅载荷，id/restaurant_id 与 phone/phone_number 任取其一
type RestaurantInput struct {
	ID           uint   `json:"id"`
	RestaurantID uint   `json:"restaurant_id"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	PhoneNumber  string `json:"phone_number"`
	Status       string `json:"status"`
}

// ResolvedID 餐厅 ID
func (r RestaurantInput) ResolvedID() uint {
	if r.ID != 0 {
		return r.ID
	}
	return r.RestaurantID
}

// NormalizeRestaurant 将外部餐厅载荷转换为 RestaurantRef
func NormalizeRestaurant(in RestaurantInput) (RestaurantRef, error) {
	id := in.ResolvedID()
	if id == 0 {
		return RestaurantRef{}, fmt.Errorf("%w: restaurant id is required", ErrInvalidRestaurant)
	}
	phone := strings.TrimSpace(in.PhoneNumber)
	if phone == "" {
		phone = strings.TrimSpace(in.Phone)
	}
	return RestaurantRef{
		ID:      id,
		Name:    strings.TrimSpace(in.Name),
		Address: strings.TrimSpace(in.Address),
		Phone:   phone,
	}, nil
}

// NormalizeProduct 将外部商品载荷转换为 CartItem，数量由 AddItem 决定
func NormalizeProduct(in ProductInput, restaurant RestaurantRef, itemID string) (CartItem, error) {
	if in.ProductID == 0 {
		return CartItem{}, fmt.Errorf("%w: product id is required", ErrInvalidProduct)
	}
	if in.Price.Decimal.IsNegative() {
		return CartItem{}, fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if restaurant.ID == 0 {
		return CartItem{}, fmt.Errorf("%w: restaurant id is required", ErrInvalidRestaurant)
	}
	var translations json.RawMessage
	if trimmed := bytes.TrimSpace(in.Translations); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		translations = append(json.RawMessage(nil), trimmed...)
	}
	return CartItem{
		ID:                  itemID,
		ProductID:           in.ProductID,
		ProductName:         strings.TrimSpace(in.ProductName),
		Price:               models.NewMoneyFromDecimal(in.Price.Decimal),
		Quantity:            1,
		RestaurantID:        restaurant.ID,
		RestaurantName:      restaurant.Name,
		ImageURL:            strings.TrimSpace(in.ImageURL),
		ImageDisplayURL:     strings.TrimSpace(in.ImageDisplayURL),
		SpecialInstructions: strings.TrimSpace(in.SpecialInstructions),
		Translations:        translations,
	}, nil
}

// ResolveRestaurantStatus 商品上的状态优先，其次餐厅状态，缺省为 open
func ResolveRestaurantStatus(product ProductInput, restaurant RestaurantInput) string {
	if status := strings.ToLower(strings.TrimSpace(product.RestaurantStatus)); status != "" {
		return status
	}
	if status := strings.ToLower(strings.TrimSpace(restaurant.Status)); status != "" {
		return status
	}
	return constants.RestaurantStatusOpen
}
