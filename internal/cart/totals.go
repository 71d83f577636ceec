package cart

import (
	"github.com/dujiao-next/foodcart/internal/models"

	"github.com/shopspring/decimal"
)

// Totals 金额汇总
type Totals struct {
	Subtotal  models.Money `json:"subtotal"`
	ItemCount int          `json:"item_count"`
	LineCount int          `json:"line_count"`
	Total     models.Money `json:"total"`
}

// ComputeTotals 计算小计、件数与应付总额，总额不小于 0
func ComputeTotals(items []CartItem, deliveryFee, discount models.Money) Totals {
	subtotal := decimal.Zero
	count := 0
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
		count += item.Quantity
	}
	total := subtotal.Add(deliveryFee.Decimal).Sub(discount.Decimal)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return Totals{
		Subtotal:  models.NewMoneyFromDecimal(subtotal),
		ItemCount: count,
		LineCount: len(items),
		Total:     models.NewMoneyFromDecimal(total),
	}
}

// CalculateTotals 回填状态上的派生字段
func CalculateTotals(s State) State {
	totals := ComputeTotals(s.Items, s.DeliveryFee, s.Discount)
	s.Subtotal = totals.Subtotal
	s.ItemCount = totals.ItemCount
	s.LineCount = totals.LineCount
	s.Total = totals.Total
	return s
}
