package cart

import "testing"

func TestComputeTotals(t *testing.T) {
	items := []CartItem{
		{ID: "1", ProductID: 1, Price: money(100), Quantity: 2, RestaurantID: 1},
		{ID: "2", ProductID: 2, Price: money(50), Quantity: 1, RestaurantID: 2},
	}
	cases := []struct {
		name      string
		items     []CartItem
		fee       float64
		discount  float64
		subtotal  string
		itemCount int
		lineCount int
		total     string
	}{
		{name: "empty", items: nil, subtotal: "0.00", total: "0.00"},
		{name: "fee and discount", items: items, fee: 40, discount: 10, subtotal: "250.00", itemCount: 3, lineCount: 2, total: "280.00"},
		{name: "discount above subtotal", items: items, discount: 1000, subtotal: "250.00", itemCount: 3, lineCount: 2, total: "0.00"},
		{name: "discount on empty cart", items: nil, fee: 0, discount: 10, subtotal: "0.00", total: "0.00"},
		{name: "fractional price", items: []CartItem{{ProductID: 9, Price: money(0.1), Quantity: 3, RestaurantID: 1}}, subtotal: "0.30", itemCount: 3, lineCount: 1, total: "0.30"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeTotals(tc.items, money(tc.fee), money(tc.discount))
			if got.Subtotal.String() != tc.subtotal {
				t.Fatalf("subtotal want %s got %s", tc.subtotal, got.Subtotal)
			}
			if got.ItemCount != tc.itemCount || got.LineCount != tc.lineCount {
				t.Fatalf("counts want %d/%d got %d/%d", tc.itemCount, tc.lineCount, got.ItemCount, got.LineCount)
			}
			if got.Total.String() != tc.total {
				t.Fatalf("total want %s got %s", tc.total, got.Total)
			}
		})
	}
}
