package cart

import (
	"errors"
	"testing"

	"github.com/dujiao-next/foodcart/internal/constants"
)

func TestEncodeDecodeSnapshotRestoresState(t *testing.T) {
	state := addTo(NewState(), itemFor("1", 10, 1, 100))
	state = addTo(state, itemFor("2", 20, 2, 50))
	state = Reduce(state, SetDiscount{Amount: money(10)})
	state = Reduce(state, SetPromoCode{Code: "SAVE10"})
	state = Reduce(state, SetDeliveryLocation{Location: &DeliveryLocation{Latitude: 9.03, Longitude: 38.74, Address: "Bole"}})
	state = Reduce(state, SetDeliveryFee{Fee: money(40)})
	state = Reduce(state, SetFeeStatus{Status: constants.FeeStatusQuoted})

	payload, err := EncodeState(state)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	snap, err := DecodeSnapshot(payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	restored := Reduce(NewState(), LoadCart{Snapshot: snap})

	if restored.Total.String() != "280.00" || restored.Subtotal.String() != "250.00" {
		t.Fatalf("unexpected totals: subtotal=%s total=%s", restored.Subtotal, restored.Total)
	}
	if restored.PromoCode != "SAVE10" || restored.FeeStatus != constants.FeeStatusQuoted {
		t.Fatalf("unexpected promo/status: %s/%s", restored.PromoCode, restored.FeeStatus)
	}
	if restored.DeliveryLocation == nil || restored.DeliveryLocation.Address != "Bole" {
		t.Fatalf("location not restored: %+v", restored.DeliveryLocation)
	}
	if len(restored.Restaurants) != 2 || restored.Restaurants[2].ID != 2 {
		t.Fatalf("restaurants not restored: %+v", restored.Restaurants)
	}
}

func TestDecodeSnapshotRejectsNonObject(t *testing.T) {
	for _, payload := range []string{"", "[]", "null", "not json"} {
		if _, err := DecodeSnapshot([]byte(payload)); !errors.Is(err, ErrSnapshotInvalid) {
			t.Fatalf("payload %q want ErrSnapshotInvalid got %v", payload, err)
		}
	}
}

func TestDecodeSnapshotToleratesBrokenFields(t *testing.T) {
	payload := `{
		"items": [{"id":"1","product_id":5,"price":"12.50","quantity":2,"restaurant_id":3}, "garbage", {"product_id":"x"}],
		"restaurants": {"3": {"name":"Three"}, "abc": {"name":"bad key"}, "4": 7},
		"delivery_location": "nowhere",
		"delivery_fee": {"bad": true},
		"discount": 4,
		"promo_code": 10,
		"fee_status": "quoted",
		"delivery_settings": [1,2]
	}`
	snap, err := DecodeSnapshot([]byte(payload))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(snap.Items) != 1 || snap.Items[0].Price.String() != "12.50" {
		t.Fatalf("unexpected items: %+v", snap.Items)
	}
	if len(snap.Restaurants) != 1 || snap.Restaurants[3].Name != "Three" || snap.Restaurants[3].ID != 3 {
		t.Fatalf("unexpected restaurants: %+v", snap.Restaurants)
	}
	if snap.DeliveryLocation != nil {
		t.Fatalf("broken location should be dropped")
	}
	if !snap.DeliveryFee.IsZero() || snap.Discount.String() != "4.00" {
		t.Fatalf("unexpected amounts fee=%s discount=%s", snap.DeliveryFee, snap.Discount)
	}
	if snap.PromoCode != "" || snap.FeeStatus != constants.FeeStatusQuoted {
		t.Fatalf("unexpected promo/status %q/%q", snap.PromoCode, snap.FeeStatus)
	}
	if snap.DeliverySettings != nil {
		t.Fatalf("non-object settings should be dropped")
	}

	state := Reduce(NewState(), LoadCart{Snapshot: snap})
	if state.Total.String() != "21.00" {
		t.Fatalf("want total 21.00 got %s", state.Total)
	}
	assertInvariants(t, state)
}

func TestDecodeSnapshotMissingFieldsDefault(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if snap.Items == nil || snap.Restaurants == nil {
		t.Fatalf("collections should default to empty")
	}
	state := Reduce(NewState(), LoadCart{Snapshot: snap})
	if state.FeeStatus != constants.FeeStatusNone || !state.Total.IsZero() {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestSnapshotOfRoundTripsThroughLoadCart(t *testing.T) {
	state := addTo(NewState(), itemFor("1", 10, 2, 100))
	state = Reduce(state, UpdateQuantity{ItemID: "1", Quantity: 2})
	state = Reduce(state, SetPromoCode{Code: "SAVE10"})
	state = Reduce(state, SetDiscount{Amount: money(10)})

	snap := SnapshotOf(state)
	snap.Items[0].Quantity = 9
	if state.Items[0].Quantity != 2 {
		t.Fatalf("snapshot should not alias state items")
	}

	restored := Reduce(NewState(), LoadCart{Snapshot: SnapshotOf(state)})
	if restored.ItemCount != 2 || restored.Total.String() != "190.00" {
		t.Fatalf("restored state unexpected: count=%d total=%s", restored.ItemCount, restored.Total)
	}
	if restored.PromoCode != "SAVE10" {
		t.Fatalf("promo code not restored: %q", restored.PromoCode)
	}
}
