package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dujiao-next/foodcart/internal/models"
)

// Snapshot 从持久化记录解码出的宽松状态，由 LoadCart 清洗
type Snapshot struct {
	Items            []CartItem
	Restaurants      map[uint]RestaurantRef
	DeliveryLocation *DeliveryLocation
	DeliveryFee      models.Money
	Discount         models.Money
	PromoCode        string
	DeliverySettings models.JSON
	FeeStatus        string
}

// SnapshotOf 将当前状态转为快照
func SnapshotOf(s State) Snapshot {
	c := s.Clone()
	return Snapshot{
		Items:            c.Items,
		Restaurants:      c.Restaurants,
		DeliveryLocation: c.DeliveryLocation,
		DeliveryFee:      c.DeliveryFee,
		Discount:         c.Discount,
		PromoCode:        c.PromoCode,
		DeliverySettings: c.DeliverySettings,
		FeeStatus:        c.FeeStatus,
	}
}

// EncodeState 序列化完整状态用于持久化
func EncodeState(s State) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSnapshot 解析持久化记录；顶层非对象时返回错误，单个字段损坏时取默认值
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrSnapshotInvalid, err)
	}
	if fields == nil {
		return Snapshot{}, fmt.Errorf("%w: empty record", ErrSnapshotInvalid)
	}

	snap := Snapshot{
		Items:       decodeItems(fields["items"]),
		Restaurants: decodeRestaurants(fields["restaurants"]),
	}
	if raw := fields["delivery_location"]; isPresent(raw) {
		var loc DeliveryLocation
		if err := json.Unmarshal(raw, &loc); err == nil {
			snap.DeliveryLocation = &loc
		}
	}
	snap.DeliveryFee = decodeMoney(fields["delivery_fee"])
	snap.Discount = decodeMoney(fields["discount"])
	_ = json.Unmarshal(fields["promo_code"], &snap.PromoCode)
	_ = json.Unmarshal(fields["fee_status"], &snap.FeeStatus)
	if raw := fields["delivery_settings"]; isPresent(raw) {
		var settings models.JSON
		if err := json.Unmarshal(raw, &settings); err == nil {
			snap.DeliverySettings = settings
		}
	}
	return snap, nil
}

func decodeItems(raw json.RawMessage) []CartItem {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return []CartItem{}
	}
	items := make([]CartItem, 0, len(elems))
	for _, elem := range elems {
		var item CartItem
		if err := json.Unmarshal(elem, &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items
}

func decodeRestaurants(raw json.RawMessage) map[uint]RestaurantRef {
	refs := map[uint]RestaurantRef{}
	var elems map[string]json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return refs
	}
	for key, elem := range elems {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil || id == 0 {
			continue
		}
		var ref RestaurantRef
		if err := json.Unmarshal(elem, &ref); err != nil {
			continue
		}
		ref.ID = uint(id)
		refs[uint(id)] = ref
	}
	return refs
}

func decodeMoney(raw json.RawMessage) models.Money {
	var m models.Money
	if !isPresent(raw) {
		return m
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return models.Money{}
	}
	return m
}

func isPresent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func cloneJSON(src models.JSON) models.JSON {
	if src == nil {
		return nil
	}
	out := make(models.JSON, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
