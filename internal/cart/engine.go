package cart

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/dujiao-next/foodcart/internal/constants"
	"github.com/dujiao-next/foodcart/internal/logger"
	"github.com/dujiao-next/foodcart/internal/models"

	"go.uber.org/zap"
)

const defaultQuoteTimeout = 10 * time.Second

// EngineOptions 引擎依赖与配置
type EngineOptions struct {
	Persister       *Persister
	Quoter          Quoter
	Breakdowns      BreakdownStore
	Settings        SettingsSource
	Promos          PromoTable
	QuoteTimeout    time.Duration
	RequireIdentity bool
	Logger          *zap.SugaredLogger
	Now             func() time.Time
}

func (o EngineOptions) normalized() EngineOptions {
	if o.QuoteTimeout < 0 {
		o.QuoteTimeout = 0
	} else if o.QuoteTimeout == 0 {
		o.QuoteTimeout = defaultQuoteTimeout
	}
	if o.Promos.codes == nil {
		o.Promos = DefaultPromoTable()
	}
	if o.Logger == nil {
		o.Logger = logger.Named("cart")
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// AddItemResult 加购结果
type AddItemResult struct {
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	RequiresLogin bool      `json:"requires_login,omitempty"`
	Item          *CartItem `json:"item,omitempty"`
	Err           error     `json:"-"`
}

// LoginRequiredResult 未登录时的加购结果
func LoginRequiredResult() AddItemResult {
	return AddItemResult{
		Success:       false,
		Error:         MessageLoginRequired,
		RequiresLogin: true,
		Err:           ErrLoginRequired,
	}
}

// Engine 单个身份的购物车引擎
// 所有迁移在互斥锁内完成；配送费由后台 recomputer 异步回写
type Engine struct {
	opts EngineOptions
	log  *zap.SugaredLogger

	mu          sync.Mutex
	key         IdentityKey
	state       State
	epoch       uint64
	revision    int64
	tuple       triggerTuple
	hasTuple    bool
	lastStamp   int64
	lastActive  time.Time
	closed      bool
	subscribers map[uint64]chan State
	nextSub     uint64

	recomputer *recomputer
}

// NewEngine 创建引擎并从持久化存储加载该身份的购物车
func NewEngine(ctx context.Context, key IdentityKey, opts EngineOptions) *Engine {
	opts = opts.normalized()
	e := &Engine{
		opts:        opts,
		log:         opts.Logger,
		key:         key,
		state:       NewState(),
		lastActive:  opts.Now(),
		subscribers: make(map[uint64]chan State),
	}
	e.recomputer = newRecomputer(opts.Quoter, e.applyFeeUpdate, opts.QuoteTimeout, opts.Logger)
	e.load(ctx, key, 0)
	return e
}

// Key 当前身份键
func (e *Engine) Key() IdentityKey {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.key
}

// touch 刷新最近访问时间
func (e *Engine) touch() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastActive = e.opts.Now()
}

// LastActive 最近一次访问时间
func (e *Engine) LastActive() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastActive
}

// Snapshot 当前状态副本
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastActive = e.opts.Now()
	return e.state.Clone()
}

// AddItem 加购；餐厅未营业、未登录或引擎已关闭时不修改状态
func (e *Engine) AddItem(ctx context.Context, product ProductInput, restaurant RestaurantInput) AddItemResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return AddItemResult{Success: false, Error: ErrEngineClosed.Error(), Err: ErrEngineClosed}
	}
	if e.opts.RequireIdentity && e.key == "" {
		return LoginRequiredResult()
	}
	if status := ResolveRestaurantStatus(product, restaurant); status != constants.RestaurantStatusOpen {
		e.log.Infow("cart_add_item_rejected_restaurant_status",
			"key", e.key.String(),
			"product_id", product.ProductID,
			"restaurant_id", restaurant.ResolvedID(),
			"status", status,
		)
		return AddItemResult{Success: false, Error: MessageRestaurantClosed, Err: ErrRestaurantClosed}
	}
	ref, err := NormalizeRestaurant(restaurant)
	if err != nil {
		return AddItemResult{Success: false, Error: err.Error(), Err: err}
	}
	item, err := NormalizeProduct(product, ref, e.nextItemIDLocked())
	if err != nil {
		return AddItemResult{Success: false, Error: err.Error(), Err: err}
	}
	next := Reduce(e.state, AddItem{Item: item, Restaurant: ref})
	e.commitLocked(next, true)
	if idx := next.indexOfProduct(item.ProductID); idx >= 0 {
		added := next.Items[idx]
		return AddItemResult{Success: true, Item: &added}
	}
	return AddItemResult{Success: true}
}

// UpdateQuantity 修改数量，<=0 时删除该行
func (e *Engine) UpdateQuantity(ctx context.Context, itemID string, quantity int) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return e.state.Clone(), ErrEngineClosed
	}
	if !e.state.hasItemID(itemID) {
		return e.state.Clone(), ErrItemNotFound
	}
	return e.dispatchLocked(UpdateQuantity{ItemID: itemID, Quantity: quantity})
}

// RemoveItem 删除购物车行
func (e *Engine) RemoveItem(ctx context.Context, itemID string) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return e.state.Clone(), ErrEngineClosed
	}
	if !e.state.hasItemID(itemID) {
		return e.state.Clone(), ErrItemNotFound
	}
	return e.dispatchLocked(RemoveItem{ItemID: itemID})
}

// ClearCart 清空购物车并删除持久化记录，进行中的报价作废
func (e *Engine) ClearCart(ctx context.Context) (State, error) {
	e.mu.Lock()
	if e.closed {
		out := e.state.Clone()
		e.mu.Unlock()
		return out, ErrEngineClosed
	}
	e.epoch++
	e.recomputer.cancelCurrent()
	key := e.key
	next := Reduce(e.state, ClearCart{})
	e.commitLocked(next, false)
	if key != "" {
		e.revision++
		e.opts.Persister.Delete(key, e.revision)
	}
	out := e.state.Clone()
	e.mu.Unlock()

	e.clearBreakdown(ctx, key)
	return out, nil
}

// SetDeliveryLocation 替换配送坐标，坐标变化时清除旧的费用明细
func (e *Engine) SetDeliveryLocation(ctx context.Context, location *DeliveryLocation) (State, error) {
	e.mu.Lock()
	key := e.key
	changed := !sameCoordinates(e.state.DeliveryLocation, location)
	out, err := e.dispatchLocked(SetDeliveryLocation{Location: location})
	e.mu.Unlock()

	if err == nil && changed {
		e.clearBreakdown(ctx, key)
	}
	return out, err
}

// SetDeliveryFee 直接覆盖配送费
func (e *Engine) SetDeliveryFee(ctx context.Context, fee models.Money) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return e.state.Clone(), ErrEngineClosed
	}
	next := Reduce(e.state, SetDeliveryFee{Fee: fee})
	next = Reduce(next, SetFeeStatus{Status: constants.FeeStatusQuoted})
	e.commitLocked(next, true)
	return next.Clone(), nil
}

// SetDiscount 直接覆盖优惠金额
func (e *Engine) SetDiscount(ctx context.Context, amount models.Money) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dispatchLocked(SetDiscount{Amount: amount})
}

// SetPromoCode 记录优惠码
func (e *Engine) SetPromoCode(ctx context.Context, code string) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dispatchLocked(SetPromoCode{Code: code})
}

// RemovePromoCode 清除优惠码并清零优惠金额
func (e *Engine) RemovePromoCode(ctx context.Context) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return e.state.Clone(), ErrEngineClosed
	}
	next := Reduce(e.state, SetPromoCode{Code: ""})
	next = Reduce(next, SetDiscount{Amount: models.Money{}})
	e.commitLocked(next, true)
	return next.Clone(), nil
}

// ApplyPromoCode 校验优惠码，成功时同时写入优惠金额与优惠码
// 无效优惠码只体现在结果中，error 仅在引擎已关闭时返回
func (e *Engine) ApplyPromoCode(ctx context.Context, code string) (PromoResult, error) {
	result := e.opts.Promos.Validate(code)
	if !result.Success {
		return result, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return PromoResult{Success: false, Error: ErrEngineClosed.Error()}, ErrEngineClosed
	}
	next := Reduce(e.state, SetDiscount{Amount: result.Discount})
	next = Reduce(next, SetPromoCode{Code: result.Code})
	e.commitLocked(next, true)
	return result, nil
}

// ItemsByRestaurant 按餐厅分组
func (e *Engine) ItemsByRestaurant() []RestaurantGroup {
	e.mu.Lock()
	defer e.mu.Unlock()
	return GroupByRestaurant(e.state.Items, e.state.Restaurants)
}

// RestaurantCount 购物车中的餐厅数
func (e *Engine) RestaurantCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.state.Restaurants)
}

// Subscribe 订阅状态变化；通道只保留最新状态
func (e *Engine) Subscribe() (<-chan State, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan State, 1)
	if e.closed {
		close(ch)
		return ch, func() {}
	}
	id := e.nextSub
	e.nextSub++
	e.subscribers[id] = ch
	ch <- e.state.Clone()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if sub, ok := e.subscribers[id]; ok {
				delete(e.subscribers, id)
				close(sub)
			}
		})
	}
}

// SwitchIdentity 切换身份：重置为空状态后加载新键的记录，不合并购物车
func (e *Engine) SwitchIdentity(ctx context.Context, key IdentityKey) {
	e.mu.Lock()
	if e.closed || key == e.key {
		e.mu.Unlock()
		return
	}
	e.epoch++
	e.recomputer.cancelCurrent()
	previous := e.key
	e.key = key
	e.revision = 0
	e.hasTuple = false
	e.commitLocked(NewState(), false)
	epoch := e.epoch
	e.mu.Unlock()

	e.log.Infow("cart_identity_switched", "from", previous.String(), "to", key.String())
	e.load(ctx, key, epoch)
}

// RefreshDeliverySettings 拉取公共配送设置并写入状态
func (e *Engine) RefreshDeliverySettings(ctx context.Context) error {
	if e.opts.Settings == nil {
		return nil
	}
	settings, err := e.opts.Settings.PublicSettings(ctx)
	if err != nil {
		e.log.Warnw("cart_refresh_delivery_settings_failed", "key", e.Key().String(), "error", err)
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err = e.dispatchLocked(UpdateDeliverySettings{Settings: settings})
	return err
}

// FeeBreakdown 最近一次多餐厅报价的费用明细
func (e *Engine) FeeBreakdown(ctx context.Context) (*FeeBreakdown, error) {
	if e.opts.Breakdowns == nil {
		return nil, nil
	}
	key := e.Key()
	if key == "" {
		return nil, nil
	}
	return e.opts.Breakdowns.Get(ctx, key)
}

// WaitIdle 等待进行中的配送费重算完成
func (e *Engine) WaitIdle(ctx context.Context) error {
	return e.recomputer.waitIdle(ctx)
}

// Idle 是否没有排队或进行中的报价
func (e *Engine) Idle() bool {
	e.recomputer.mu.Lock()
	defer e.recomputer.mu.Unlock()
	return e.recomputer.idle == nil
}

// Close 停止后台协程并关闭所有订阅
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.epoch++
	for id, ch := range e.subscribers {
		delete(e.subscribers, id)
		close(ch)
	}
	e.mu.Unlock()
	e.recomputer.stop()
}

func (e *Engine) load(ctx context.Context, key IdentityKey, epoch uint64) {
	snap, revision, found := e.opts.Persister.Load(ctx, key)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.key != key || e.epoch != epoch {
		return
	}
	if revision > e.revision {
		e.revision = revision
	}
	if !found {
		e.maybeTriggerLocked()
		return
	}
	e.commitLocked(Reduce(e.state, LoadCart{Snapshot: snap}), false)
	e.log.Debugw("cart_loaded", "key", key.String(), "revision", revision, "items", len(e.state.Items))
}

func (e *Engine) dispatchLocked(action Action) (State, error) {
	if e.closed {
		return e.state.Clone(), ErrEngineClosed
	}
	next := Reduce(e.state, action)
	e.commitLocked(next, true)
	return next.Clone(), nil
}

// commitLocked 保存新状态，按需持久化、通知订阅者并检查是否需要重新报价
func (e *Engine) commitLocked(next State, persist bool) {
	e.state = next
	e.lastActive = e.opts.Now()
	if persist && e.key != "" {
		e.revision++
		e.opts.Persister.Save(e.key, next, e.revision)
	}
	e.publishLocked()
	e.maybeTriggerLocked()
}

func (e *Engine) publishLocked() {
	for _, ch := range e.subscribers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- e.state.Clone():
		default:
		}
	}
}

func (e *Engine) maybeTriggerLocked() {
	if e.closed {
		return
	}
	tuple := tupleOf(e.state)
	if e.hasTuple && tuple == e.tuple {
		return
	}
	e.tuple = tuple
	e.hasTuple = true
	var location *DeliveryLocation
	if e.state.DeliveryLocation != nil {
		loc := *e.state.DeliveryLocation
		location = &loc
	}
	e.recomputer.submit(trigger{
		epoch:       e.epoch,
		key:         e.key,
		location:    location,
		restaurants: e.state.RestaurantList(),
		lineCount:   len(e.state.Items),
	})
}

// applyFeeUpdate 回写报价结果；序号或纪元不一致时丢弃
func (e *Engine) applyFeeUpdate(u feeUpdate) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || u.epoch != e.epoch || !e.recomputer.isLatest(u.seq) {
		e.log.Debugw("fee_quote_discarded_stale", "key", e.key.String(), "seq", u.seq, "epoch", u.epoch)
		return false
	}
	next := e.state
	if u.fee != nil {
		if u.onlyIfNonZero && next.DeliveryFee.IsZero() && next.FeeStatus == u.status {
			return false
		}
		next = Reduce(next, SetDeliveryFee{Fee: *u.fee})
	} else if next.FeeStatus == u.status {
		return false
	}
	next = Reduce(next, SetFeeStatus{Status: u.status})
	e.commitLocked(next, true)
	return true
}

func (e *Engine) clearBreakdown(ctx context.Context, key IdentityKey) {
	if e.opts.Breakdowns == nil || key == "" {
		return
	}
	if err := e.opts.Breakdowns.Delete(ctx, key); err != nil {
		e.log.Warnw("fee_breakdown_clear_failed", "key", key.String(), "error", err)
	}
}

// nextItemIDLocked 以纳秒时间戳生成行 ID，同一纳秒内递增
func (e *Engine) nextItemIDLocked() string {
	stamp := e.opts.Now().UnixNano()
	if stamp <= e.lastStamp {
		stamp = e.lastStamp + 1
	}
	e.lastStamp = stamp
	return strconv.FormatInt(stamp, 10)
}

func sameCoordinates(a, b *DeliveryLocation) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Latitude == b.Latitude && a.Longitude == b.Longitude
}
