package cart

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dujiao-next/foodcart/internal/constants"
	"github.com/dujiao-next/foodcart/internal/models"

	"go.uber.org/zap"
)

// triggerTuple 决定是否需要重新报价的输入
type triggerTuple struct {
	complete    bool
	lat         float64
	lng         float64
	lineCount   int
	restaurants string
}

func tupleOf(s State) triggerTuple {
	ids := s.RestaurantIDs()
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatUint(uint64(id), 10))
	}
	t := triggerTuple{
		lineCount:   len(s.Items),
		restaurants: strings.Join(parts, ","),
	}
	if s.DeliveryLocation.Complete() {
		t.complete = true
		t.lat = s.DeliveryLocation.Latitude
		t.lng = s.DeliveryLocation.Longitude
	}
	return t
}

type trigger struct {
	seq         uint64
	epoch       uint64
	key         IdentityKey
	location    *DeliveryLocation
	restaurants []RestaurantRef
	lineCount   int
}

// feeUpdate 报价结果回写请求，fee 为空时只更新状态
type feeUpdate struct {
	seq           uint64
	epoch         uint64
	fee           *models.Money
	status        string
	onlyIfNonZero bool
}

// recomputer 单协程消费报价触发队列
// 每个触发分配递增序号，新触发会取消进行中的报价，结果仅在序号仍为最新时回写
type recomputer struct {
	quoter  Quoter
	apply   func(feeUpdate) bool
	timeout time.Duration
	log     *zap.SugaredLogger

	mu       sync.Mutex
	latest   uint64
	queue    []trigger
	inflight context.CancelFunc
	idle     chan struct{}

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newRecomputer(quoter Quoter, apply func(feeUpdate) bool, timeout time.Duration, log *zap.SugaredLogger) *recomputer {
	ctx, cancel := context.WithCancel(context.Background())
	r := &recomputer{
		quoter:  quoter,
		apply:   apply,
		timeout: timeout,
		log:     log,
		wake:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// submit 入队并返回分配的序号
func (r *recomputer) submit(t trigger) uint64 {
	r.mu.Lock()
	r.latest++
	t.seq = r.latest
	r.queue = append(r.queue, t)
	if r.inflight != nil {
		r.inflight()
		r.inflight = nil
	}
	if r.idle == nil {
		r.idle = make(chan struct{})
	}
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
	return t.seq
}

// cancelCurrent 作废进行中与排队中的报价
func (r *recomputer) cancelCurrent() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest++
	r.queue = nil
	if r.inflight != nil {
		r.inflight()
		r.inflight = nil
	}
}

func (r *recomputer) isLatest(seq uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return seq == r.latest
}

// waitIdle 等待队列清空且无进行中的报价
func (r *recomputer) waitIdle(ctx context.Context) error {
	r.mu.Lock()
	ch := r.idle
	r.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *recomputer) stop() {
	r.cancel()
	<-r.done
}

func (r *recomputer) run() {
	defer close(r.done)
	for {
		select {
		case <-r.ctx.Done():
			r.markIdle()
			return
		case <-r.wake:
		}
		for r.step() {
		}
	}
}

// step 处理队列中最新的触发，队列为空时返回 false
func (r *recomputer) step() bool {
	r.mu.Lock()
	if len(r.queue) == 0 || r.ctx.Err() != nil {
		idle := r.idle
		r.idle = nil
		r.queue = nil
		r.mu.Unlock()
		if idle != nil {
			close(idle)
		}
		return false
	}
	t := r.queue[len(r.queue)-1]
	superseded := len(r.queue) - 1
	r.queue = nil
	ctx, cancel := r.quoteContext()
	r.inflight = cancel
	r.mu.Unlock()

	if superseded > 0 {
		r.log.Debugw("fee_quote_triggers_superseded", "key", t.key.String(), "skipped", superseded, "seq", t.seq)
	}
	r.process(ctx, t)
	cancel()

	r.mu.Lock()
	r.inflight = nil
	r.mu.Unlock()
	return true
}

func (r *recomputer) quoteContext() (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(r.ctx, r.timeout)
	}
	return context.WithCancel(r.ctx)
}

func (r *recomputer) markIdle() {
	r.mu.Lock()
	idle := r.idle
	r.idle = nil
	r.queue = nil
	r.mu.Unlock()
	if idle != nil {
		close(idle)
	}
}

func (r *recomputer) process(ctx context.Context, t trigger) {
	zero := models.Money{}
	if !t.location.Complete() || t.lineCount == 0 || len(t.restaurants) == 0 || r.quoter == nil {
		r.apply(feeUpdate{seq: t.seq, epoch: t.epoch, fee: &zero, status: constants.FeeStatusNone, onlyIfNonZero: true})
		return
	}

	r.apply(feeUpdate{seq: t.seq, epoch: t.epoch, status: constants.FeeStatusPending})
	result := r.quoter.Quote(ctx, t.key, t.location, t.restaurants)
	if !r.isLatest(t.seq) {
		r.log.Debugw("fee_quote_discarded_superseded", "key", t.key.String(), "seq", t.seq)
		return
	}
	if result.Err != nil {
		r.log.Warnw("fee_quote_failed",
			"key", t.key.String(),
			"seq", t.seq,
			"restaurants", len(t.restaurants),
			"error", result.Err,
		)
		r.apply(feeUpdate{seq: t.seq, epoch: t.epoch, fee: &zero, status: constants.FeeStatusUnknown})
		return
	}
	fee := result.Fee.NonNegative()
	status := result.Status
	if !validFeeStatus(status) || status == constants.FeeStatusPending {
		status = constants.FeeStatusQuoted
	}
	r.apply(feeUpdate{seq: t.seq, epoch: t.epoch, fee: &fee, status: status})
}
