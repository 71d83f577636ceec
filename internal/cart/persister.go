package cart

import (
	"context"
	"sync"
	"time"

	"github.com/dujiao-next/foodcart/internal/logger"

	"go.uber.org/zap"
)

const defaultPersistTimeout = 5 * time.Second

// PersisterOptions 持久化适配器配置
type PersisterOptions struct {
	Timeout time.Duration
	Logger  *zap.SugaredLogger
	Now     func() time.Time
}

type pendingWrite struct {
	remove   bool
	state    State
	revision int64
}

// Persister 购物车持久化适配器
// 写入由单个后台协程执行，同一键只保留最新一次待写内容
type Persister struct {
	store   Store
	timeout time.Duration
	log     *zap.SugaredLogger
	now     func() time.Time

	mu       sync.Mutex
	pending  map[IdentityKey]pendingWrite
	inflight map[IdentityKey]pendingWrite
	order    []IdentityKey
	waiters []chan struct{}
	closed  bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewPersister 创建持久化适配器并启动写协程
func NewPersister(store Store, opts PersisterOptions) *Persister {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultPersistTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.Named("cart_persist")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	p := &Persister{
		store:   store,
		timeout: opts.Timeout,
		log:     opts.Logger,
		now:     opts.Now,
		pending: make(map[IdentityKey]pendingWrite),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Load 读取并解析快照；任何失败都只记录日志并视为无记录，墓碑只返回版本号
// 同一键尚未落库的写入优先于存储中的记录
func (p *Persister) Load(ctx context.Context, key IdentityKey) (Snapshot, int64, bool) {
	if p == nil || p.store == nil || key == "" {
		return Snapshot{}, 0, false
	}
	if write, ok := p.unflushed(key); ok {
		if write.remove {
			return Snapshot{}, write.revision, false
		}
		return SnapshotOf(write.state), write.revision, true
	}
	loadCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	record, err := p.store.Load(loadCtx, key)
	if err != nil {
		p.log.Warnw("cart_persist_load_failed", "key", key.String(), "error", err)
		return Snapshot{}, 0, false
	}
	if record == nil {
		return Snapshot{}, 0, false
	}
	if record.Deleted {
		return Snapshot{}, record.Revision, false
	}
	snap, err := DecodeSnapshot(record.Payload)
	if err != nil {
		p.log.Warnw("cart_persist_decode_failed", "key", key.String(), "revision", record.Revision, "error", err)
		return Snapshot{}, record.Revision, false
	}
	return snap, record.Revision, true
}

func (p *Persister) unflushed(key IdentityKey) (pendingWrite, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if write, ok := p.pending[key]; ok {
		return write, true
	}
	write, ok := p.inflight[key]
	return write, ok
}

// Save 登记最新状态，由写协程异步落库
func (p *Persister) Save(key IdentityKey, state State, revision int64) {
	p.enqueue(key, pendingWrite{state: state, revision: revision})
}

// Delete 登记删除
func (p *Persister) Delete(key IdentityKey, revision int64) {
	p.enqueue(key, pendingWrite{remove: true, revision: revision})
}

func (p *Persister) enqueue(key IdentityKey, write pendingWrite) {
	if p == nil || p.store == nil || key == "" {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.log.Warnw("cart_persist_skip_closed", "key", key.String(), "revision", write.revision)
		return
	}
	if _, ok := p.pending[key]; !ok {
		p.order = append(p.order, key)
	}
	p.pending[key] = write
	p.mu.Unlock()
	p.signal()
}

// Flush 等待当前所有待写内容落库
func (p *Persister) Flush(ctx context.Context) error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	p.waiters = append(p.waiters, ch)
	p.mu.Unlock()
	p.signal()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 写完剩余内容后停止写协程
func (p *Persister) Close(ctx context.Context) error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	close(p.stop)
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Persister) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.wake:
			p.drain()
		case <-p.stop:
			p.drain()
			return
		}
	}
}

func (p *Persister) drain() {
	for {
		p.mu.Lock()
		if len(p.pending) == 0 {
			waiters := p.waiters
			p.waiters = nil
			p.mu.Unlock()
			for _, ch := range waiters {
				close(ch)
			}
			return
		}
		batch := p.pending
		order := p.order
		p.pending = make(map[IdentityKey]pendingWrite)
		p.inflight = batch
		p.order = nil
		p.mu.Unlock()

		for _, key := range order {
			p.write(key, batch[key])
		}

		p.mu.Lock()
		p.inflight = nil
		p.mu.Unlock()
	}
}

func (p *Persister) write(key IdentityKey, write pendingWrite) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if write.remove {
		if err := p.store.Delete(ctx, key, write.revision); err != nil {
			p.log.Warnw("cart_persist_delete_failed", "key", key.String(), "revision", write.revision, "error", err)
		}
		return
	}
	payload, err := EncodeState(write.state)
	if err != nil {
		p.log.Warnw("cart_persist_encode_failed", "key", key.String(), "revision", write.revision, "error", err)
		return
	}
	record := Record{
		Key:       key,
		Revision:  write.revision,
		Payload:   payload,
		UpdatedAt: p.now(),
	}
	if err := p.store.Save(ctx, record); err != nil {
		p.log.Warnw("cart_persist_save_failed", "key", key.String(), "revision", write.revision, "error", err)
	}
}
