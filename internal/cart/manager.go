package cart

import (
	"context"
	"sync"
	"time"

	"github.com/dujiao-next/foodcart/internal/logger"

	"go.uber.org/zap"
)

const minEvictInterval = time.Minute

// Manager 按身份键托管引擎实例，空闲实例定期回收
type Manager struct {
	name      string
	opts      EngineOptions
	idleAfter time.Duration
	log       *zap.SugaredLogger

	mu      sync.Mutex
	engines map[IdentityKey]*Engine
	closed  bool
}

// NewManager 创建引擎管理器；idleAfter<=0 时不回收
func NewManager(name string, opts EngineOptions, idleAfter time.Duration) *Manager {
	opts = opts.normalized()
	return &Manager{
		name:      name,
		opts:      opts,
		idleAfter: idleAfter,
		log:       logger.Named("cart_manager", "manager", name),
		engines:   make(map[IdentityKey]*Engine),
	}
}

// Name 管理器名称
func (m *Manager) Name() string {
	return m.name
}

// Promos 优惠码表
func (m *Manager) Promos() PromoTable {
	return m.opts.Promos
}

// Get 获取身份对应的引擎，不存在时创建并加载持久化记录
func (m *Manager) Get(ctx context.Context, key IdentityKey) (*Engine, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	if engine, ok := m.engines[key]; ok {
		engine.touch()
		m.mu.Unlock()
		return engine, nil
	}
	m.mu.Unlock()

	created := NewEngine(ctx, key, m.opts)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		created.Close()
		return nil, ErrManagerClosed
	}
	if engine, ok := m.engines[key]; ok {
		created.Close()
		engine.touch()
		return engine, nil
	}
	m.engines[key] = created
	m.log.Debugw("cart_engine_created", "key", key.String(), "engines", len(m.engines))
	return created, nil
}

// Len 当前托管的引擎数
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.engines)
}

// EvictIdle 回收超过空闲时长且没有进行中报价的引擎
func (m *Manager) EvictIdle(now time.Time) int {
	if m.idleAfter <= 0 {
		return 0
	}
	m.mu.Lock()
	victims := make([]*Engine, 0)
	for key, engine := range m.engines {
		if now.Sub(engine.LastActive()) < m.idleAfter || !engine.Idle() {
			continue
		}
		delete(m.engines, key)
		victims = append(victims, engine)
	}
	m.mu.Unlock()

	for _, engine := range victims {
		engine.Close()
	}
	if len(victims) > 0 {
		m.log.Infow("cart_engines_evicted", "count", len(victims))
	}
	return len(victims)
}

// Run 周期回收空闲引擎，直到 ctx 结束
func (m *Manager) Run(ctx context.Context) {
	if m.idleAfter <= 0 {
		return
	}
	interval := m.idleAfter / 2
	if interval < minEvictInterval {
		interval = minEvictInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle(m.opts.Now())
		}
	}
}

// Close 关闭所有引擎并等待持久化写完
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	engines := m.engines
	m.engines = make(map[IdentityKey]*Engine)
	m.mu.Unlock()

	for _, engine := range engines {
		engine.Close()
	}
	return m.opts.Persister.Flush(ctx)
}
