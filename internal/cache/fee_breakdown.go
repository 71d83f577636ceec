package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dujiao-next/foodcart/internal/cart"
)

const feeBreakdownCacheTTL = 30 * time.Minute

func feeBreakdownKey(key cart.IdentityKey) string {
	return fmt.Sprintf("cart:fee_breakdown:%s", key.String())
}

type localBreakdown struct {
	value     cart.FeeBreakdown
	expiresAt time.Time
}

// FeeBreakdownCache 多餐厅配送费明细缓存
// Redis 启用时写 Redis，否则保存在进程内
type FeeBreakdownCache struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	local map[cart.IdentityKey]localBreakdown
}

// NewFeeBreakdownCache 创建明细缓存，ttl<=0 使用默认 30 分钟
func NewFeeBreakdownCache(ttl time.Duration) *FeeBreakdownCache {
	if ttl <= 0 {
		ttl = feeBreakdownCacheTTL
	}
	return &FeeBreakdownCache{
		ttl:   ttl,
		now:   time.Now,
		local: make(map[cart.IdentityKey]localBreakdown),
	}
}

// Set 写入明细
func (c *FeeBreakdownCache) Set(ctx context.Context, key cart.IdentityKey, breakdown *cart.FeeBreakdown) error {
	if key == "" || breakdown == nil {
		return nil
	}
	if Enabled() {
		return SetJSON(ctx, feeBreakdownKey(key), breakdown, c.ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.local[key] = localBreakdown{value: *breakdown, expiresAt: c.now().Add(c.ttl)}
	return nil
}

// Get 读取明细，不存在时返回 nil
func (c *FeeBreakdownCache) Get(ctx context.Context, key cart.IdentityKey) (*cart.FeeBreakdown, error) {
	if key == "" {
		return nil, nil
	}
	if Enabled() {
		var breakdown cart.FeeBreakdown
		hit, err := GetJSON(ctx, feeBreakdownKey(key), &breakdown)
		if err != nil || !hit {
			return nil, err
		}
		return &breakdown, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.local[key]
	if !ok {
		return nil, nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.local, key)
		return nil, nil
	}
	value := entry.value
	return &value, nil
}

// Delete 删除明细
func (c *FeeBreakdownCache) Delete(ctx context.Context, key cart.IdentityKey) error {
	if key == "" {
		return nil
	}
	if Enabled() {
		return Del(ctx, feeBreakdownKey(key))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.local, key)
	return nil
}
