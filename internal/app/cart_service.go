package app

import (
	"context"
	"errors"
	"sync"

	"github.com/dujiao-next/foodcart/internal/provider"
)

// CartService 托管购物车引擎：回收空闲引擎，停止时刷写快照
type CartService struct {
	name      string
	container *provider.Container
}

// NewCartService 创建购物车引擎服务
func NewCartService(c *provider.Container) *CartService {
	return &CartService{name: "cart", container: c}
}

// Name 服务名称
func (s *CartService) Name() string {
	if s == nil || s.name == "" {
		return "cart"
	}
	return s.name
}

// Start 运行各管理器的空闲回收循环，直到 ctx 结束
func (s *CartService) Start(ctx context.Context) error {
	if s == nil || s.container == nil {
		return errors.New("cart service not initialized")
	}
	var wg sync.WaitGroup
	for _, manager := range s.container.CartManagers() {
		manager := manager
		wg.Add(1)
		go func() {
			defer wg.Done()
			manager.Run(ctx)
		}()
	}
	<-ctx.Done()
	wg.Wait()
	return nil
}

// Stop 关闭引擎并等待持久化写完
func (s *CartService) Stop(ctx context.Context) error {
	if s == nil || s.container == nil {
		return nil
	}
	return s.container.Close(ctx)
}
