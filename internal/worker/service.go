package worker

import (
	"context"
	"errors"
	"time"

	"github.com/dujiao-next/foodcart/internal/config"
	"github.com/dujiao-next/foodcart/internal/logger"
	"github.com/dujiao-next/foodcart/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	snapshotCleanupInterval = time.Hour
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil {
		go RunSnapshotCleanupLoop(ctx, s.consumer, snapshotCleanupInterval)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// RunSnapshotCleanupLoop 定期清理超过保留期的购物车快照
func RunSnapshotCleanupLoop(ctx context.Context, consumer *Consumer, interval time.Duration) {
	if consumer == nil || consumer.Container == nil || consumer.CartSnapshotStore == nil || consumer.Config == nil {
		return
	}
	ttl := time.Duration(consumer.Config.Cart.StoreTTLHours) * time.Hour
	if ttl <= 0 {
		return
	}
	runOnce := func() {
		purged, err := consumer.CartSnapshotStore.PurgeBefore(time.Now().UTC().Add(-ttl))
		if err != nil {
			logger.Warnw("worker_cart_snapshot_cleanup_failed", "error", err)
			return
		}
		if purged > 0 {
			logger.Infow("worker_cart_snapshot_cleanup_done", "purged", purged)
		}
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
