package provider

import (
	"context"
	"strings"
	"time"

	"github.com/dujiao-next/foodcart/internal/cache"
	"github.com/dujiao-next/foodcart/internal/cart"
	"github.com/dujiao-next/foodcart/internal/config"
	"github.com/dujiao-next/foodcart/internal/constants"
	"github.com/dujiao-next/foodcart/internal/feequote"
	"github.com/dujiao-next/foodcart/internal/logger"
	"github.com/dujiao-next/foodcart/internal/models"
	"github.com/dujiao-next/foodcart/internal/queue"
	"github.com/dujiao-next/foodcart/internal/repository"
	"github.com/dujiao-next/foodcart/internal/service"

	"gorm.io/gorm"
)

const (
	userCartManagerName  = "user"
	guestCartManagerName = "guest"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	RestaurantRepo   repository.RestaurantRepository
	SettingRepo      repository.SettingRepository
	CartSnapshotRepo repository.CartSnapshotRepository

	// Services
	SettingService     *service.SettingService
	RestaurantService  *service.RestaurantService
	DeliveryFeeService *service.DeliveryFeeService
	UserTokenService   *service.UserTokenService
	CartSnapshotStore  *service.CartSnapshotStore

	// Cart
	FeeQuoteService feequote.Service
	FeeQuoteClient  *feequote.Client
	FeeBreakdowns   *cache.FeeBreakdownCache
	CartStore       cart.Store
	CartPersister   *cart.Persister
	UserCarts       *cart.Manager
	GuestCarts      *cart.Manager
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories(models.DB)

	// 2. 初始化 Services
	c.initServices()

	// 3. 初始化购物车引擎
	c.initCarts()

	return c
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.RestaurantRepo = repository.NewRestaurantRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
	c.CartSnapshotRepo = repository.NewCartSnapshotRepository(db)
}

func (c *Container) initServices() {
	c.SettingService = service.NewSettingService(c.SettingRepo, c.Config.Delivery)
	c.RestaurantService = service.NewRestaurantService(c.RestaurantRepo)
	c.DeliveryFeeService = service.NewDeliveryFeeService(c.RestaurantRepo, c.SettingService)
	c.UserTokenService = service.NewUserTokenService(c.Config.UserJWT)
	c.CartSnapshotStore = service.NewCartSnapshotStore(c.CartSnapshotRepo)
}

func (c *Container) initCarts() {
	cartCfg := c.Config.Cart

	c.FeeQuoteService = c.buildFeeQuoteService()
	c.FeeBreakdowns = cache.NewFeeBreakdownCache(0)
	c.FeeQuoteClient = feequote.NewClient(c.FeeQuoteService, c.FeeBreakdowns)
	c.CartStore = c.buildCartStore()
	c.CartPersister = cart.NewPersister(c.CartStore, cart.PersisterOptions{
		Logger: logger.Named("cart_persister"),
	})

	base := cart.EngineOptions{
		Persister:    c.CartPersister,
		Quoter:       c.FeeQuoteClient,
		Breakdowns:   c.FeeBreakdowns,
		Settings:     c.FeeQuoteClient,
		Promos:       cart.NewPromoTable(cartCfg.PromoCodes),
		QuoteTimeout: time.Duration(cartCfg.QuoteTimeoutSeconds) * time.Second,
	}
	idleAfter := time.Duration(cartCfg.IdleMinutes) * time.Minute

	userOpts := base
	userOpts.RequireIdentity = true
	userOpts.Logger = logger.Named("cart", "manager", userCartManagerName)
	c.UserCarts = cart.NewManager(userCartManagerName, userOpts, idleAfter)

	guestOpts := base
	guestOpts.Logger = logger.Named("cart", "manager", guestCartManagerName)
	c.GuestCarts = cart.NewManager(guestCartManagerName, guestOpts, idleAfter)
}

func (c *Container) buildFeeQuoteService() feequote.Service {
	cfg := c.Config.FeeQuote
	if strings.EqualFold(strings.TrimSpace(cfg.Mode), constants.FeeQuoteModeHTTP) {
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		logger.Infow("provider_fee_quote_http", "base_url", cfg.BaseURL)
		return feequote.NewHTTPService(cfg.BaseURL, timeout, nil)
	}
	return feequote.NewLocalService(c.DeliveryFeeService, c.SettingService)
}

func (c *Container) buildCartStore() cart.Store {
	cartCfg := c.Config.Cart
	var durable cart.Store
	switch strings.ToLower(strings.TrimSpace(cartCfg.Store)) {
	case constants.CartStoreMemory:
		return cart.NewMemoryStore()
	case constants.CartStoreRedis:
		if cache.Enabled() {
			return cache.NewRedisCartStore(time.Duration(cartCfg.StoreTTLHours) * time.Hour)
		}
		logger.Warnw("provider_cart_store_redis_disabled_fallback", "fallback", constants.CartStoreDatabase)
		durable = c.CartSnapshotStore
	default:
		durable = c.CartSnapshotStore
	}
	if cartCfg.PersistAsync && c.QueueClient != nil && c.QueueClient.Enabled() {
		return service.NewQueuedCartStore(durable, c.QueueClient)
	}
	return durable
}

// CartManagers 全部购物车管理器
func (c *Container) CartManagers() []*cart.Manager {
	managers := make([]*cart.Manager, 0, 2)
	if c.UserCarts != nil {
		managers = append(managers, c.UserCarts)
	}
	if c.GuestCarts != nil {
		managers = append(managers, c.GuestCarts)
	}
	return managers
}

// Close 关闭购物车引擎并等待快照写完
func (c *Container) Close(ctx context.Context) error {
	var firstErr error
	for _, manager := range c.CartManagers() {
		if err := manager.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := c.CartPersister.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := cache.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
