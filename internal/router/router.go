package router

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/foodcart/internal/cache"
	"github.com/dujiao-next/foodcart/internal/config"
	publichandlers "github.com/dujiao-next/foodcart/internal/http/handlers/public"
	"github.com/dujiao-next/foodcart/internal/logger"
	"github.com/dujiao-next/foodcart/internal/provider"

	"github.com/gin-gonic/gin"
)

const defaultQuoteRateLimitMessage = "too many delivery fee requests"

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "fc"
	}
	redisClient := cache.Client()
	quoteRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:quote", redisPrefix),
		WindowSeconds: cfg.Security.QuoteRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.QuoteRateLimit.MaxRequests,
		BlockSeconds:  cfg.Security.QuoteRateLimit.BlockSeconds,
		Message:       defaultQuoteRateLimitMessage,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 配送费报价服务
		public := apiV1.Group("/public")
		{
			quoteLimit := RateLimitMiddleware(redisClient, quoteRule, KeyByIP)
			public.POST("/calculate-delivery-fee/", quoteLimit, publicHandler.CalculateDeliveryFee)
			public.POST("/calculate-multi-restaurant-delivery-fee/", quoteLimit, publicHandler.CalculateMultiDeliveryFee)
			public.GET("/app-settings/public/", publicHandler.GetPublicSettings)
			public.GET("/restaurants", publicHandler.GetRestaurants)
			public.GET("/restaurants/:id", publicHandler.GetRestaurant)
		}

		// 用户购物车：携带有效 token 时识别用户，未登录的加购返回 requires_login
		userCart := apiV1.Group("/cart")
		userCart.Use(UserIdentityMiddleware(c.UserTokenService))
		registerCartRoutes(userCart, publicHandler.UserCart())

		// 访客购物车
		guestCart := apiV1.Group("/guest/cart")
		guestCart.Use(GuestSessionMiddleware())
		registerCartRoutes(guestCart, publicHandler.GuestCart())
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

func registerCartRoutes(group *gin.RouterGroup, h *publichandlers.CartHandler) {
	group.GET("", h.GetCart)
	group.DELETE("", h.ClearCart)
	group.POST("/items", h.AddItem)
	group.PATCH("/items/:item_id", h.UpdateItem)
	group.DELETE("/items/:item_id", h.RemoveItem)
	group.PUT("/location", h.SetDeliveryLocation)
	group.PUT("/delivery-fee", h.SetDeliveryFee)
	group.PUT("/discount", h.SetDiscount)
	group.POST("/promo", h.ApplyPromoCode)
	group.DELETE("/promo", h.RemovePromoCode)
	group.GET("/groups", h.GetGroups)
	group.GET("/fee-breakdown", h.GetFeeBreakdown)
	group.POST("/settings/refresh", h.RefreshSettings)
}
