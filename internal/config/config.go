package config

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/foodcart/internal/constants"
	"github.com/dujiao-next/foodcart/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	UserJWT  JWTConfig      `mapstructure:"user_jwt"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Cart     CartConfig     `mapstructure:"cart"`
	FeeQuote FeeQuoteConfig `mapstructure:"fee_quote"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Security SecurityConfig `mapstructure:"security"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// CartConfig 购物车引擎配置
type CartConfig struct {
	GuestKey            string         `mapstructure:"guest_key"`
	UserKeyPrefix       string         `mapstructure:"user_key_prefix"`
	Store               string         `mapstructure:"store"` // database / redis / memory
	StoreTTLHours       int            `mapstructure:"store_ttl_hours"`
	QuoteTimeoutSeconds int            `mapstructure:"quote_timeout_seconds"`
	PersistAsync        bool           `mapstructure:"persist_async"`
	IdleMinutes         int            `mapstructure:"idle_minutes"`
	PromoCodes          map[string]int `mapstructure:"promo_codes"`
}

// FeeQuoteConfig 配送费报价服务配置
type FeeQuoteConfig struct {
	Mode           string `mapstructure:"mode"` // local / http
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DeliveryConfig 配送费默认参数，数据库设置缺失时使用
type DeliveryConfig struct {
	BaseDeliveryFee              float64  `mapstructure:"base_delivery_fee"`
	IncludedDistanceKm           float64  `mapstructure:"included_distance_km"`
	PerKmFee                     float64  `mapstructure:"per_km_fee"`
	MinDeliveryFee               float64  `mapstructure:"min_delivery_fee"`
	MaxDeliveryFee               float64  `mapstructure:"max_delivery_fee"`
	MaxDeliveryDistance          float64  `mapstructure:"max_delivery_distance"`
	FreeDeliveryMinimum          float64  `mapstructure:"free_delivery_minimum"`
	MultiRestaurantBaseFee       float64  `mapstructure:"multi_restaurant_base_fee"`
	MultiRestaurantAdditionalFee float64  `mapstructure:"multi_restaurant_additional_fee"`
	DeliveryTimeSlots            []string `mapstructure:"delivery_time_slots"`
	EnableScheduledDelivery      bool     `mapstructure:"enable_scheduled_delivery"`
	Currency                     string   `mapstructure:"currency"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	QuoteRateLimit RateLimitConfig `mapstructure:"quote_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
	BlockSeconds  int `mapstructure:"block_seconds"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")     // 从当前目录查找
	v.AddConfigPath("../")   // 如果从 cmd/server 运行
	v.AddConfigPath("./etc") // etc 文件夹

	setDefaults(v)

	// 环境变量支持，例如 FOODCART_SERVER_PORT
	v.SetEnvPrefix("FOODCART")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	cfg.Normalize()
	return &cfg
}

// Default 返回只包含默认值的配置，用于测试与种子命令
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	cfg.Normalize()
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "foodcart.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/foodcart.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("user_jwt.secret", "user-change-me-in-production")
	v.SetDefault("user_jwt.expire_hours", 24)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "fc")
	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		constants.QueueDefault: 10,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-Guest-Session",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("cart.guest_key", constants.CartGuestKey)
	v.SetDefault("cart.user_key_prefix", constants.CartUserKeyPrefix)
	v.SetDefault("cart.store", constants.CartStoreDatabase)
	v.SetDefault("cart.store_ttl_hours", 24*30)
	v.SetDefault("cart.quote_timeout_seconds", 10)
	v.SetDefault("cart.persist_async", false)
	v.SetDefault("cart.idle_minutes", 30)
	v.SetDefault("fee_quote.mode", constants.FeeQuoteModeLocal)
	v.SetDefault("fee_quote.base_url", "http://127.0.0.1:8080/api/v1/public")
	v.SetDefault("fee_quote.timeout_seconds", 10)
	v.SetDefault("delivery.base_delivery_fee", 20)
	v.SetDefault("delivery.included_distance_km", 2)
	v.SetDefault("delivery.per_km_fee", 5)
	v.SetDefault("delivery.min_delivery_fee", 0)
	v.SetDefault("delivery.max_delivery_fee", 0)
	v.SetDefault("delivery.max_delivery_distance", 50)
	v.SetDefault("delivery.free_delivery_minimum", 0)
	v.SetDefault("delivery.multi_restaurant_base_fee", 0)
	v.SetDefault("delivery.multi_restaurant_additional_fee", 10)
	v.SetDefault("delivery.delivery_time_slots", []string{"09:00-21:00"})
	v.SetDefault("delivery.enable_scheduled_delivery", true)
	v.SetDefault("delivery.currency", "ETB")
	v.SetDefault("security.quote_rate_limit.window_seconds", 60)
	v.SetDefault("security.quote_rate_limit.max_requests", 120)
	v.SetDefault("security.quote_rate_limit.block_seconds", 60)
}

// Normalize 修正非法配置值
func (c *Config) Normalize() {
	c.Cart.Store = strings.ToLower(strings.TrimSpace(c.Cart.Store))
	switch c.Cart.Store {
	case constants.CartStoreDatabase, constants.CartStoreRedis, constants.CartStoreMemory:
	default:
		c.Cart.Store = constants.CartStoreDatabase
	}
	if strings.TrimSpace(c.Cart.GuestKey) == "" {
		c.Cart.GuestKey = constants.CartGuestKey
	}
	if strings.TrimSpace(c.Cart.UserKeyPrefix) == "" {
		c.Cart.UserKeyPrefix = constants.CartUserKeyPrefix
	}
	if c.Cart.QuoteTimeoutSeconds < 0 {
		c.Cart.QuoteTimeoutSeconds = 0
	}
	if c.Cart.IdleMinutes <= 0 {
		c.Cart.IdleMinutes = 30
	}
	c.FeeQuote.Mode = strings.ToLower(strings.TrimSpace(c.FeeQuote.Mode))
	if c.FeeQuote.Mode != constants.FeeQuoteModeHTTP {
		c.FeeQuote.Mode = constants.FeeQuoteModeLocal
	}
	c.FeeQuote.BaseURL = strings.TrimRight(strings.TrimSpace(c.FeeQuote.BaseURL), "/")
	if c.FeeQuote.TimeoutSeconds <= 0 {
		c.FeeQuote.TimeoutSeconds = 10
	}
}
