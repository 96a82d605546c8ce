package provider

import (
	"strings"
	"time"

	"github.com/dujiao-next/storefront/internal/api"
	"github.com/dujiao-next/storefront/internal/cache"
	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/identity"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/service"
)

// Storefront 客户端依赖集合：一个身份提供方、一个 REST 客户端与各资源服务共享
type Storefront struct {
	Config       *config.Config
	Identity     *identity.GoTrueClient
	API          *api.Client
	Refresher    *service.Refresher
	Products     *service.ProductService
	Cart         *service.CartService
	Orders       *service.OrderService
	AdminOrders  *service.AdminOrderService
	AdminProduct *service.AdminProductService
}

// NewStorefront 按配置装配客户端
func NewStorefront(cfg *config.Config) *Storefront {
	store := NewSessionStore(cfg)
	auth := identity.NewGoTrueClient(identity.GoTrueConfig{
		URL:     cfg.Identity.URL,
		AnonKey: cfg.Identity.AnonKey,
		Store:   store,
	})

	var opts []api.Option
	if cfg.API.TimeoutSeconds > 0 {
		opts = append(opts, api.WithTimeout(time.Duration(cfg.API.TimeoutSeconds)*time.Second))
	}
	client := api.New(cfg.API.BaseURL, auth, opts...)

	refresher := service.NewRefresher(cfg.Refresh.Mode)
	products := service.NewProductService(client)
	cart := service.NewCartService(client, products, refresher)
	return &Storefront{
		Config:       cfg,
		Identity:     auth,
		API:          client,
		Refresher:    refresher,
		Products:     products,
		Cart:         cart,
		Orders:       service.NewOrderService(client, cart),
		AdminOrders:  service.NewAdminOrderService(client, products, refresher),
		AdminProduct: service.NewAdminProductService(client, refresher),
	}
}

// NewSessionStore 按 session.store 选择会话存储；Redis 不可用时退回文件存储
func NewSessionStore(cfg *config.Config) identity.SessionStore {
	switch strings.ToLower(strings.TrimSpace(cfg.Session.Store)) {
	case constants.SessionStoreMemory:
		return identity.NewMemoryStore()
	case constants.SessionStoreRedis:
		redisCfg := cfg.Redis
		redisCfg.Enabled = true
		if err := cache.InitRedis(&redisCfg); err != nil {
			logger.Warnw("storefront_session_redis_init_failed", "error", err)
			return identity.NewFileStore(cfg.Session.File)
		}
		return cache.NewSessionStore(cfg.Session.Key)
	default:
		return identity.NewFileStore(cfg.Session.File)
	}
}

// Close 等待后台回填结束并释放资源
func (s *Storefront) Close() {
	if s == nil {
		return
	}
	s.Refresher.Wait()
	if err := cache.Close(); err != nil {
		logger.Warnw("storefront_cache_close_failed", "error", err)
	}
}
