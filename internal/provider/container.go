package provider

import (
	"fmt"

	"github.com/dujiao-next/storefront/internal/authz"
	"github.com/dujiao-next/storefront/internal/backend"
	"github.com/dujiao-next/storefront/internal/cache"
	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/queue"
	"github.com/dujiao-next/storefront/internal/repository"

	"gorm.io/gorm"
)

// Container 参考后端的依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	UserRepo     repository.UserRepository
	ProductRepo  repository.ProductRepository
	CartRepo     repository.CartRepository
	OrderRepo    repository.OrderRepository
	LoginLogRepo repository.UserLoginLogRepository

	// Services
	AuthzService    *authz.Service
	IdentityService *backend.IdentityService
	CatalogService  *backend.CatalogService
	CartService     *backend.CartService
	OrderService    *backend.OrderService
	LoginLogService *backend.LoginLogService
}

// NewContainer 基于全局数据库初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient = nil
	}

	c, err := NewContainerWithDB(cfg, models.DB, queueClient)
	if err != nil {
		logger.Errorw("provider_init_container_failed", "error", err)
		panic(err)
	}
	return c
}

// NewContainerWithDB 使用指定数据库与队列客户端初始化容器
func NewContainerWithDB(cfg *config.Config, db *gorm.DB, queueClient *queue.Client) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if db == nil {
		return nil, fmt.Errorf("database is not initialized")
	}
	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories(db)

	// 2. 初始化 Services
	if err := c.initServices(db); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.UserRepo = repository.NewUserRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.LoginLogRepo = repository.NewUserLoginLogRepository(db)
}

func (c *Container) initServices(db *gorm.DB) error {
	authzService, err := authz.NewService(db)
	if err != nil {
		return fmt.Errorf("init authz: %w", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		return fmt.Errorf("bootstrap builtin roles: %w", err)
	}
	c.AuthzService = authzService

	c.IdentityService = backend.NewIdentityService(c.UserRepo, c.Config.JWT, c.Config.Security.PasswordMinLen)
	c.CatalogService = backend.NewCatalogService(c.ProductRepo)
	c.CartService = backend.NewCartService(c.CartRepo, c.ProductRepo)
	c.OrderService = backend.NewOrderService(c.OrderRepo, c.CartRepo, c.ProductRepo, c.QueueClient, c.Config.Order.PendingExpireMinutes)
	c.LoginLogService = backend.NewLoginLogService(c.LoginLogRepo)
	return nil
}
