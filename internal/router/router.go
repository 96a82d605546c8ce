package router

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/storefront/internal/cache"
	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/constants"
	adminhandlers "github.com/dujiao-next/storefront/internal/http/handlers/admin"
	publichandlers "github.com/dujiao-next/storefront/internal/http/handlers/public"
	"github.com/dujiao-next/storefront/internal/http/response"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		ErrorCode:     "over_request_rate_limit",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/health", func(ctx *gin.Context) {
		response.OK(ctx, gin.H{"status": "ok"})
	})

	// GoTrue 兼容身份接口
	auth := r.Group("/auth/v1")
	{
		auth.POST("/signup", publicHandler.SignUp)
		auth.POST("/token", RateLimitMiddleware(cache.Client(), loginRule, KeyByIPAndJSONField("email")), publicHandler.Token)

		authed := auth.Group("")
		authed.Use(IdentityAuthMiddleware(c.IdentityService))
		authed.POST("/logout", publicHandler.Logout)
		authed.GET("/user", publicHandler.CurrentUser)
	}

	api := r.Group("/api")
	{
		// 公开接口
		api.GET("/product", publicHandler.ListProducts)
		api.GET("/product/:id", publicHandler.GetProduct)

		// 用户接口（需鉴权）
		user := api.Group("")
		user.Use(UserJWTAuthMiddleware(c.IdentityService))
		{
			user.GET("/cart", publicHandler.GetCart)
			user.GET("/cart/items", publicHandler.ListCartItems)
			user.POST("/cart/items", publicHandler.AddCartItem)
			user.PUT("/cart/items/:id", publicHandler.UpdateCartItem)
			user.DELETE("/cart/items/:id", publicHandler.DeleteCartItem)
			user.POST("/order/checkout", publicHandler.Checkout)
			user.GET("/order", publicHandler.ListOrders)
			user.GET("/order/:id", publicHandler.GetOrder)
		}

		// 管理接口（鉴权 + RBAC）
		admin := api.Group("/admin")
		admin.Use(UserJWTAuthMiddleware(c.IdentityService), AdminRBACMiddleware(c.AuthzService))
		{
			admin.POST("/product", adminHandler.CreateProduct)
			admin.PUT("/product/:id", adminHandler.UpdateProduct)
			admin.DELETE("/product/:id", adminHandler.DeleteProduct)
			admin.GET("/order", adminHandler.AdminListOrders)
			admin.GET("/order/:id", adminHandler.AdminGetOrder)
			admin.PATCH("/order/:id/status", adminHandler.AdminUpdateOrderStatus)
			admin.GET("/login-logs", adminHandler.GetUserLoginLogs)
		}
	}

	return r
}
