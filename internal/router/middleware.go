package router

import (
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/storefront/internal/authz"
	"github.com/dujiao-next/storefront/internal/backend"
	"github.com/dujiao-next/storefront/internal/cache"
	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/constants"
	handlershared "github.com/dujiao-next/storefront/internal/http/handlers/shared"
	"github.com/dujiao-next/storefront/internal/http/response"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"

const (
	msgAuthHeaderMissing = "Authorization header is required"
	msgAuthHeaderInvalid = "Authorization header must be a Bearer token"
	msgTokenInvalid      = "Invalid or expired token"
	msgUnauthorized      = "Unauthorized"
	msgForbidden         = "Forbidden"
)

// TokenVerifier 校验访问令牌并加载用户
type TokenVerifier interface {
	ParseToken(tokenString string) (*backend.AccessClaims, error)
	GetUser(userID string) (*models.User, error)
}

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Authorization",
			"Cache-Control",
			"X-Requested-With",
			constants.HeaderRequestID,
			constants.HeaderIdempotencyKey,
			constants.HeaderAPIKey,
		}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowedOrigin := resolveAllowedOrigin(origin, allowedOrigins, cfg.AllowCredentials)
		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", headersHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methodsHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", handlershared.HeaderTotalCount+", "+constants.HeaderRequestID)
		if cfg.MaxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	if len(allowedOrigins) == 0 {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件，沿用客户端传入的 X-Request-ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(constants.HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(constants.HeaderRequestID, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}
	sugar := logger.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := sugar.With(
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			log.Errorw("request", "errors", c.Errors.String())
			return
		}
		log.Infow("request")
	}
}

func getRequestID(c *gin.Context) string {
	value, ok := c.Get(requestIDKey)
	if !ok {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return requestID
	}
	return ""
}

// UserJWTAuthMiddleware REST 接口的用户鉴权中间件
func UserJWTAuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, msg := authenticate(c, verifier)
		if state == nil {
			response.Unauthorized(c, msg)
			c.Abort()
			return
		}
		setAuthContext(c, state)
		c.Next()
	}
}

// IdentityAuthMiddleware 身份接口的鉴权中间件，错误按 GoTrue 格式返回
func IdentityAuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, msg := authenticate(c, verifier)
		if state == nil {
			response.AuthError(c, response.CodeUnauthorized, "no_authorization", msg)
			c.Abort()
			return
		}
		setAuthContext(c, state)
		c.Next()
	}
}

// authenticate 校验 Bearer 令牌；角色以数据库为准，经缓存快照读取
func authenticate(c *gin.Context, verifier TokenVerifier) (*cache.UserAuthState, string) {
	if verifier == nil {
		return nil, msgTokenInvalid
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, msgAuthHeaderMissing
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && strings.TrimSpace(parts[1]) != "") {
		return nil, msgAuthHeaderInvalid
	}

	claims, err := verifier.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, msgTokenInvalid
	}

	if cached, hit, cacheErr := cache.GetUserAuthState(c.Request.Context(), claims.Subject); cacheErr == nil && hit && cached != nil {
		return cached, ""
	}

	user, err := verifier.GetUser(claims.Subject)
	if err != nil || user == nil {
		return nil, msgTokenInvalid
	}
	state := cache.BuildUserAuthState(user)
	_ = cache.SetUserAuthState(c.Request.Context(), state)
	return state, ""
}

func setAuthContext(c *gin.Context, state *cache.UserAuthState) {
	c.Set(handlershared.ContextUserID, state.UserID)
	c.Set(handlershared.ContextEmail, state.Email)
	c.Set(handlershared.ContextRole, state.Role)
}

// AdminRBACMiddleware 管理端 RBAC 鉴权中间件
func AdminRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			logger.Errorw("admin_rbac_service_unavailable")
			response.Unauthorized(c, msgUnauthorized)
			c.Abort()
			return
		}

		userID := c.GetString(handlershared.ContextUserID)
		if strings.TrimSpace(userID) == "" {
			response.Unauthorized(c, msgUnauthorized)
			c.Abort()
			return
		}
		role := c.GetString(handlershared.ContextRole)

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}

		allowed, err := authzService.EnforceUser(userID, role, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("admin_rbac_enforce_failed",
				"user_id", userID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			response.Unauthorized(c, msgUnauthorized)
			c.Abort()
			return
		}
		if !allowed {
			logger.Warnw("admin_rbac_permission_denied",
				"user_id", userID,
				"role", role,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"resource", authz.NormalizeObject(resource),
			)
			response.Forbidden(c, msgForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
