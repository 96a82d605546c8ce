package constants

// 订单状态常量
const (
	OrderStatusPending         = "pending"
	OrderStatusConfirmed       = "confirmed"
	OrderStatusPaymentPending  = "payment_pending"
	OrderStatusPaymentReceived = "payment_received"
	OrderStatusDelivered       = "delivered"
	OrderStatusCanceled        = "canceled"
)

// OrderStatuses 返回全部合法订单状态（展示顺序）
func OrderStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusPaymentPending,
		OrderStatusPaymentReceived,
		OrderStatusDelivered,
		OrderStatusCanceled,
	}
}

// 用户角色常量
const (
	RoleAdmin    = "admin"
	RoleSupport  = "support"
	RoleCustomer = "customer"
)

// 认证事件常量
const (
	AuthEventSignedIn  = "signed_in"
	AuthEventSignedOut = "signed_out"
)

// 登录日志常量
const (
	LoginLogStatusSuccess = "success"
	LoginLogStatusFailed  = "failed"

	LoginFailReasonInvalidCredentials = "invalid_credentials"
	LoginFailReasonInvalidEmail       = "invalid_email"
	LoginFailReasonInternalError      = "internal_error"
)

// 会话存储类型常量
const (
	SessionStoreMemory = "memory"
	SessionStoreFile   = "file"
	SessionStoreRedis  = "redis"
)

// 缓存刷新模式常量
const (
	RefreshModeSync  = "sync"
	RefreshModeAsync = "async"
)

// 请求头常量
const (
	HeaderRequestID      = "X-Request-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderAPIKey         = "apikey"
)

// 队列常量
const (
	QueueDefault           = "default"
	TaskOrderTimeoutCancel = "order:timeout_cancel"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "sf"
)
