package admin

import "github.com/dujiao-next/storefront/internal/provider"

// Handler 后台管理接口处理器入口
// 说明：该处理器仅用于 /admin 下的商品与订单管理。
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
