package public

import "github.com/dujiao-next/storefront/internal/provider"

// Handler 前台接口处理器入口
// 说明：该处理器用于商品、购物车、订单与身份接口。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
