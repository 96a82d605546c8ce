package shared

import (
	"errors"

	"github.com/dujiao-next/storefront/internal/backend"
	"github.com/dujiao-next/storefront/internal/http/response"
	"github.com/dujiao-next/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// MappedError 定义业务错误到接口错误响应的映射关系。
type MappedError struct {
	Target error
	Code   int
	Msg    string
}

// ResourceErrorRules 商品、购物车与订单接口共用的映射
var ResourceErrorRules = []MappedError{
	{Target: backend.ErrProductNotFound, Code: response.CodeNotFound, Msg: "Product not found"},
	{Target: backend.ErrCartItemNotFound, Code: response.CodeNotFound, Msg: "Cart item not found"},
	{Target: backend.ErrOrderNotFound, Code: response.CodeNotFound, Msg: "Order not found"},
	{Target: backend.ErrEmptyCart, Code: response.CodeBadRequest, Msg: "Cart is empty"},
	{Target: backend.ErrInvalidQuantity, Code: response.CodeBadRequest, Msg: "Quantity must be at least 1"},
	{Target: backend.ErrInvalidOrderStatus, Code: response.CodeBadRequest, Msg: "Invalid order status"},
	{Target: backend.ErrUserNotFound, Code: response.CodeUnauthorized, Msg: "Unauthorized"},
}

// RespondMappedError 按规则映射错误；校验错误返回 400 与字段说明，未命中的按 fallback 处理并记录日志。
func RespondMappedError(c *gin.Context, err error, rules []MappedError, fallbackMsg string) {
	if verr, ok := service.AsValidationError(err); ok {
		c.JSON(response.CodeBadRequest, gin.H{
			"message":    verr.Error(),
			"fields":     verr.Fields,
			"request_id": c.GetString("request_id"),
		})
		return
	}
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Msg, nil)
			return
		}
	}
	RespondError(c, response.CodeInternal, fallbackMsg, err)
}
