package shared

import (
	"strconv"
	"strings"

	"github.com/dujiao-next/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// 鉴权中间件写入的上下文键
const (
	ContextUserID = "user_id"
	ContextRole   = "user_role"
	ContextEmail  = "user_email"
)

// GetRequestID 读取请求 ID
func GetRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}

// GetUserID 读取当前用户 ID，缺失时返回 401。
func GetUserID(c *gin.Context) (string, bool) {
	value, exists := c.Get(ContextUserID)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "Unauthorized", nil)
		return "", false
	}
	id, ok := value.(string)
	if !ok || strings.TrimSpace(id) == "" {
		RespondError(c, response.CodeUnauthorized, "Unauthorized", nil)
		return "", false
	}
	return id, true
}

// ParseIDParam 解析路径中的正整数 ID，非法时返回 400。
func ParseIDParam(c *gin.Context, name, invalidMsg string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id == 0 {
		RespondError(c, response.CodeBadRequest, invalidMsg, nil)
		return 0, false
	}
	return uint(id), true
}
