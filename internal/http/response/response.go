package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody REST 接口错误响应体
type ErrorBody struct {
	Message   string `json:"message"`             // 提示消息
	RequestID string `json:"request_id,omitempty"` // 请求 ID
}

// AuthErrorBody 身份接口错误响应体（GoTrue 格式）
type AuthErrorBody struct {
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code,omitempty"`
	Msg       string `json:"msg"`
}

// OK 200 响应，数据直接作为响应体
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created 201 响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// NoContent 204 响应
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error 错误响应，HTTP 状态码即错误码
func Error(c *gin.Context, statusCode int, msg string) {
	c.JSON(statusCode, ErrorBody{
		Message:   msg,
		RequestID: requestID(c),
	})
}

// AuthError 身份接口错误响应
func AuthError(c *gin.Context, statusCode int, errorCode, msg string) {
	c.JSON(statusCode, AuthErrorBody{
		Code:      statusCode,
		ErrorCode: errorCode,
		Msg:       msg,
	})
}

// NotFound 404响应
func NotFound(c *gin.Context, msg string) {
	Error(c, CodeNotFound, msg)
}

// Unauthorized 401响应
func Unauthorized(c *gin.Context, msg string) {
	Error(c, CodeUnauthorized, msg)
}

// Forbidden 403响应
func Forbidden(c *gin.Context, msg string) {
	Error(c, CodeForbidden, msg)
}

func requestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if value, ok := c.Get("request_id"); ok {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}
