package shared

import (
	"github.com/dujiao-next/storefront/internal/http/response"
	"github.com/dujiao-next/storefront/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// RespondAuthError 返回身份接口格式的错误响应。
func RespondAuthError(c *gin.Context, code int, errorCode, msg string, err error) {
	appErr := response.WrapAuthError(code, errorCode, msg, err)
	if err != nil && appErr.Code >= response.CodeInternal {
		RequestLog(c).Errorw("auth_handler_error",
			"code", appErr.Code,
			"error_code", appErr.ErrorCode,
			"error", err,
		)
	}
	response.AuthError(c, appErr.Code, appErr.ErrorCode, appErr.Message)
}
