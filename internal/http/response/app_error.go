package response

import "fmt"

// AppError 处理器返回的错误：HTTP 状态、对外消息与内部原因。
// ErrorCode 只在身份接口上使用，对应 GoTrue 的 error_code。
type AppError struct {
	Code      int
	ErrorCode string
	Message   string
	Err       error
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.ErrorCode != "" {
		msg = fmt.Sprintf("%s (%s)", e.Message, e.ErrorCode)
	}
	if e.Err == nil {
		return msg
	}
	return msg + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装 REST 接口错误
func WrapError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// WrapAuthError 包装身份接口错误
func WrapAuthError(code int, errorCode, message string, err error) *AppError {
	return &AppError{Code: code, ErrorCode: errorCode, Message: message, Err: err}
}
