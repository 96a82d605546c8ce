package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotSignedIn      = errors.New("not signed in")
	ErrCredentialsEmpty = errors.New("email and password are required")
)

// AuthError 身份服务返回的错误
type AuthError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *AuthError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("auth error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	case e.Message != "":
		return fmt.Sprintf("auth error %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("auth error %d", e.StatusCode)
	}
}

// IsAuthError 判断并取出 AuthError
func IsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// parseAuthError 兼容 GoTrue 的 {msg,error_code} 与 OAuth 的 {error,error_description} 两种格式
func parseAuthError(status int, raw []byte) *AuthError {
	out := &AuthError{StatusCode: status}
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		out.Message = strings.TrimSpace(string(raw))
		return out
	}
	for _, key := range []string{"msg", "error_description", "message"} {
		if v := stringField(payload, key); v != "" {
			out.Message = v
			break
		}
	}
	for _, key := range []string{"error_code", "error"} {
		if v := stringField(payload, key); v != "" {
			out.Code = v
			break
		}
	}
	if out.Message == "" {
		out.Message = out.Code
	}
	return out
}
