package public

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dujiao-next/storefront/internal/backend"
	handlershared "github.com/dujiao-next/storefront/internal/http/handlers/shared"
	"github.com/dujiao-next/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

const grantTypePassword = "password"

// SignUpRequest GoTrue 注册请求
type SignUpRequest struct {
	Email    string                 `json:"email"`
	Password string                 `json:"password"`
	Data     map[string]interface{} `json:"data"`
}

// PasswordGrantRequest GoTrue 密码登录请求
type PasswordGrantRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func respondAuthError(c *gin.Context, code int, errorCode, msg string, err error) {
	handlershared.RespondAuthError(c, code, errorCode, msg, err)
}

// respondIdentityError 按 GoTrue 的错误码约定返回
func (h *Handler) respondIdentityError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, backend.ErrInvalidEmail):
		respondAuthError(c, response.CodeBadRequest, "validation_failed", "Unable to validate email address: invalid format", nil)
	case errors.Is(err, backend.ErrPasswordTooShort):
		respondAuthError(c, response.CodeUnprocessable, "weak_password", fmt.Sprintf("Password should be at least %d characters.", h.IdentityService.PasswordMinLen()), nil)
	case errors.Is(err, backend.ErrEmailTaken):
		respondAuthError(c, response.CodeUnprocessable, "user_already_exists", "User already registered", nil)
	case errors.Is(err, backend.ErrInvalidCredentials):
		respondAuthError(c, response.CodeBadRequest, "invalid_credentials", "Invalid login credentials", nil)
	case errors.Is(err, backend.ErrUserNotFound):
		respondAuthError(c, response.CodeNotFound, "user_not_found", "User not found", nil)
	default:
		respondAuthError(c, response.CodeInternal, "unexpected_failure", "Internal server error", err)
	}
}

// SignUp POST /auth/v1/signup，注册即登录
func (h *Handler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondAuthError(c, response.CodeBadRequest, "bad_json", "Could not parse request body as JSON", nil)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondAuthError(c, response.CodeBadRequest, "validation_failed", "Signup requires a valid password", nil)
		return
	}
	username, _ := req.Data["username"].(string)
	session, err := h.IdentityService.SignUp(req.Email, req.Password, username)
	if err != nil {
		h.respondIdentityError(c, err)
		return
	}
	response.OK(c, session)
}

// Token POST /auth/v1/token?grant_type=password
func (h *Handler) Token(c *gin.Context) {
	grantType := strings.TrimSpace(c.Query("grant_type"))
	if grantType != grantTypePassword {
		respondAuthError(c, response.CodeBadRequest, "unsupported_grant_type", "unsupported_grant_type", nil)
		return
	}
	var req PasswordGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondAuthError(c, response.CodeBadRequest, "bad_json", "Could not parse request body as JSON", nil)
		return
	}
	session, err := h.IdentityService.SignIn(req.Email, req.Password)
	attempt := backend.LoginAttempt{
		Email:     req.Email,
		Err:       err,
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		RequestID: handlershared.GetRequestID(c),
	}
	if session != nil {
		attempt.UserID = session.User.ID
	}
	h.LoginLogService.Record(attempt)
	if err != nil {
		h.respondIdentityError(c, err)
		return
	}
	response.OK(c, session)
}

// Logout POST /auth/v1/logout
func (h *Handler) Logout(c *gin.Context) {
	uid := c.GetString(handlershared.ContextUserID)
	if err := h.IdentityService.SignOut(c.Request.Context(), uid); err != nil {
		h.respondIdentityError(c, err)
		return
	}
	response.NoContent(c)
}

// CurrentUser GET /auth/v1/user
func (h *Handler) CurrentUser(c *gin.Context) {
	uid := c.GetString(handlershared.ContextUserID)
	user, err := h.IdentityService.GetUser(uid)
	if err != nil {
		h.respondIdentityError(c, err)
		return
	}
	response.OK(c, backend.UserView(user))
}
