package backend

import (
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/repository"
)

// LoginAttempt 一次密码登录尝试
type LoginAttempt struct {
	Email     string
	UserID    string
	Err       error
	ClientIP  string
	UserAgent string
	RequestID string
}

// LoginLogService 登录日志服务
type LoginLogService struct {
	repo repository.UserLoginLogRepository
	now  func() time.Time
}

// NewLoginLogService 创建登录日志服务
func NewLoginLogService(repo repository.UserLoginLogRepository) *LoginLogService {
	return &LoginLogService{repo: repo, now: time.Now}
}

// Record 写入登录日志；写入失败只记录告警，不影响登录结果
func (s *LoginLogService) Record(attempt LoginAttempt) {
	if s == nil || s.repo == nil {
		return
	}
	entry := &models.UserLoginLog{
		UserID:    attempt.UserID,
		Email:     strings.ToLower(strings.TrimSpace(attempt.Email)),
		Status:    constants.LoginLogStatusSuccess,
		ClientIP:  attempt.ClientIP,
		UserAgent: attempt.UserAgent,
		RequestID: attempt.RequestID,
		CreatedAt: s.now(),
	}
	if attempt.Err != nil {
		entry.Status = constants.LoginLogStatusFailed
		entry.FailReason = loginFailReason(attempt.Err)
	}
	if err := s.repo.Create(entry); err != nil {
		logger.Warnw("login_log_create_failed", "email", entry.Email, "status", entry.Status, "error", err)
	}
}

// List 管理端查询登录日志
func (s *LoginLogService) List(filter repository.UserLoginLogListFilter) ([]models.UserLoginLog, int64, error) {
	return s.repo.ListAdmin(filter)
}

func loginFailReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return constants.LoginFailReasonInvalidCredentials
	case errors.Is(err, ErrInvalidEmail):
		return constants.LoginFailReasonInvalidEmail
	default:
		return constants.LoginFailReasonInternalError
	}
}
