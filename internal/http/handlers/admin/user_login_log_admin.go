package admin

import (
	"strings"

	"github.com/dujiao-next/storefront/internal/constants"
	handlershared "github.com/dujiao-next/storefront/internal/http/handlers/shared"
	"github.com/dujiao-next/storefront/internal/http/response"
	"github.com/dujiao-next/storefront/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetUserLoginLogs GET /admin/login-logs，可按 user_id / email / status 筛选
func (h *Handler) GetUserLoginLogs(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	status := strings.ToLower(strings.TrimSpace(c.Query("status")))
	if status != "" && status != constants.LoginLogStatusSuccess && status != constants.LoginLogStatusFailed {
		respondError(c, response.CodeBadRequest, "Invalid status", nil)
		return
	}

	logs, total, err := h.LoginLogService.List(repository.UserLoginLogListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   strings.TrimSpace(c.Query("user_id")),
		Email:    c.Query("email"),
		Status:   status,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "Failed to load login logs", err)
		return
	}
	handlershared.SetTotalCount(c, total)
	response.OK(c, logs)
}
