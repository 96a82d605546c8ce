package admin

import (
	"strings"

	handlershared "github.com/dujiao-next/storefront/internal/http/handlers/shared"
	"github.com/dujiao-next/storefront/internal/http/response"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/repository"

	"github.com/gin-gonic/gin"
)

// AdminListOrders GET /admin/order，可按 status / user_id 筛选
func (h *Handler) AdminListOrders(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	orders, total, err := h.OrderService.ListAdmin(repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   strings.TrimSpace(c.Query("user_id")),
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondMappedError(c, err, "Failed to load orders")
		return
	}
	handlershared.SetTotalCount(c, total)
	response.OK(c, orders)
}

// AdminGetOrder GET /admin/order/:id
func (h *Handler) AdminGetOrder(c *gin.Context) {
	id, ok := parseID(c, "Invalid order id")
	if !ok {
		return
	}
	order, err := h.OrderService.GetAdmin(id)
	if err != nil {
		respondMappedError(c, err, "Failed to load order")
		return
	}
	response.OK(c, order)
}

// AdminUpdateOrderStatus PATCH /admin/order/:id/status
func (h *Handler) AdminUpdateOrderStatus(c *gin.Context) {
	id, ok := parseID(c, "Invalid order id")
	if !ok {
		return
	}
	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	order, err := h.OrderService.UpdateStatus(id, req.Status)
	if err != nil {
		respondMappedError(c, err, "Failed to update order status")
		return
	}
	requestLog(c).Infow("admin_order_status_updated", "order_id", id, "status", order.Status, "operator", operatorID(c))
	response.OK(c, order)
}
