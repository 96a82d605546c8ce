package public

import (
	"strings"

	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// Checkout POST /order/checkout，相同 Idempotency-Key 的重复提交返回同一订单
func (h *Handler) Checkout(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	key := strings.TrimSpace(c.GetHeader(constants.HeaderIdempotencyKey))
	order, err := h.OrderService.Checkout(c.Request.Context(), uid, key)
	if err != nil {
		respondMappedError(c, err, "Failed to create order")
		return
	}
	response.Created(c, order)
}

// ListOrders GET /order
func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orders, err := h.OrderService.ListMine(uid)
	if err != nil {
		respondMappedError(c, err, "Failed to load orders")
		return
	}
	response.OK(c, orders)
}

// GetOrder GET /order/:id
func (h *Handler) GetOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "Invalid order id")
	if !ok {
		return
	}
	order, err := h.OrderService.GetMine(uid, id)
	if err != nil {
		respondMappedError(c, err, "Failed to load order")
		return
	}
	response.OK(c, order)
}
