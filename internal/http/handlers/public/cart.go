package public

import (
	"github.com/dujiao-next/storefront/internal/http/response"
	"github.com/dujiao-next/storefront/internal/models"

	"github.com/gin-gonic/gin"
)

// GetCart GET /cart
func (h *Handler) GetCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	cart, err := h.CartService.GetCart(uid)
	if err != nil {
		respondMappedError(c, err, "Failed to load cart")
		return
	}
	response.OK(c, cart)
}

// ListCartItems GET /cart/items
func (h *Handler) ListCartItems(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	items, err := h.CartService.ListItems(uid)
	if err != nil {
		respondMappedError(c, err, "Failed to load cart items")
		return
	}
	response.OK(c, items)
}

// AddCartItem POST /cart/items，同一商品再次加入时累加数量
func (h *Handler) AddCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req models.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	item, err := h.CartService.AddItem(uid, req)
	if err != nil {
		respondMappedError(c, err, "Failed to add item to cart")
		return
	}
	response.Created(c, item)
}

// UpdateCartItem PUT /cart/items/:id
func (h *Handler) UpdateCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	itemID, ok := parseID(c, "Invalid cart item id")
	if !ok {
		return
	}
	var req models.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	item, err := h.CartService.UpdateItem(uid, itemID, req.Quantity)
	if err != nil {
		respondMappedError(c, err, "Failed to update cart item")
		return
	}
	response.OK(c, item)
}

// DeleteCartItem DELETE /cart/items/:id
func (h *Handler) DeleteCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	itemID, ok := parseID(c, "Invalid cart item id")
	if !ok {
		return
	}
	if err := h.CartService.RemoveItem(uid, itemID); err != nil {
		respondMappedError(c, err, "Failed to remove cart item")
		return
	}
	response.NoContent(c)
}
