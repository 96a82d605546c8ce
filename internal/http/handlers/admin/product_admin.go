package admin

import (
	"github.com/dujiao-next/storefront/internal/http/response"
	"github.com/dujiao-next/storefront/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateProduct POST /admin/product
func (h *Handler) CreateProduct(c *gin.Context) {
	var in models.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	product, err := h.CatalogService.Create(in)
	if err != nil {
		respondMappedError(c, err, "Failed to create product")
		return
	}
	requestLog(c).Infow("admin_product_created", "product_id", product.ID, "operator", operatorID(c))
	response.Created(c, product)
}

// UpdateProduct PUT /admin/product/:id
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "Invalid product id")
	if !ok {
		return
	}
	var in models.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	product, err := h.CatalogService.Update(id, in)
	if err != nil {
		respondMappedError(c, err, "Failed to update product")
		return
	}
	requestLog(c).Infow("admin_product_updated", "product_id", product.ID, "operator", operatorID(c))
	response.OK(c, product)
}

// DeleteProduct DELETE /admin/product/:id
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "Invalid product id")
	if !ok {
		return
	}
	if err := h.CatalogService.Delete(id); err != nil {
		respondMappedError(c, err, "Failed to delete product")
		return
	}
	requestLog(c).Infow("admin_product_deleted", "product_id", id, "operator", operatorID(c))
	response.NoContent(c)
}
