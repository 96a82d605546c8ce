package public

import (
	"strings"

	handlershared "github.com/dujiao-next/storefront/internal/http/handlers/shared"
	"github.com/dujiao-next/storefront/internal/http/response"
	"github.com/dujiao-next/storefront/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListProducts GET /product
func (h *Handler) ListProducts(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	products, total, err := h.CatalogService.List(repository.ProductListFilter{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "Failed to load products", err)
		return
	}
	handlershared.SetTotalCount(c, total)
	response.OK(c, products)
}

// GetProduct GET /product/:id
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "Invalid product id")
	if !ok {
		return
	}
	product, err := h.CatalogService.Get(id)
	if err != nil {
		respondMappedError(c, err, "Failed to load product")
		return
	}
	response.OK(c, product)
}
