package admin

import (
	handlershared "github.com/dujiao-next/storefront/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func parseID(c *gin.Context, invalidMsg string) (uint, bool) {
	return handlershared.ParseIDParam(c, "id", invalidMsg)
}

func operatorID(c *gin.Context) string {
	return c.GetString(handlershared.ContextUserID)
}
