package public

import (
	handlershared "github.com/dujiao-next/storefront/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getUserID(c *gin.Context) (string, bool) {
	return handlershared.GetUserID(c)
}

func parseID(c *gin.Context, invalidMsg string) (uint, bool) {
	return handlershared.ParseIDParam(c, "id", invalidMsg)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondMappedError(c *gin.Context, err error, fallbackMsg string) {
	handlershared.RespondMappedError(c, err, handlershared.ResourceErrorRules, fallbackMsg)
}
