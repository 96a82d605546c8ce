package shared

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderTotalCount 列表总数响应头
const HeaderTotalCount = "X-Total-Count"

// NormalizePagination 归一化分页参数；pageSize <= 0 表示不分页。
func NormalizePagination(page, pageSize int) (int, int) {
	if pageSize <= 0 {
		return 0, 0
	}
	if page < 1 {
		page = 1
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// ParsePagination 读取 page / page_size 查询参数，未传 page_size 时返回全部数据。
func ParsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(strings.TrimSpace(c.Query("page")))
	pageSize, _ := strconv.Atoi(strings.TrimSpace(c.Query("page_size")))
	return NormalizePagination(page, pageSize)
}

// SetTotalCount 写入列表总数响应头，响应体保持为数组。
func SetTotalCount(c *gin.Context, total int64) {
	c.Header(HeaderTotalCount, strconv.FormatInt(total, 10))
}
