package repository

import "gorm.io/gorm"

// maxPageSize 列表接口单页上限，与 HTTP 层的 page_size 截断保持一致
const maxPageSize = 100

// countAndPaginate 先统计总数再应用分页；pageSize <= 0 时返回全部记录。
// 列表接口的 X-Total-Count 取自这里的 total。
func countAndPaginate(query *gorm.DB, page, pageSize int) (*gorm.DB, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if pageSize <= 0 {
		return query, total, nil
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize), total, nil
}
