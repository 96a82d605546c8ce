package models

import (
	"strings"
	"time"

	"github.com/dujiao-next/storefront/internal/constants"
)

// Order 订单表
type Order struct {
	ID        uint        `gorm:"primarykey" json:"id"`                           // 主键
	UserID    *string     `gorm:"type:varchar(64);index" json:"userId,omitempty"` // 下单用户（可空）
	OrderDate time.Time   `gorm:"index;not null" json:"orderDate"`                // 下单时间
	Status    string      `gorm:"type:varchar(32);not null;index" json:"status"`  // 订单状态
	CreatedAt time.Time   `json:"-"`                                              // 创建时间
	UpdatedAt time.Time   `json:"updatedAt"`                                      // 更新时间
	Items     []OrderItem `gorm:"foreignKey:OrderID" json:"items"`                // 订单项（有序）
	Username  string      `gorm:"-" json:"username,omitempty"`                    // 下单用户名（仅管理端）
	UserEmail string      `gorm:"-" json:"userEmail,omitempty"`                   // 下单邮箱（仅管理端）
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// UpdateOrderStatusRequest 修改订单状态请求
type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

// NormalizeOrderStatus 统一订单状态写法（忽略大小写，空格视为下划线）
// 返回值 ok 表示状态是否在枚举范围内
func NormalizeOrderStatus(raw string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	for _, status := range constants.OrderStatuses() {
		if status == normalized {
			return normalized, true
		}
	}
	return normalized, false
}

// StatusMatches 判断订单状态是否匹配（忽略大小写）
func StatusMatches(status, target string) bool {
	return strings.EqualFold(strings.TrimSpace(status), strings.TrimSpace(target))
}
