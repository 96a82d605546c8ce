package models

import (
	"time"
)

// OrderItem 订单项表，PriceAtPurchase 为下单时的价格快照
type OrderItem struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                         // 主键
	OrderID         uint      `gorm:"index;not null" json:"orderId"`                                // 订单ID
	ProductID       uint      `gorm:"index;not null" json:"productId"`                              // 商品ID
	Quantity        int       `gorm:"not null" json:"quantity"`                                     // 数量
	PriceAtPurchase Money     `gorm:"type:decimal(20,2);not null;default:0" json:"priceAtPurchase"` // 成交单价快照
	CreatedAt       time.Time `json:"-"`
	UpdatedAt       time.Time `json:"-"`
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}

// LineTotal 小计 = 成交单价 × 数量
func (i OrderItem) LineTotal() Money {
	return i.PriceAtPurchase.Times(i.Quantity)
}
