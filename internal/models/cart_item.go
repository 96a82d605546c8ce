package models

import (
	"time"
)

// Cart 购物车（每个用户一个，首次使用时由服务端创建）
type Cart struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                // 主键
	UserID    string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"userId"` // 所属用户
	CreatedAt time.Time `json:"createdAt"`                                           // 创建时间
	UpdatedAt time.Time `json:"updatedAt"`                                           // 更新时间
}

// TableName 指定表名
func (Cart) TableName() string {
	return "carts"
}

// CartItem 购物车项，(cart_id, product_id) 唯一
type CartItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                     // 主键
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_item_product" json:"cartId"` // 购物车ID
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_item_product" json:"productId"`
	Quantity  int       `gorm:"not null" json:"quantity"` // 数量，始终 >= 1
	CreatedAt time.Time `gorm:"index" json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName 指定表名
func (CartItem) TableName() string {
	return "cart_items"
}

// AddCartItemRequest 加入购物车请求
type AddCartItemRequest struct {
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
}

// UpdateCartItemRequest 修改数量请求
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}
