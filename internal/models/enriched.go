package models

import "time"

// ProductSummary 商品只读摘要，用于订单项/购物车项展示
type ProductSummary struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
	Price       Money   `json:"price"`
}

// CartItemWithProduct 带商品信息的购物车项（派生数据，不持久化）
type CartItemWithProduct struct {
	CartItem
	Product *ProductSummary `json:"product,omitempty"`
}

// LineTotal 小计 = 商品单价 × 数量，缺少商品信息时为 0
func (i CartItemWithProduct) LineTotal() Money {
	if i.Product == nil {
		return Money{}
	}
	return i.Product.Price.Times(i.Quantity)
}

// OrderItemWithProduct 带商品信息的订单项（派生数据，不持久化）
type OrderItemWithProduct struct {
	OrderItem
	Product *ProductSummary `json:"product,omitempty"`
}

// OrderWithProducts 订单项已补全商品信息的订单
type OrderWithProducts struct {
	ID        uint                   `json:"id"`
	UserID    *string                `json:"userId,omitempty"`
	OrderDate time.Time              `json:"orderDate"`
	Status    string                 `json:"status"`
	UpdatedAt time.Time              `json:"updatedAt"`
	Username  string                 `json:"username,omitempty"`
	UserEmail string                 `json:"userEmail,omitempty"`
	Items     []OrderItemWithProduct `json:"items"`
}

// NewOrderWithProducts 组合订单与补全后的订单项
func NewOrderWithProducts(order Order, items []OrderItemWithProduct) OrderWithProducts {
	if items == nil {
		items = []OrderItemWithProduct{}
	}
	return OrderWithProducts{
		ID:        order.ID,
		UserID:    order.UserID,
		OrderDate: order.OrderDate,
		Status:    order.Status,
		UpdatedAt: order.UpdatedAt,
		Username:  order.Username,
		UserEmail: order.UserEmail,
		Items:     items,
	}
}

// Total 订单总额（按成交价快照计算）
func (o OrderWithProducts) Total() Money {
	total := Money{}
	for _, item := range o.Items {
		total = total.Plus(item.LineTotal())
	}
	return total
}
