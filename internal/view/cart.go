package view

import (
	"context"
	"errors"
	"fmt"

	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/service"
)

const (
	msgCartLoadFailed    = "Failed to load cart."
	msgCartUpdateFailed  = "Failed to update quantity. Please try again."
	msgCartRemoveFailed  = "Failed to remove item. Please try again."
	msgCartEmpty         = "Your cart is empty."
	msgCheckoutFailed    = "Failed to place order. Please try again."
	msgCheckoutSucceeded = "Order #%d placed."
)

// CartView 购物车页面状态
type CartView struct {
	cart   *service.CartService
	orders *service.OrderService
	notify Notifier

	Items   []models.CartItemWithProduct
	Loading bool
	Error   string

	// 本地编辑但尚未提交的数量，按购物车项 ID 记录
	edited map[uint]int
}

// NewCartView 创建购物车页面
func NewCartView(cart *service.CartService, orders *service.OrderService, notify Notifier) *CartView {
	return &CartView{
		cart:   cart,
		orders: orders,
		notify: notifierOrDiscard(notify),
		edited: make(map[uint]int),
	}
}

// Load 拉取购物车项及商品信息，失败时保留上一次的列表
func (v *CartView) Load(ctx context.Context) error {
	v.Loading = true
	v.Error = ""
	items, err := v.cart.GetCartItemsWithProducts(ctx)
	v.Loading = false
	if err != nil {
		v.Error = msgCartLoadFailed
		logger.Errorw("cart_view_load_failed", "error", err)
		return err
	}
	v.Items = items
	return nil
}

// Total 购物车合计
func (v *CartView) Total() models.Money {
	return service.CartTotal(v.Items)
}

// ItemTotal 单项小计
func (v *CartView) ItemTotal(item models.CartItemWithProduct) models.Money {
	return service.LineTotal(item)
}

// UpdateQuantity 提交新数量，小于 1 时忽略
func (v *CartView) UpdateQuantity(ctx context.Context, item models.CartItemWithProduct, quantity int) error {
	if quantity < 1 {
		return nil
	}
	if _, err := v.cart.UpdateQuantity(ctx, item.ID, quantity); err != nil {
		logger.Errorw("cart_view_update_failed", "cart_item_id", item.ID, "quantity", quantity, "error", err)
		v.notify.Alert(msgCartUpdateFailed)
		return err
	}
	return v.Load(ctx)
}

// OnLocalQuantityChange 记录本地输入，不立即提交
func (v *CartView) OnLocalQuantityChange(item models.CartItemWithProduct, quantity int) {
	if quantity < 1 {
		return
	}
	v.edited[item.ID] = quantity
}

// IsQuantityDirty 本地输入是否与当前数量不同
func (v *CartView) IsQuantityDirty(item models.CartItemWithProduct) bool {
	q, ok := v.edited[item.ID]
	return ok && q != item.Quantity
}

// ApplyQuantityChange 提交本地编辑的数量
func (v *CartView) ApplyQuantityChange(ctx context.Context, item models.CartItemWithProduct) error {
	q, ok := v.edited[item.ID]
	if !ok || q < 1 || q == item.Quantity {
		return nil
	}
	delete(v.edited, item.ID)
	return v.UpdateQuantity(ctx, item, q)
}

// RemoveItem 删除单项后重新加载
func (v *CartView) RemoveItem(ctx context.Context, item models.CartItemWithProduct) error {
	if err := v.cart.RemoveItem(ctx, item.ID); err != nil {
		logger.Errorw("cart_view_remove_failed", "cart_item_id", item.ID, "error", err)
		v.notify.Alert(msgCartRemoveFailed)
		return err
	}
	delete(v.edited, item.ID)
	return v.Load(ctx)
}

// ClearCart 删除全部购物车项，单项失败不影响其他项，结束后重新加载
func (v *CartView) ClearCart(ctx context.Context) error {
	if len(v.Items) == 0 {
		return nil
	}
	if err := v.cart.ClearCart(ctx); err != nil {
		logger.Warnw("cart_view_clear_refetch_failed", "error", err)
	}
	v.edited = make(map[uint]int)
	return v.Load(ctx)
}

// SubmitOrder 结算购物车
func (v *CartView) SubmitOrder(ctx context.Context) (*models.Order, error) {
	order, err := v.orders.CheckoutCart(ctx)
	if err != nil {
		if errors.Is(err, service.ErrEmptyCart) {
			v.notify.Alert(msgCartEmpty)
			return nil, err
		}
		logger.Errorw("cart_view_checkout_failed", "error", err)
		v.notify.Alert(msgCheckoutFailed)
		return nil, err
	}
	v.Items = nil
	v.edited = make(map[uint]int)
	v.notify.Alert(fmt.Sprintf(msgCheckoutSucceeded, order.ID))
	return order, nil
}
