package service

import (
	"context"
	"fmt"

	"github.com/dujiao-next/storefront/internal/api"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	orderPath         = "/order"
	orderCheckoutPath = "/order/checkout"
)

// OrderService 下单与个人订单
type OrderService struct {
	api   *api.Client
	cart  *CartService
	group singleflight.Group
}

// NewOrderService 创建订单服务
func NewOrderService(client *api.Client, cart *CartService) *OrderService {
	return &OrderService{api: client, cart: cart}
}

// CheckoutCart 将购物车转换为订单
//
// 本地缓存为空时直接拒绝；同一进程内并发的结算请求合并为一次，
// 每次结算携带新的幂等键。请求一旦发出即执行到底，成功后清空本地购物车缓存，
// 即使发起它的调用方已经取消。
func (s *OrderService) CheckoutCart(ctx context.Context) (*models.Order, error) {
	if s.cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	v, shared, err := doShared(ctx, &s.group, "checkout", func(ctx context.Context) (interface{}, error) {
		key := uuid.NewString()
		var order models.Order
		if err := s.api.Post(ctx, orderCheckoutPath, nil, &order, api.WithIdempotencyKey(key)); err != nil {
			return nil, err
		}
		s.cart.ClearLocalCart()
		logger.Infow("order_checkout_succeeded", "order_id", order.ID, "items", len(order.Items), "idempotency_key", key)
		return &order, nil
	})
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}
	if shared {
		logger.Debugw("order_checkout_deduplicated")
	}
	order := *v.(*models.Order)
	return &order, nil
}

// GetMyOrders GET /order
func (s *OrderService) GetMyOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := s.api.Get(ctx, orderPath, &orders); err != nil {
		return nil, fmt.Errorf("list my orders: %w", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// GetOrderByID GET /order/{id}
func (s *OrderService) GetOrderByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := s.api.Get(ctx, fmt.Sprintf("%s/%d", orderPath, id), &order); err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return &order, nil
}
