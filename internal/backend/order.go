package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/storefront/internal/cache"
	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/queue"
	"github.com/dujiao-next/storefront/internal/repository"

	"gorm.io/gorm"
)

// OrderService 服务端订单
type OrderService struct {
	orderRepo     repository.OrderRepository
	cartRepo      repository.CartRepository
	productRepo   repository.ProductRepository
	queueClient   *queue.Client
	pendingExpire time.Duration
	now           func() time.Time
}

// NewOrderService 创建订单服务；pendingExpireMinutes <= 0 时不安排超时取消
func NewOrderService(orderRepo repository.OrderRepository, cartRepo repository.CartRepository, productRepo repository.ProductRepository, queueClient *queue.Client, pendingExpireMinutes int) *OrderService {
	return &OrderService{
		orderRepo:     orderRepo,
		cartRepo:      cartRepo,
		productRepo:   productRepo,
		queueClient:   queueClient,
		pendingExpire: time.Duration(pendingExpireMinutes) * time.Minute,
		now:           time.Now,
	}
}

// Checkout 将购物车转为订单：逐项记录成交价快照并清空购物车
// 同一用户重复提交相同幂等键时返回首次创建的订单
func (s *OrderService) Checkout(ctx context.Context, userID, idempotencyKey string) (*models.Order, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserNotFound
	}
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if existing := s.replayCheckout(ctx, userID, idempotencyKey); existing != nil {
		return existing, nil
	}

	var order *models.Order
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		carts := s.cartRepo.WithTx(tx)
		cart, err := carts.GetOrCreate(userID)
		if err != nil {
			return err
		}
		items, err := carts.ListItems(cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		products := s.productRepo.WithTx(tx)
		lines := make([]models.OrderItem, 0, len(items))
		for _, item := range items {
			product, err := products.GetByID(item.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return fmt.Errorf("%w: %d", ErrProductNotFound, item.ProductID)
			}
			lines = append(lines, models.OrderItem{
				ProductID:       product.ID,
				Quantity:        item.Quantity,
				PriceAtPurchase: product.Price,
			})
		}

		owner := userID
		created := &models.Order{
			UserID:    &owner,
			OrderDate: s.now(),
			Status:    constants.OrderStatusPending,
		}
		if err := s.orderRepo.WithTx(tx).Create(created, lines); err != nil {
			return err
		}
		if err := carts.ClearItems(cart.ID); err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := cache.SetCheckoutOrderID(ctx, userID, idempotencyKey, order.ID); err != nil {
		logger.Warnw("order_checkout_idempotency_store_failed", "order_id", order.ID, "error", err)
	}
	s.scheduleTimeoutCancel(order.ID)
	logger.Infow("order_checkout_created", "order_id", order.ID, "user_id", userID, "items", len(order.Items))
	return order, nil
}

func (s *OrderService) replayCheckout(ctx context.Context, userID, key string) *models.Order {
	if key == "" {
		return nil
	}
	orderID, hit, err := cache.GetCheckoutOrderID(ctx, userID, key)
	if err != nil {
		logger.Warnw("order_checkout_idempotency_lookup_failed", "user_id", userID, "error", err)
		return nil
	}
	if !hit {
		return nil
	}
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil || order == nil {
		return nil
	}
	logger.Infow("order_checkout_replayed", "order_id", orderID, "user_id", userID)
	return order
}

func (s *OrderService) scheduleTimeoutCancel(orderID uint) {
	if s.pendingExpire <= 0 || s.queueClient == nil {
		return
	}
	payload := queue.OrderTimeoutCancelPayload{OrderID: orderID}
	if err := s.queueClient.EnqueueOrderTimeoutCancel(payload, s.pendingExpire); err != nil {
		logger.Warnw("order_enqueue_timeout_cancel_failed", "order_id", orderID, "error", err)
	}
}

// ListMine 当前用户的订单
func (s *OrderService) ListMine(userID string) ([]models.Order, error) {
	return s.orderRepo.ListByUser(userID)
}

// GetMine 当前用户的单个订单
func (s *OrderService) GetMine(userID string, id uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(id, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListAdmin 管理端订单列表，状态筛选忽略大小写
func (s *OrderService) ListAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	if strings.TrimSpace(filter.Status) != "" {
		status, ok := models.NormalizeOrderStatus(filter.Status)
		if !ok {
			return nil, 0, ErrInvalidOrderStatus
		}
		filter.Status = status
	}
	return s.orderRepo.ListAdmin(filter)
}

// GetAdmin 管理端订单详情
func (s *OrderService) GetAdmin(id uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// UpdateStatus 管理端修改订单状态，状态可为任意枚举值
func (s *OrderService) UpdateStatus(id uint, raw string) (*models.Order, error) {
	status, ok := models.NormalizeOrderStatus(raw)
	if !ok {
		return nil, ErrInvalidOrderStatus
	}
	affected, err := s.orderRepo.UpdateStatus(id, status)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrOrderNotFound
	}
	logger.Infow("order_status_updated", "order_id", id, "status", status)
	return s.GetAdmin(id)
}

// CancelExpiredOrder 超时取消仍处于待处理状态的订单，其他状态保持不变
func (s *OrderService) CancelExpiredOrder(id uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPending {
		return order, nil
	}
	affected, err := s.orderRepo.CancelIfPending(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderUpdateFailed, err)
	}
	// affected 为 0 说明状态已被管理员修改
	if affected > 0 {
		logger.Infow("order_timeout_canceled", "order_id", id)
	}
	return s.GetAdmin(id)
}
