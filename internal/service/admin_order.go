package service

import (
	"context"
	"fmt"

	"github.com/dujiao-next/storefront/internal/api"
	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/state"

	"golang.org/x/sync/singleflight"
)

const adminOrderPath = "/admin/order"

// AdminOrderService 管理端订单，缓存补全商品信息后的全部订单
type AdminOrderService struct {
	api      *api.Client
	products ProductLookup
	orders   *state.Cell[[]models.OrderWithProducts]
	refresh  *Refresher
	group    singleflight.Group
}

// NewAdminOrderService 创建管理端订单服务
func NewAdminOrderService(client *api.Client, products ProductLookup, refresh *Refresher) *AdminOrderService {
	if refresh == nil {
		refresh = NewRefresher("")
	}
	return &AdminOrderService{
		api:      client,
		products: products,
		orders:   state.New[[]models.OrderWithProducts](nil, cloneOrders),
		refresh:  refresh,
	}
}

// AllOrders 订单只读快照
func (s *AdminOrderService) AllOrders() state.ReadOnly[[]models.OrderWithProducts] {
	return s.orders.ReadOnly()
}

// GetAllOrders 拉取全部订单并逐项补全商品；任一查询失败时缓存保持不变
func (s *AdminOrderService) GetAllOrders(ctx context.Context) ([]models.OrderWithProducts, error) {
	var orders []models.Order
	if err := s.api.Get(ctx, adminOrderPath, &orders); err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	if len(orders) == 0 {
		s.orders.Set(nil)
		return []models.OrderWithProducts{}, nil
	}
	enriched, err := enrichOrders(ctx, s.products, orders)
	if err != nil {
		return nil, fmt.Errorf("enrich orders: %w", err)
	}
	s.orders.Set(enriched)
	return s.orders.Get(), nil
}

// GetOrderByID 读取并补全单个订单，不影响缓存
func (s *AdminOrderService) GetOrderByID(ctx context.Context, id uint) (*models.OrderWithProducts, error) {
	var order models.Order
	if err := s.api.Get(ctx, fmt.Sprintf("%s/%d", adminOrderPath, id), &order); err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	enriched, err := enrichOrder(ctx, s.products, order)
	if err != nil {
		return nil, fmt.Errorf("enrich order %d: %w", id, err)
	}
	return enriched, nil
}

// UpdateOrderStatus 修改订单状态后全量刷新缓存；相同的并发修改合并为一次请求
func (s *AdminOrderService) UpdateOrderStatus(ctx context.Context, id uint, status string) (*models.Order, error) {
	normalized, ok := models.NormalizeOrderStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOrderStatus, status)
	}
	v, _, err := doShared(ctx, &s.group, fmt.Sprintf("%d:%s", id, normalized), func(ctx context.Context) (interface{}, error) {
		var order models.Order
		req := models.UpdateOrderStatusRequest{Status: normalized}
		if err := s.api.Patch(ctx, fmt.Sprintf("%s/%d/status", adminOrderPath, id), req, &order); err != nil {
			return nil, err
		}
		s.refresh.After(ctx, "admin_orders", s.RefreshOrders)
		return &order, nil
	})
	if err != nil {
		return nil, fmt.Errorf("update order %d status: %w", id, err)
	}
	order := *v.(*models.Order)
	return &order, nil
}

// RefreshOrders 重新拉取全部订单
func (s *AdminOrderService) RefreshOrders(ctx context.Context) error {
	_, err := s.GetAllOrders(ctx)
	return err
}

// ClearLocalOrders 清空本地缓存
func (s *AdminOrderService) ClearLocalOrders() {
	s.orders.Set(nil)
}

// GetOrdersByStatus 按状态过滤缓存（忽略大小写）
func (s *AdminOrderService) GetOrdersByStatus(status string) []models.OrderWithProducts {
	out := make([]models.OrderWithProducts, 0)
	for _, order := range s.orders.Get() {
		if models.StatusMatches(order.Status, status) {
			out = append(out, order)
		}
	}
	return out
}

// ValidStatuses 合法订单状态
func (s *AdminOrderService) ValidStatuses() []string {
	return constants.OrderStatuses()
}
