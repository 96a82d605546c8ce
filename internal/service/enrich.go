package service

import (
	"context"

	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"

	"golang.org/x/sync/errgroup"
)

// ProductLookup 按 ID 查询商品
type ProductLookup interface {
	GetByID(ctx context.Context, id uint) (*models.Product, error)
}

// enrichOrders 为每个订单项各发起一次商品查询，全部并发；任一失败则整体失败
func enrichOrders(ctx context.Context, lookup ProductLookup, orders []models.Order) ([]models.OrderWithProducts, error) {
	out := make([]models.OrderWithProducts, len(orders))
	g, gctx := errgroup.WithContext(ctx)
	for i := range orders {
		items := make([]models.OrderItemWithProduct, len(orders[i].Items))
		out[i] = models.NewOrderWithProducts(orders[i], items)
		for j := range orders[i].Items {
			item := orders[i].Items[j]
			g.Go(func() error {
				product, err := lookup.GetByID(gctx, item.ProductID)
				if err != nil {
					logger.Warnw("order_enrich_failed", "order_id", orders[i].ID, "product_id", item.ProductID, "error", err)
					return err
				}
				out[i].Items[j] = models.OrderItemWithProduct{OrderItem: item, Product: product.Summary()}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func enrichOrder(ctx context.Context, lookup ProductLookup, order models.Order) (*models.OrderWithProducts, error) {
	enriched, err := enrichOrders(ctx, lookup, []models.Order{order})
	if err != nil {
		return nil, err
	}
	return &enriched[0], nil
}

// enrichCartItems 为购物车项补全商品信息，规则同订单
func enrichCartItems(ctx context.Context, lookup ProductLookup, items []models.CartItem) ([]models.CartItemWithProduct, error) {
	out := make([]models.CartItemWithProduct, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i := range items {
		g.Go(func() error {
			product, err := lookup.GetByID(gctx, items[i].ProductID)
			if err != nil {
				logger.Warnw("cart_enrich_failed", "cart_item_id", items[i].ID, "product_id", items[i].ProductID, "error", err)
				return err
			}
			out[i] = models.CartItemWithProduct{CartItem: items[i], Product: product.Summary()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func cloneOrders(in []models.OrderWithProducts) []models.OrderWithProducts {
	out := make([]models.OrderWithProducts, len(in))
	for i, order := range in {
		order.Items = append([]models.OrderItemWithProduct(nil), order.Items...)
		if order.Items == nil {
			order.Items = []models.OrderItemWithProduct{}
		}
		out[i] = order
	}
	return out
}
