package service

import (
	"context"
	"fmt"

	"github.com/dujiao-next/storefront/internal/api"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/state"

	"golang.org/x/sync/errgroup"
)

const (
	cartPath      = "/cart"
	cartItemsPath = "/cart/items"
)

// CartService 购物车服务，缓存最近一次拉取的购物车项
type CartService struct {
	api      *api.Client
	products ProductLookup
	items    *state.Cell[[]models.CartItem]
	refresh  *Refresher
}

// NewCartService 创建购物车服务
func NewCartService(client *api.Client, products ProductLookup, refresh *Refresher) *CartService {
	if refresh == nil {
		refresh = NewRefresher("")
	}
	return &CartService{
		api:      client,
		products: products,
		items:    state.NewSlice[models.CartItem](nil),
		refresh:  refresh,
	}
}

// Items 购物车项只读快照
func (s *CartService) Items() state.ReadOnly[[]models.CartItem] {
	return s.items.ReadOnly()
}

// ItemCount 购物车商品总件数
func (s *CartService) ItemCount() int {
	total := 0
	for _, item := range s.items.Get() {
		total += item.Quantity
	}
	return total
}

// IsEmpty 缓存中是否没有购物车项
func (s *CartService) IsEmpty() bool {
	return len(s.items.Get()) == 0
}

// GetCart GET /cart，不影响缓存
func (s *CartService) GetCart(ctx context.Context) (*models.Cart, error) {
	var cart models.Cart
	if err := s.api.Get(ctx, cartPath, &cart); err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return &cart, nil
}

// GetCartItems GET /cart/items，成功后替换缓存
func (s *CartService) GetCartItems(ctx context.Context) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := s.api.Get(ctx, cartItemsPath, &items); err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	s.items.Set(items)
	return s.items.Get(), nil
}

// AddCartItem 加入购物车；同一商品已存在时由服务端累加数量
func (s *CartService) AddCartItem(ctx context.Context, productID uint, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	var item models.CartItem
	req := models.AddCartItemRequest{ProductID: productID, Quantity: quantity}
	if err := s.api.Post(ctx, cartItemsPath, req, &item); err != nil {
		return nil, fmt.Errorf("add product %d to cart: %w", productID, err)
	}
	s.refreshItems(ctx)
	return &item, nil
}

// AddProduct 加入一件商品
func (s *CartService) AddProduct(ctx context.Context, productID uint) (*models.CartItem, error) {
	return s.AddCartItem(ctx, productID, 1)
}

// UpdateCartItem PUT /cart/items/{id}
func (s *CartService) UpdateCartItem(ctx context.Context, id uint, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	var item models.CartItem
	req := models.UpdateCartItemRequest{Quantity: quantity}
	if err := s.api.Put(ctx, cartItemPath(id), req, &item); err != nil {
		return nil, fmt.Errorf("update cart item %d: %w", id, err)
	}
	s.refreshItems(ctx)
	return &item, nil
}

// UpdateQuantity UpdateCartItem 的别名
func (s *CartService) UpdateQuantity(ctx context.Context, id uint, quantity int) (*models.CartItem, error) {
	return s.UpdateCartItem(ctx, id, quantity)
}

// DeleteCartItem DELETE /cart/items/{id}
func (s *CartService) DeleteCartItem(ctx context.Context, id uint) error {
	if err := s.deleteItem(ctx, id); err != nil {
		return err
	}
	s.refreshItems(ctx)
	return nil
}

// RemoveItem DeleteCartItem 的别名
func (s *CartService) RemoveItem(ctx context.Context, id uint) error {
	return s.DeleteCartItem(ctx, id)
}

// IncrementQuantity 数量 +1
func (s *CartService) IncrementQuantity(ctx context.Context, item models.CartItem) (*models.CartItem, error) {
	return s.UpdateQuantity(ctx, item.ID, item.Quantity+1)
}

// DecrementQuantity 数量 -1；数量不大于 1 时改为删除，返回 nil 项
func (s *CartService) DecrementQuantity(ctx context.Context, item models.CartItem) (*models.CartItem, error) {
	if item.Quantity <= 1 {
		return nil, s.RemoveItem(ctx, item.ID)
	}
	return s.UpdateQuantity(ctx, item.ID, item.Quantity-1)
}

// ClearCart 并发删除缓存中的全部购物车项，单项失败忽略，全部结束后回填一次
func (s *CartService) ClearCart(ctx context.Context) error {
	items := s.items.Get()
	var g errgroup.Group
	for _, item := range items {
		g.Go(func() error {
			if err := s.deleteItem(ctx, item.ID); err != nil {
				logger.Warnw("cart_clear_item_failed", "cart_item_id", item.ID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if _, err := s.GetCartItems(ctx); err != nil {
		return err
	}
	return nil
}

// ClearLocalCart 清空本地缓存（如注销后）
func (s *CartService) ClearLocalCart() {
	s.items.Set(nil)
}

// GetItemByProductID 在缓存中按商品查找购物车项
func (s *CartService) GetItemByProductID(productID uint) (models.CartItem, bool) {
	for _, item := range s.items.Get() {
		if item.ProductID == productID {
			return item, true
		}
	}
	return models.CartItem{}, false
}

// HasProduct 缓存中是否已有该商品
func (s *CartService) HasProduct(productID uint) bool {
	_, ok := s.GetItemByProductID(productID)
	return ok
}

// GetCartItemsWithProducts 拉取购物车项并补全商品信息；任一商品查询失败则整体失败
func (s *CartService) GetCartItemsWithProducts(ctx context.Context) ([]models.CartItemWithProduct, error) {
	items, err := s.GetCartItems(ctx)
	if err != nil {
		return nil, err
	}
	enriched, err := enrichCartItems(ctx, s.products, items)
	if err != nil {
		return nil, fmt.Errorf("enrich cart items: %w", err)
	}
	return enriched, nil
}

func (s *CartService) deleteItem(ctx context.Context, id uint) error {
	if err := s.api.Delete(ctx, cartItemPath(id), nil); err != nil {
		return fmt.Errorf("remove cart item %d: %w", id, err)
	}
	return nil
}

func (s *CartService) refreshItems(ctx context.Context) {
	s.refresh.After(ctx, "cart_items", func(ctx context.Context) error {
		_, err := s.GetCartItems(ctx)
		return err
	})
}

func cartItemPath(id uint) string {
	return fmt.Sprintf("%s/%d", cartItemsPath, id)
}

// LineTotal 购物车项小计
func LineTotal(item models.CartItemWithProduct) models.Money {
	return item.LineTotal()
}

// CartTotal 购物车合计（精确小数求和）
func CartTotal(items []models.CartItemWithProduct) models.Money {
	total := models.Money{}
	for _, item := range items {
		total = total.Plus(item.LineTotal())
	}
	return total
}
