package view

import (
	"context"
	"fmt"
	"sync"

	"github.com/dujiao-next/storefront/internal/identity"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/service"
)

const (
	productListConsumer   = "product-list"
	msgProductsLoadFailed = "Failed to load products"
	msgAddToCartFailed    = "Failed to add product to cart. Please try again."
)

// ProductRow 商品及其选中数量（默认 1）
type ProductRow struct {
	models.Product
	Quantity int
}

// ProductListView 商品列表，仅登录后可见
type ProductListView struct {
	products *service.ProductService
	cart     *service.CartService
	auth     identity.Provider
	notify   Notifier

	mu            sync.Mutex
	rows          []ProductRow
	loading       bool
	err           string
	authenticated bool
	unsubscribe   func()
}

// NewProductListView 创建商品列表
func NewProductListView(products *service.ProductService, cart *service.CartService, auth identity.Provider, notify Notifier) *ProductListView {
	return &ProductListView{
		products: products,
		cart:     cart,
		auth:     auth,
		notify:   notifierOrDiscard(notify),
	}
}

// Init 订阅认证事件并按当前会话决定是否加载
func (v *ProductListView) Init(ctx context.Context) error {
	eventCtx := context.WithoutCancel(ctx)
	v.unsubscribe = v.auth.Subscribe(productListConsumer, func(evt identity.Event) {
		if evt.SignedIn() {
			v.mu.Lock()
			v.authenticated = true
			empty := len(v.rows) == 0
			v.mu.Unlock()
			if empty {
				_ = v.Load(eventCtx)
			}
			return
		}
		v.mu.Lock()
		v.authenticated = false
		v.rows = nil
		v.mu.Unlock()
	})

	session, err := v.auth.Session(ctx)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.authenticated = session != nil
	v.mu.Unlock()
	if session == nil {
		return nil
	}
	return v.Load(ctx)
}

// Close 取消订阅
func (v *ProductListView) Close() {
	if v.unsubscribe != nil {
		v.unsubscribe()
		v.unsubscribe = nil
	}
}

// Load 拉取商品，每项选中数量重置为 1
func (v *ProductListView) Load(ctx context.Context) error {
	v.mu.Lock()
	v.loading = true
	v.err = ""
	v.mu.Unlock()

	products, err := v.products.GetAll(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading = false
	if err != nil {
		v.err = msgProductsLoadFailed
		logger.Errorw("product_list_load_failed", "error", err)
		return err
	}
	rows := make([]ProductRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, ProductRow{Product: p, Quantity: 1})
	}
	v.rows = rows
	return nil
}

// Rows 商品行快照
func (v *ProductListView) Rows() []ProductRow {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]ProductRow(nil), v.rows...)
}

// Authenticated 是否已登录
func (v *ProductListView) Authenticated() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.authenticated
}

// Loading 是否正在加载
func (v *ProductListView) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

// Error 行内错误信息
func (v *ProductListView) Error() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// SetQuantity 设置选中数量，小于 1 时忽略
func (v *ProductListView) SetQuantity(productID uint, quantity int) bool {
	if quantity < 1 {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.rows {
		if v.rows[i].ID == productID {
			v.rows[i].Quantity = quantity
			return true
		}
	}
	return false
}

// AddToCart 按选中数量加入购物车
func (v *ProductListView) AddToCart(ctx context.Context, productID uint) (*models.CartItem, error) {
	v.mu.Lock()
	authenticated := v.authenticated
	var row *ProductRow
	for i := range v.rows {
		if v.rows[i].ID == productID {
			copied := v.rows[i]
			row = &copied
			break
		}
	}
	v.mu.Unlock()

	if !authenticated {
		return nil, identity.ErrNotSignedIn
	}
	if row == nil {
		return nil, fmt.Errorf("product %d not listed", productID)
	}
	item, err := v.cart.AddCartItem(ctx, row.ID, row.Quantity)
	if err != nil {
		logger.Errorw("product_list_add_to_cart_failed", "product_id", productID, "error", err)
		v.notify.Alert(msgAddToCartFailed)
		return nil, err
	}
	logger.Infow("product_added_to_cart",
		"product_id", row.ID,
		"name", row.Name,
		"price", row.Price.String(),
		"quantity", row.Quantity,
		"total", row.Price.Times(row.Quantity).String(),
	)
	return item, nil
}
