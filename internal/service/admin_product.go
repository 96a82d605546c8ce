package service

import (
	"context"
	"fmt"

	"github.com/dujiao-next/storefront/internal/api"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/state"
)

const adminProductPath = "/admin/product"

// AdminProductService 管理端商品；变更后从公开商品列表回填缓存
type AdminProductService struct {
	api      *api.Client
	products *state.Cell[[]models.Product]
	refresh  *Refresher
}

// NewAdminProductService 创建管理端商品服务
func NewAdminProductService(client *api.Client, refresh *Refresher) *AdminProductService {
	if refresh == nil {
		refresh = NewRefresher("")
	}
	return &AdminProductService{
		api:      client,
		products: state.NewSlice[models.Product](nil),
		refresh:  refresh,
	}
}

// AllProducts 商品只读快照
func (s *AdminProductService) AllProducts() state.ReadOnly[[]models.Product] {
	return s.products.ReadOnly()
}

// ValidateProductInput 名称必填，价格不能为负
func ValidateProductInput(in models.ProductInput) error {
	in = in.Normalize()
	fields := map[string]string{}
	if in.Name == "" {
		fields["name"] = "Product name is required"
	}
	if in.Price.IsNegative() {
		fields["price"] = "Price must be greater than or equal to 0"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// CreateProduct POST /admin/product
func (s *AdminProductService) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	if err := ValidateProductInput(in); err != nil {
		return nil, err
	}
	var product models.Product
	if err := s.api.Post(ctx, adminProductPath, in.Normalize(), &product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.refreshProducts(ctx)
	return &product, nil
}

// UpdateProduct PUT /admin/product/{id}
func (s *AdminProductService) UpdateProduct(ctx context.Context, id uint, in models.ProductInput) (*models.Product, error) {
	if id == 0 {
		return nil, ErrInvalidID
	}
	if err := ValidateProductInput(in); err != nil {
		return nil, err
	}
	var product models.Product
	if err := s.api.Put(ctx, fmt.Sprintf("%s/%d", adminProductPath, id), in.Normalize(), &product); err != nil {
		return nil, fmt.Errorf("update product %d: %w", id, err)
	}
	s.refreshProducts(ctx)
	return &product, nil
}

// DeleteProduct DELETE /admin/product/{id}
func (s *AdminProductService) DeleteProduct(ctx context.Context, id uint) error {
	if id == 0 {
		return ErrInvalidID
	}
	if err := s.api.Delete(ctx, fmt.Sprintf("%s/%d", adminProductPath, id), nil); err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	s.refreshProducts(ctx)
	return nil
}

// RefreshProducts 从公开接口 GET /product 回填缓存
func (s *AdminProductService) RefreshProducts(ctx context.Context) error {
	var products []models.Product
	if err := s.api.Get(ctx, productPath, &products); err != nil {
		return fmt.Errorf("refresh products: %w", err)
	}
	s.products.Set(products)
	return nil
}

// ClearLocalProducts 清空本地缓存
func (s *AdminProductService) ClearLocalProducts() {
	s.products.Set(nil)
}

func (s *AdminProductService) refreshProducts(ctx context.Context) {
	s.refresh.After(ctx, "admin_products", s.RefreshProducts)
}
