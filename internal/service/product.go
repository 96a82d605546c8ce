package service

import (
	"context"
	"fmt"

	"github.com/dujiao-next/storefront/internal/api"
	"github.com/dujiao-next/storefront/internal/models"
)

const productPath = "/product"

// ProductService 公开商品接口
type ProductService struct {
	api *api.Client
}

// NewProductService 创建商品服务
func NewProductService(client *api.Client) *ProductService {
	return &ProductService{api: client}
}

// GetAll 获取全部商品
func (s *ProductService) GetAll(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.api.Get(ctx, productPath, &products); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// GetByID 获取单个商品
func (s *ProductService) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := s.api.Get(ctx, fmt.Sprintf("%s/%d", productPath, id), &product); err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return &product, nil
}
