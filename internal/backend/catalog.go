package backend

import (
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/repository"
	"github.com/dujiao-next/storefront/internal/service"
)

// CatalogService 商品目录
type CatalogService struct {
	productRepo repository.ProductRepository
}

// NewCatalogService 创建商品目录服务
func NewCatalogService(productRepo repository.ProductRepository) *CatalogService {
	return &CatalogService{productRepo: productRepo}
}

// List 商品列表
func (s *CatalogService) List(filter repository.ProductListFilter) ([]models.Product, int64, error) {
	return s.productRepo.List(filter)
}

// Get 按 ID 获取商品，已下架商品仍可读取，保证历史订单能补全商品信息
func (s *CatalogService) Get(id uint) (*models.Product, error) {
	product, err := s.productRepo.GetByIDUnscoped(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// Create 创建商品
func (s *CatalogService) Create(in models.ProductInput) (*models.Product, error) {
	if err := service.ValidateProductInput(in); err != nil {
		return nil, err
	}
	in = in.Normalize()
	product := &models.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		ImageURL:    in.ImageURL,
	}
	if err := s.productRepo.Create(product); err != nil {
		return nil, err
	}
	return product, nil
}

// Update 全量更新商品
func (s *CatalogService) Update(id uint, in models.ProductInput) (*models.Product, error) {
	if err := service.ValidateProductInput(in); err != nil {
		return nil, err
	}
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	in = in.Normalize()
	product.Name = in.Name
	product.Description = in.Description
	product.Price = in.Price
	product.ImageURL = in.ImageURL
	if err := s.productRepo.Update(product); err != nil {
		return nil, err
	}
	return product, nil
}

// Delete 下架商品
func (s *CatalogService) Delete(id uint) error {
	affected, err := s.productRepo.Delete(id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}
