package backend

import (
	"strings"

	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/repository"
)

// CartService 服务端购物车
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

// NewCartService 创建购物车服务
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo}
}

// GetCart 获取用户购物车，首次访问时创建
func (s *CartService) GetCart(userID string) (*models.Cart, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserNotFound
	}
	return s.cartRepo.GetOrCreate(userID)
}

// ListItems 购物车项列表
func (s *CartService) ListItems(userID string) ([]models.CartItem, error) {
	cart, err := s.GetCart(userID)
	if err != nil {
		return nil, err
	}
	return s.cartRepo.ListItems(cart.ID)
}

// AddItem 加入购物车，已存在的商品累加数量
func (s *CartService) AddItem(userID string, req models.AddCartItemRequest) (*models.CartItem, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	product, err := s.productRepo.GetByID(req.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	cart, err := s.GetCart(userID)
	if err != nil {
		return nil, err
	}
	return s.cartRepo.AddQuantity(cart.ID, product.ID, req.Quantity)
}

// UpdateItem 设置购物车项数量
func (s *CartService) UpdateItem(userID string, itemID uint, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	cart, err := s.GetCart(userID)
	if err != nil {
		return nil, err
	}
	affected, err := s.cartRepo.UpdateQuantity(cart.ID, itemID, quantity)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrCartItemNotFound
	}
	item, err := s.cartRepo.GetItem(cart.ID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrCartItemNotFound
	}
	return item, nil
}

// RemoveItem 删除购物车项
func (s *CartService) RemoveItem(userID string, itemID uint) error {
	cart, err := s.GetCart(userID)
	if err != nil {
		return err
	}
	affected, err := s.cartRepo.DeleteItem(cart.ID, itemID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}
