package repository

import (
	"errors"
	"time"

	"github.com/dujiao-next/storefront/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository 购物车数据访问接口
type CartRepository interface {
	GetOrCreate(userID string) (*models.Cart, error)
	ListItems(cartID uint) ([]models.CartItem, error)
	GetItem(cartID, itemID uint) (*models.CartItem, error)
	AddQuantity(cartID, productID uint, quantity int) (*models.CartItem, error)
	UpdateQuantity(cartID, itemID uint, quantity int) (int64, error)
	DeleteItem(cartID, itemID uint) (int64, error)
	ClearItems(cartID uint) error
	WithTx(tx *gorm.DB) CartRepository
}

// GormCartRepository GORM 实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCartRepository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &GormCartRepository{db: tx}
}

// GetOrCreate 获取用户购物车，不存在时创建
func (r *GormCartRepository) GetOrCreate(userID string) (*models.Cart, error) {
	cart := models.Cart{UserID: userID}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&cart).Error; err != nil {
		return nil, err
	}
	if err := r.db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// ListItems 获取购物车项（按加入顺序）
func (r *GormCartRepository) ListItems(cartID uint) ([]models.CartItem, error) {
	items := []models.CartItem{}
	if err := r.db.Where("cart_id = ?", cartID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem 获取购物车中的某一项
func (r *GormCartRepository) GetItem(cartID, itemID uint) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.Where("id = ? AND cart_id = ?", itemID, cartID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// AddQuantity 商品已在购物车中时累加数量，否则新建购物车项
//
// 以 (cart_id, product_id) 冲突时累加的 upsert 完成，并发加入同一商品不会触发唯一索引错误。
func (r *GormCartRepository) AddQuantity(cartID, productID uint, quantity int) (*models.CartItem, error) {
	item := &models.CartItem{CartID: cartID, ProductID: productID, Quantity: quantity}
	table := item.TableName()
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr(table + ".quantity + excluded.quantity"),
			"updated_at": time.Now(),
		}),
	}).Create(item).Error
	if err != nil {
		return nil, err
	}
	var merged models.CartItem
	if err := r.db.Where("cart_id = ? AND product_id = ?", cartID, productID).First(&merged).Error; err != nil {
		return nil, err
	}
	return &merged, nil
}

// UpdateQuantity 设置数量，返回影响行数
func (r *GormCartRepository) UpdateQuantity(cartID, itemID uint, quantity int) (int64, error) {
	result := r.db.Model(&models.CartItem{}).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Update("quantity", quantity)
	return result.RowsAffected, result.Error
}

// DeleteItem 删除购物车项，返回影响行数
func (r *GormCartRepository) DeleteItem(cartID, itemID uint) (int64, error) {
	result := r.db.Where("id = ? AND cart_id = ?", itemID, cartID).Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}

// ClearItems 清空购物车
func (r *GormCartRepository) ClearItems(cartID uint) error {
	return r.db.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}
