package repository

import (
	"errors"
	"time"

	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	GetByID(id uint) (*models.Order, error)
	GetByIDAndUser(id uint, userID string) (*models.Order, error)
	ListByUser(userID string) ([]models.Order, error)
	ListAdmin(filter OrderListFilter) ([]models.Order, int64, error)
	UpdateStatus(id uint, status string) (int64, error)
	CancelIfPending(id uint) (int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) OrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) OrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Transaction 执行事务
func (r *GormOrderRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

func (r *GormOrderRepository) withItems(query *gorm.DB) *gorm.DB {
	return query.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}

// Create 创建订单与订单项
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Omit("Items").Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	order.Items = items
	return nil
}

// GetByID 根据 ID 获取订单（含下单用户信息）
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.withItems(r.db).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	orders := []models.Order{order}
	if err := r.fillUsers(orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// GetByIDAndUser 获取用户自己的订单
func (r *GormOrderRepository) GetByIDAndUser(id uint, userID string) (*models.Order, error) {
	var order models.Order
	if err := r.withItems(r.db).Where("id = ? AND user_id = ?", id, userID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ListByUser 用户订单列表（新订单在前）
func (r *GormOrderRepository) ListByUser(userID string) ([]models.Order, error) {
	orders := []models.Order{}
	if err := r.withItems(r.db).Where("user_id = ?", userID).Order("order_date DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListAdmin 管理端订单列表，附带下单用户名与邮箱
func (r *GormOrderRepository) ListAdmin(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	query, total, err := countAndPaginate(query, filter.Page, filter.PageSize)
	if err != nil {
		return nil, 0, err
	}

	orders := []models.Order{}
	if err := r.withItems(query).Order("order_date DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	if err := r.fillUsers(orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// fillUsers 批量回填 Username / UserEmail
func (r *GormOrderRepository) fillUsers(orders []models.Order) error {
	ids := make([]string, 0, len(orders))
	seen := make(map[string]struct{}, len(orders))
	for _, order := range orders {
		if order.UserID == nil || *order.UserID == "" {
			continue
		}
		if _, ok := seen[*order.UserID]; ok {
			continue
		}
		seen[*order.UserID] = struct{}{}
		ids = append(ids, *order.UserID)
	}
	if len(ids) == 0 {
		return nil
	}
	users, err := NewUserRepository(r.db).ListByIDs(ids)
	if err != nil {
		return err
	}
	byID := make(map[string]models.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}
	for i := range orders {
		if orders[i].UserID == nil {
			continue
		}
		if user, ok := byID[*orders[i].UserID]; ok {
			orders[i].Username = user.Username
			orders[i].UserEmail = user.Email
		}
	}
	return nil
}

// UpdateStatus 更新订单状态，返回影响行数
func (r *GormOrderRepository) UpdateStatus(id uint, status string) (int64, error) {
	result := r.db.Model(&models.Order{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	})
	return result.RowsAffected, result.Error
}

// CancelIfPending 仅当订单仍为待处理时取消
func (r *GormOrderRepository) CancelIfPending(id uint) (int64, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, constants.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":     constants.OrderStatusCanceled,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}
