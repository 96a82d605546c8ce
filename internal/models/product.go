package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Product 商品表
type Product struct {
	ID          uint           `gorm:"primarykey" json:"id"`                               // 主键
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`             // 商品名称
	Description *string        `gorm:"type:text" json:"description"`                       // 商品描述（可空）
	Price       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 价格
	ImageURL    *string        `gorm:"type:varchar(1024)" json:"imageUrl"`                 // 图片地址（可空）
	CreatedAt   time.Time      `gorm:"index" json:"createdAt"`                             // 创建时间
	UpdatedAt   time.Time      `json:"updatedAt"`                                          // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// Summary 生成只读商品摘要
func (p *Product) Summary() *ProductSummary {
	if p == nil {
		return nil
	}
	return &ProductSummary{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Price:       p.Price,
	}
}

// ProductInput 商品创建/更新请求体
type ProductInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Price       Money   `json:"price"`
	ImageURL    *string `json:"imageUrl,omitempty"`
}

// Normalize 去除首尾空白，空字符串视为未填写
func (in ProductInput) Normalize() ProductInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = trimOptional(in.Description)
	in.ImageURL = trimOptional(in.ImageURL)
	return in
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
