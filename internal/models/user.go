package models

import "time"

// User 身份用户表（参考后端的 GoTrue 兼容认证使用）
type User struct {
	ID           string     `gorm:"type:varchar(64);primarykey" json:"id"`                    // 用户ID（uuid）
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`      // 邮箱
	Username     string     `gorm:"type:varchar(64);default:''" json:"username"`              // 用户名
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`                      // 密码哈希（不返回）
	Role         string     `gorm:"type:varchar(32);not null;default:'customer'" json:"role"` // 角色
	LastSignInAt *time.Time `json:"lastSignInAt,omitempty"`                                   // 最后登录时间
	CreatedAt    time.Time  `gorm:"index" json:"createdAt"`                                   // 创建时间
	UpdatedAt    time.Time  `json:"updatedAt"`                                                // 更新时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

