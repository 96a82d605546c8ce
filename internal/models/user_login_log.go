package models

import "time"

// UserLoginLog 用户登录日志
// 说明：记录 /auth/v1/token 的每次密码登录尝试，供管理端审计。
type UserLoginLog struct {
	ID         uint      `gorm:"primarykey" json:"id"`                    // 主键
	UserID     string    `gorm:"type:varchar(36);index" json:"userId"`    // 用户ID（失败时可为空）
	Email      string    `gorm:"index;not null" json:"email"`             // 登录尝试邮箱
	Status     string    `gorm:"index;not null" json:"status"`            // 登录结果（success/failed）
	FailReason string    `gorm:"index" json:"failReason,omitempty"`       // 失败原因枚举
	ClientIP   string    `gorm:"type:varchar(64);index" json:"clientIp"`  // 客户端IP
	UserAgent  string    `gorm:"type:text" json:"userAgent"`              // 客户端UA
	RequestID  string    `gorm:"type:varchar(64);index" json:"requestId"` // 请求追踪ID
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`                  // 记录时间
}

// TableName 指定表名
func (UserLoginLog) TableName() string {
	return "user_login_logs"
}
