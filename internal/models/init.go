package models

import (
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/logger"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	defaultAdminEmail    = "admin@example.com"
	defaultAdminPassword = "admin123"
)

// InitDefaultAdmin 初始化默认管理员账号（已存在管理员时只确保其角色）
func InitDefaultAdmin(db *gorm.DB, email, password string) error {
	if db == nil {
		db = DB
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email = defaultAdminEmail
	}

	var existing User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		if existing.Role != constants.RoleAdmin {
			if err := db.Model(&existing).Update("role", constants.RoleAdmin).Error; err != nil {
				logger.Warnw("ensure_default_admin_role_failed", "email", email, "error", err)
			}
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if password == "" {
		password = defaultAdminPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now()
	admin := User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     "admin",
		PasswordHash: string(hash),
		Role:         constants.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	if password == defaultAdminPassword {
		logger.Warnw("default_admin_created_with_default_password", "email", email, "password", password)
		logger.Warnw("default_admin_password_change_required", "email", email)
	} else {
		logger.Warnw("default_admin_created", "email", email, "password_hidden", true)
	}
	return nil
}
