package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/dujiao-next/storefront/internal/app"
	"github.com/dujiao-next/storefront/internal/authz"
	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/repository"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiCyan  = "\033[36m"
)

// roleAssignments 收集可重复的 -assign-role email=role 参数
type roleAssignments []string

func (r *roleAssignments) String() string {
	return strings.Join(*r, ",")
}

func (r *roleAssignments) Set(value string) error {
	if _, _, err := splitAssignment(value); err != nil {
		return err
	}
	*r = append(*r, value)
	return nil
}

// policyGrants 收集可重复的 -grant role=ACTION:/object 参数
type policyGrants []string

func (g *policyGrants) String() string {
	return strings.Join(*g, ",")
}

func (g *policyGrants) Set(value string) error {
	if _, _, _, err := splitGrant(value); err != nil {
		return err
	}
	*g = append(*g, value)
	return nil
}

// splitGrant 解析 role=ACTION:/object；对象路径本身可以包含冒号（如 :id）
func splitGrant(value string) (string, string, string, error) {
	role, rule, ok := strings.Cut(value, "=")
	role = strings.TrimSpace(role)
	action, object, hasAction := strings.Cut(strings.TrimSpace(rule), ":")
	action = strings.ToUpper(strings.TrimSpace(action))
	object = strings.TrimSpace(object)
	if !ok || !hasAction || role == "" || action == "" || !strings.HasPrefix(object, "/") {
		return "", "", "", fmt.Errorf("expected role=ACTION:/object, got %q", value)
	}
	return role, object, action, nil
}

func splitAssignment(value string) (string, string, error) {
	email, role, ok := strings.Cut(value, "=")
	email = strings.ToLower(strings.TrimSpace(email))
	role = strings.TrimSpace(role)
	if !ok || email == "" || role == "" {
		return "", "", fmt.Errorf("expected email=role, got %q", value)
	}
	return email, role, nil
}

func main() {
	var mode string
	var assignments roleAssignments
	var grants policyGrants
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Var(&assignments, "assign-role", "为用户追加 RBAC 角色，格式 email=role，可重复")
	flag.Var(&grants, "grant", "为角色授予接口权限，格式 role=GET:/admin/order/:id，可重复")
	flag.Parse()

	printStartupBanner()

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	log := logger.S()

	if isWeakSecret(cfg.JWT.SecretKey) {
		if cfg.Server.Mode == "release" {
			log.Fatalw("jwt_secret_weak", "hint", "configure a strong random jwt.secret in production")
		}
		log.Warnw("jwt_secret_weak", "hint", "replace jwt.secret before production")
	}

	// 初始化数据库
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		log.Fatalw("database_init_failed", "error", err)
	}

	// 自动迁移数据库表
	if err := models.AutoMigrate(nil); err != nil {
		log.Fatalw("database_migrate_failed", "error", err)
	}

	// 初始化默认管理员账号
	if cfg.Server.Mode == "release" && cfg.Admin.Password == "" {
		log.Warnw("default_admin_skipped", "reason", "admin.password is empty in release mode")
	} else if err := models.InitDefaultAdmin(nil, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		log.Warnw("default_admin_init_failed", "error", err)
	}

	if len(assignments) > 0 || len(grants) > 0 {
		if err := applyAuthz(models.DB, grants, assignments); err != nil {
			log.Fatalw("assign_role_failed", "error", err)
		}
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  log,
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		log.Fatalw("app_run_failed", "error", err)
	}
}

// applyAuthz 先授予角色策略，再将角色追加到用户已有的 RBAC 角色上
func applyAuthz(db *gorm.DB, grants, assignments []string) error {
	authzService, err := authz.NewService(db)
	if err != nil {
		return err
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		return err
	}
	for _, raw := range grants {
		role, object, action, err := splitGrant(raw)
		if err != nil {
			return err
		}
		if err := authzService.GrantRolePolicy(role, object, action); err != nil {
			return err
		}
		logger.Infow("grant_policy_done", "role", role, "object", authz.NormalizeObject(object), "action", action)
	}
	users := repository.NewUserRepository(db)
	for _, raw := range assignments {
		email, role, err := splitAssignment(raw)
		if err != nil {
			return err
		}
		user, err := users.GetByEmail(email)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("user %s not found", email)
		}
		roles, err := authzService.GetUserRoles(user.ID)
		if err != nil {
			return err
		}
		if err := authzService.SetUserRoles(user.ID, append(roles, role)); err != nil {
			return err
		}
		policies, err := authzService.GetUserPolicies(user.ID)
		if err != nil {
			return err
		}
		logger.Infow("assign_role_done", "email", email, "role", role, "policies", len(policies))
	}
	if known, err := authzService.ListRoles(); err == nil {
		logger.Debugw("assign_role_known_roles", "roles", known)
	}
	return nil
}

func printStartupBanner() {
	fmt.Println(ansiCyan + ansiBold + "Storefront reference backend" + ansiReset)
	fmt.Println(ansiDim + "  /auth/v1  identity (GoTrue compatible)" + ansiReset)
	fmt.Println(ansiDim + "  /api      catalog, cart, orders, admin" + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	if strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key") {
		return true
	}
	return false
}
