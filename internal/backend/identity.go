package backend

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dujiao-next/storefront/internal/cache"
	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/identity"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTypeBearer       = "bearer"
	tokenAudience         = "authenticated"
	defaultPasswordMinLen = 6
	defaultExpireHours    = 24
)

// AccessClaims 访问令牌声明，字段与 GoTrue 签发的令牌一致
type AccessClaims struct {
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	AppMetadata  map[string]interface{} `json:"app_metadata"`
	Role         string                 `json:"role"`
	jwt.RegisteredClaims
}

// AppRole 返回 app_metadata.role
func (c *AccessClaims) AppRole() string {
	if c == nil || c.AppMetadata == nil {
		return ""
	}
	role, _ := c.AppMetadata["role"].(string)
	return role
}

// IdentityService GoTrue 兼容的账号服务
type IdentityService struct {
	userRepo       repository.UserRepository
	secret         []byte
	expire         time.Duration
	passwordMinLen int
	now            func() time.Time
}

// NewIdentityService 创建账号服务
func NewIdentityService(userRepo repository.UserRepository, jwtCfg config.JWTConfig, passwordMinLen int) *IdentityService {
	hours := jwtCfg.ExpireHours
	if hours <= 0 {
		hours = defaultExpireHours
	}
	if passwordMinLen <= 0 {
		passwordMinLen = defaultPasswordMinLen
	}
	return &IdentityService{
		userRepo:       userRepo,
		secret:         []byte(jwtCfg.SecretKey),
		expire:         time.Duration(hours) * time.Hour,
		passwordMinLen: passwordMinLen,
		now:            time.Now,
	}
}

// PasswordMinLen 密码最小长度
func (s *IdentityService) PasswordMinLen() int {
	return s.passwordMinLen
}

// SignUp 注册并直接签发会话（无需邮箱确认）
func (s *IdentityService) SignUp(email, password, username string) (*identity.Session, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(password) < s.passwordMinLen {
		return nil, ErrPasswordTooShort
	}
	existing, err := s.userRepo.GetByEmail(normalized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := s.now()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        normalized,
		Username:     strings.TrimSpace(username),
		PasswordHash: string(hashed),
		Role:         constants.RoleCustomer,
		LastSignInAt: &now,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}
	logger.Infow("identity_user_signed_up", "user_id", user.ID, "email", user.Email)
	return s.IssueSession(user)
}

// SignIn 邮箱密码登录
func (s *IdentityService) SignIn(email, password string) (*identity.Session, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByEmail(normalized)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	now := s.now()
	if err := s.userRepo.TouchLastSignIn(user.ID, now); err != nil {
		logger.Warnw("identity_touch_last_sign_in_failed", "user_id", user.ID, "error", err)
	} else {
		user.LastSignInAt = &now
	}
	return s.IssueSession(user)
}

// SignOut 清除鉴权快照；令牌本身无状态，到期自然失效
func (s *IdentityService) SignOut(ctx context.Context, userID string) error {
	if err := cache.DelUserAuthState(ctx, userID); err != nil {
		logger.Warnw("identity_sign_out_cache_clear_failed", "user_id", userID, "error", err)
	}
	return nil
}

// IssueSession 为用户签发 HS256 访问令牌
func (s *IdentityService) IssueSession(user *models.User) (*identity.Session, error) {
	if user == nil {
		return nil, ErrUserNotFound
	}
	now := s.now()
	expiresAt := now.Add(s.expire)
	view := UserView(user)
	claims := AccessClaims{
		Email:        user.Email,
		UserMetadata: view.UserMetadata,
		AppMetadata:  view.AppMetadata,
		Role:         tokenAudience,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &identity.Session{
		AccessToken: signed,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int64(s.expire / time.Second),
		ExpiresAt:   expiresAt.Unix(),
		User:        view,
	}, nil
}

// ParseToken 校验签名与有效期并返回声明
func (s *IdentityService) ParseToken(tokenString string) (*AccessClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	claims := &AccessClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GetUser 获取用户
func (s *IdentityService) GetUser(userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UserView 转换为 GoTrue 用户结构
func UserView(user *models.User) identity.User {
	createdAt := user.CreatedAt
	identityData := map[string]interface{}{
		"sub":   user.ID,
		"email": user.Email,
	}
	userMetadata := map[string]interface{}{}
	if user.Username != "" {
		identityData["username"] = user.Username
		userMetadata["username"] = user.Username
	}
	return identity.User{
		ID:           user.ID,
		Email:        user.Email,
		UserMetadata: userMetadata,
		AppMetadata: map[string]interface{}{
			"provider": "email",
			"role":     user.Role,
		},
		Identities: []identity.UserIdentity{{
			ID:           user.ID,
			Provider:     "email",
			IdentityData: identityData,
		}},
		CreatedAt:    &createdAt,
		LastSignInAt: user.LastSignInAt,
	}
}

func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", ErrInvalidEmail
	}
	return normalized, nil
}

// IsAuthFailure 判断是否为认证失败（而非服务端错误）
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrInvalidToken)
}
