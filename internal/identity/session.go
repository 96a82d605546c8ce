package identity

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User 身份服务返回的用户
type User struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	AppMetadata  map[string]interface{} `json:"app_metadata,omitempty"`
	Identities   []UserIdentity         `json:"identities,omitempty"`
	CreatedAt    *time.Time             `json:"created_at,omitempty"`
	LastSignInAt *time.Time             `json:"last_sign_in_at,omitempty"`
}

// UserIdentity 第三方身份信息
type UserIdentity struct {
	ID           string                 `json:"id"`
	Provider     string                 `json:"provider"`
	IdentityData map[string]interface{} `json:"identity_data,omitempty"`
}

// Username 依次取 identities[0].identity_data.username、user_metadata.username、email
func (u *User) Username() string {
	if u == nil {
		return ""
	}
	if len(u.Identities) > 0 {
		if name := stringField(u.Identities[0].IdentityData, "username"); name != "" {
			return name
		}
	}
	if name := stringField(u.UserMetadata, "username"); name != "" {
		return name
	}
	return u.Email
}

// Role 返回 app_metadata.role
func (u *User) Role() string {
	if u == nil {
		return ""
	}
	return stringField(u.AppMetadata, "role")
}

// Session 登录会话
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Claims 访问令牌中的声明
type Claims struct {
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	AppMetadata  map[string]interface{} `json:"app_metadata,omitempty"`
	jwt.RegisteredClaims
}

// Role 返回 app_metadata.role，缺省为空
func (c *Claims) Role() string {
	if c == nil {
		return ""
	}
	return stringField(c.AppMetadata, "role")
}

// ParseClaims 解析令牌声明但不校验签名（签名由后端校验）
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Claims 解析会话访问令牌
func (s *Session) Claims() (*Claims, error) {
	return ParseClaims(s.AccessToken)
}

// ExpiresAtTime 优先使用令牌 exp，其次使用 expires_at；均缺失时返回零值
func (s *Session) ExpiresAtTime() time.Time {
	if s == nil {
		return time.Time{}
	}
	if claims, err := s.Claims(); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	return time.Time{}
}

// Expired 判断会话在 now 时是否已过期；无过期信息的会话视为有效
func (s *Session) Expired(now time.Time) bool {
	exp := s.ExpiresAtTime()
	return !exp.IsZero() && !now.Before(exp)
}

// Valid 会话存在、带令牌且未过期
func (s *Session) Valid(now time.Time) bool {
	return s != nil && strings.TrimSpace(s.AccessToken) != "" && !s.Expired(now)
}

// normalize 补齐 expires_at
func (s *Session) normalize(now time.Time) {
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = now.Unix() + s.ExpiresIn
	}
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	v, ok := m[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}
