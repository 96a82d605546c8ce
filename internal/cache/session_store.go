package cache

import (
	"context"
	"time"

	"github.com/dujiao-next/storefront/internal/identity"
)

// SessionStore 基于 Redis 的会话存储，键在令牌过期时自动失效
type SessionStore struct {
	key string
	now func() time.Time
}

// NewSessionStore 创建 Redis 会话存储
func NewSessionStore(key string) *SessionStore {
	if key == "" {
		key = "session:default"
	}
	return &SessionStore{key: key, now: time.Now}
}

// Key 返回带前缀的完整键
func (s *SessionStore) Key() string {
	return buildKey(s.key)
}

func (s *SessionStore) Load(ctx context.Context) (*identity.Session, error) {
	if !Enabled() {
		return nil, ErrDisabled
	}
	var session identity.Session
	hit, err := GetJSON(ctx, s.key, &session)
	if err != nil || !hit {
		return nil, err
	}
	return &session, nil
}

func (s *SessionStore) Save(ctx context.Context, session *identity.Session) error {
	if !Enabled() {
		return ErrDisabled
	}
	if session == nil {
		return s.Clear(ctx)
	}
	return SetJSON(ctx, s.key, session, sessionTTL(session, s.now()))
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if !Enabled() {
		return ErrDisabled
	}
	return Del(ctx, s.key)
}

// sessionTTL 无过期信息时返回 0（永不过期）
func sessionTTL(session *identity.Session, now time.Time) time.Duration {
	exp := session.ExpiresAtTime()
	if exp.IsZero() {
		return 0
	}
	ttl := exp.Sub(now)
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}
