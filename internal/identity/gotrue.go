package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/state"
)

// Provider 身份服务能力
type Provider interface {
	SignUp(ctx context.Context, email, password, username string) (*User, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	Session(ctx context.Context) (*Session, error)
	Subscribe(consumer string, fn func(Event)) func()
}

// CurrentUser 当前登录用户的展示信息
type CurrentUser struct {
	ID       string
	Email    string
	Username string
	Role     string
}

// GoTrueConfig GoTrue 客户端配置
type GoTrueConfig struct {
	URL        string
	AnonKey    string
	HTTPClient *http.Client
	Store      SessionStore
	Now        func() time.Time
}

// GoTrueClient 对接 Supabase GoTrue 兼容接口
type GoTrueClient struct {
	baseURL string
	anonKey string
	http    *http.Client
	store   SessionStore
	events  *Broadcaster
	current *state.Cell[*CurrentUser]
	now     func() time.Time
}

// NewGoTrueClient 创建客户端；未指定存储时使用内存存储
func NewGoTrueClient(cfg GoTrueConfig) *GoTrueClient {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &GoTrueClient{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		anonKey: cfg.AnonKey,
		http:    hc,
		store:   store,
		events:  NewBroadcaster(),
		current: state.New[*CurrentUser](nil, cloneCurrentUser),
		now:     now,
	}
}

func cloneCurrentUser(u *CurrentUser) *CurrentUser {
	if u == nil {
		return nil
	}
	copied := *u
	return &copied
}

// CurrentUser 当前用户（未登录为 nil）
func (c *GoTrueClient) CurrentUser() state.ReadOnly[*CurrentUser] {
	return c.current.ReadOnly()
}

// Subscribe 订阅认证事件，同一 consumer 只保留最后一次订阅
func (c *GoTrueClient) Subscribe(consumer string, fn func(Event)) func() {
	return c.events.Subscribe(consumer, fn)
}

type signUpRequest struct {
	Email    string                 `json:"email"`
	Password string                 `json:"password"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

type passwordGrantRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp 注册，用户名写入用户元数据；服务端直接签发会话时视为已登录
func (c *GoTrueClient) SignUp(ctx context.Context, email, password, username string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrCredentialsEmpty
	}
	req := signUpRequest{Email: email, Password: password}
	if name := strings.TrimSpace(username); name != "" {
		req.Data = map[string]interface{}{"username": name}
	}

	// 需要邮箱确认时响应体是用户对象，否则是完整会话
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodPost, "/auth/v1/signup", "", req, &raw); err != nil {
		return nil, err
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err == nil && session.AccessToken != "" {
		if err := c.establish(ctx, &session); err != nil {
			return nil, err
		}
		user := session.User
		return &user, nil
	}
	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, &AuthError{Code: "response_invalid", Message: err.Error()}
	}
	logger.Infow("identity_sign_up_pending_confirmation", "email", email)
	return &user, nil
}

// SignIn 密码登录
func (c *GoTrueClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrCredentialsEmpty
	}
	var session Session
	if err := c.call(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", passwordGrantRequest{
		Email:    email,
		Password: password,
	}, &session); err != nil {
		return nil, err
	}
	if err := c.establish(ctx, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SignOut 注销；无论远端是否成功都会清除本地会话并发出 signed_out
func (c *GoTrueClient) SignOut(ctx context.Context) error {
	session, err := c.Session(ctx)
	if err != nil {
		logger.Warnw("identity_session_load_failed", "error", err)
	}
	var remoteErr error
	if session != nil {
		remoteErr = c.call(ctx, http.MethodPost, "/auth/v1/logout", session.AccessToken, nil, nil)
		if authErr, ok := IsAuthError(remoteErr); ok && isSessionGone(authErr.StatusCode) {
			remoteErr = nil
		}
	}
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	c.current.Set(nil)
	c.events.Publish(Event{Type: constants.AuthEventSignedOut})
	return remoteErr
}

func isSessionGone(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusNotFound
}

// Session 返回当前有效会话；过期会话视为不存在并被清除
func (c *GoTrueClient) Session(ctx context.Context) (*Session, error) {
	session, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		if c.current.Get() != nil {
			c.current.Set(nil)
		}
		return nil, nil
	}
	if !session.Valid(c.now()) {
		logger.Debugw("identity_session_expired", "email", session.User.Email)
		if err := c.store.Clear(ctx); err != nil {
			logger.Warnw("identity_session_clear_failed", "error", err)
		}
		c.current.Set(nil)
		return nil, nil
	}
	if c.current.Get() == nil {
		c.current.Set(currentUserFrom(session))
	}
	return session, nil
}

// AccessToken 实现 api.TokenSource
func (c *GoTrueClient) AccessToken(ctx context.Context) (string, error) {
	session, err := c.Session(ctx)
	if err != nil || session == nil {
		return "", err
	}
	return session.AccessToken, nil
}

// GetUser 从身份服务读取当前用户
func (c *GoTrueClient) GetUser(ctx context.Context) (*User, error) {
	session, err := c.Session(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNotSignedIn
	}
	var user User
	if err := c.call(ctx, http.MethodGet, "/auth/v1/user", session.AccessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *GoTrueClient) establish(ctx context.Context, session *Session) error {
	session.normalize(c.now())
	if err := c.store.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	c.current.Set(currentUserFrom(session))
	logger.Infow("identity_signed_in", "user_id", session.User.ID, "email", session.User.Email)
	c.events.Publish(Event{Type: constants.AuthEventSignedIn, Session: session})
	return nil
}

func currentUserFrom(session *Session) *CurrentUser {
	u := &CurrentUser{
		ID:       session.User.ID,
		Email:    session.User.Email,
		Username: session.User.Username(),
		Role:     session.User.Role(),
	}
	if u.Role == "" {
		if claims, err := session.Claims(); err == nil {
			u.Role = claims.Role()
		}
	}
	return u
}

func (c *GoTrueClient) call(ctx context.Context, method, path, bearer string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.anonKey != "" {
		req.Header.Set(constants.HeaderAPIKey, c.anonKey)
	}
	if bearer == "" {
		bearer = c.anonKey
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &AuthError{Code: "request_failed", Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &AuthError{StatusCode: resp.StatusCode, Code: "response_unreadable", Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAuthError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &AuthError{StatusCode: resp.StatusCode, Code: "response_invalid", Message: err.Error()}
	}
	return nil
}
