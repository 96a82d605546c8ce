package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dujiao-next/storefront/internal/authz"
	"github.com/dujiao-next/storefront/internal/backend"
	"github.com/dujiao-next/storefront/internal/cache"
	"github.com/dujiao-next/storefront/internal/constants"
	handlershared "github.com/dujiao-next/storefront/internal/http/handlers/shared"
	"github.com/dujiao-next/storefront/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestResolveAllowedOrigin(t *testing.T) {
	got := resolveAllowedOrigin("https://example.com", []string{"*"}, false)
	if got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}

	got = resolveAllowedOrigin("https://example.com", []string{"*"}, true)
	if got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://a.example.com", []string{"https://a.example.com", "https://b.example.com"}, false)
	if got != "https://a.example.com" {
		t.Fatalf("allow-list should return matched origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false)
	if got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(constants.HeaderRequestID, "req-123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if w.Header().Get(constants.HeaderRequestID) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(constants.HeaderRequestID))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-123" {
		t.Fatalf("context request id want req-123 got %s", resp["request_id"])
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w2, req2)
	generated := w2.Header().Get(constants.HeaderRequestID)
	if generated == "" {
		t.Fatalf("generated request id should not be empty")
	}
	if resp := strings.TrimSpace(generated); resp == "" {
		t.Fatalf("generated request id should not be blank")
	}
}

type stubVerifier struct {
	claims *backend.AccessClaims
	user   *models.User
}

func (v stubVerifier) ParseToken(tokenString string) (*backend.AccessClaims, error) {
	if tokenString != "good" || v.claims == nil {
		return nil, backend.ErrInvalidToken
	}
	return v.claims, nil
}

func (v stubVerifier) GetUser(userID string) (*models.User, error) {
	if v.user == nil || v.user.ID != userID {
		return nil, backend.ErrUserNotFound
	}
	return v.user, nil
}

func newStubVerifier(id, role string) stubVerifier {
	claims := &backend.AccessClaims{}
	claims.Subject = id
	return stubVerifier{
		claims: claims,
		user:   &models.User{ID: id, Email: id + "@example.com", Role: role},
	}
}

func TestUserJWTAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_ = cache.InitRedis(nil)

	r := gin.New()
	r.Use(UserJWTAuthMiddleware(newStubVerifier("u-1", constants.RoleCustomer)))
	r.GET("/cart", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(handlershared.ContextUserID), "role": c.GetString(handlershared.ContextRole)})
	})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "ok", header: "Bearer good", status: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/cart", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Fatalf("status want %d got %d body=%s", tc.status, w.Code, w.Body.String())
			}
			if tc.status == http.StatusOK && !strings.Contains(w.Body.String(), `"role":"customer"`) {
				t.Fatalf("expected role in context, got %s", w.Body.String())
			}
			if tc.status == http.StatusUnauthorized && !strings.Contains(w.Body.String(), `"message"`) {
				t.Fatalf("expected message body, got %s", w.Body.String())
			}
		})
	}
}

func TestIdentityAuthMiddlewareUsesAuthErrorShape(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(IdentityAuthMiddleware(newStubVerifier("u-1", constants.RoleCustomer)))
	r.GET("/auth/v1/user", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/v1/user", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status want 401 got %d", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if body["error_code"] != "no_authorization" || body["msg"] == "" {
		t.Fatalf("unexpected auth error body: %v", body)
	}
}

func TestAdminRBACMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open("file:router_admin_rbac?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	authzService, err := authz.NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap roles failed: %v", err)
	}

	build := func(role string) *gin.Engine {
		r := gin.New()
		r.Use(UserJWTAuthMiddleware(newStubVerifier("u-"+role, role)), AdminRBACMiddleware(authzService))
		r.GET("/api/admin/order", func(c *gin.Context) { c.Status(http.StatusOK) })
		r.DELETE("/api/admin/product/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		return r
	}
	do := func(r *gin.Engine, method, path string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer good")
		r.ServeHTTP(w, req)
		return w.Code
	}

	admin := build(constants.RoleAdmin)
	if code := do(admin, http.MethodDelete, "/api/admin/product/3"); code != http.StatusNoContent {
		t.Fatalf("admin delete want 204 got %d", code)
	}
	support := build(constants.RoleSupport)
	if code := do(support, http.MethodGet, "/api/admin/order"); code != http.StatusOK {
		t.Fatalf("support list orders want 200 got %d", code)
	}
	if code := do(support, http.MethodDelete, "/api/admin/product/3"); code != http.StatusForbidden {
		t.Fatalf("support delete want 403 got %d", code)
	}
	customer := build(constants.RoleCustomer)
	if code := do(customer, http.MethodGet, "/api/admin/order"); code != http.StatusForbidden {
		t.Fatalf("customer want 403 got %d", code)
	}
}
