package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestErrorCarriesStatusAndRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "req-1")

	NotFound(c, "product not found")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status want 404 got %d", w.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	if body.Message != "product not found" || body.RequestID != "req-1" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestAuthErrorShape(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	AuthError(c, http.StatusBadRequest, "invalid_credentials", "Invalid login credentials")

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	if body["error_code"] != "invalid_credentials" || body["msg"] != "Invalid login credentials" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	err := WrapError(CodeInternal, "failed", base)
	if !errors.Is(err, base) || err.Error() != "failed: boom" {
		t.Fatalf("unexpected app error %v", err)
	}
	authErr := WrapAuthError(CodeBadRequest, "invalid_credentials", "Invalid login credentials", nil)
	if authErr.Error() != "Invalid login credentials (invalid_credentials)" || authErr.Unwrap() != nil {
		t.Fatalf("unexpected auth error %v", authErr)
	}
}
