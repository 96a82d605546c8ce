package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dujiao-next/storefront/internal/constants"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, exp time.Time, role string) string {
	t.Helper()
	claims := Claims{
		Email:       "ann@example.com",
		AppMetadata: map[string]interface{}{"role": role},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token failed: %v", err)
	}
	return token
}

type fakeGoTrue struct {
	server      *httptest.Server
	token       string
	autoConfirm bool
	logouts     int32
	lastSignUp  map[string]interface{}
	lastAPIKey  string
}

func newFakeGoTrue(t *testing.T, token string) *fakeGoTrue {
	f := &fakeGoTrue{token: token, autoConfirm: true}
	mux := http.NewServeMux()
	user := map[string]interface{}{
		"id":            "user-1",
		"email":         "ann@example.com",
		"user_metadata": map[string]interface{}{"username": "meta-ann"},
		"identities": []map[string]interface{}{
			{"id": "i1", "provider": "email", "identity_data": map[string]interface{}{"username": "ann"}},
		},
	}
	mux.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		f.lastAPIKey = r.Header.Get("apikey")
		_ = json.NewDecoder(r.Body).Decode(&f.lastSignUp)
		if !f.autoConfirm {
			_ = json.NewEncoder(w).Encode(user)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": f.token, "token_type": "bearer", "expires_in": 3600, "user": user,
		})
	})
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected grant type: %s", r.URL.RawQuery)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "pw" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": f.token, "token_type": "bearer", "expires_in": 3600, "user": user,
		})
	})
	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.logouts, 1)
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(user)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func TestSignInStoresSessionAndPublishes(t *testing.T) {
	fake := newFakeGoTrue(t, signToken(t, time.Now().Add(time.Hour), constants.RoleAdmin))
	client := NewGoTrueClient(GoTrueConfig{URL: fake.server.URL, AnonKey: "anon"})

	var events []string
	client.Subscribe("test", func(evt Event) { events = append(events, evt.Type) })

	session, err := client.SignIn(context.Background(), "ann@example.com", "pw")
	if err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	if session.ExpiresAt == 0 {
		t.Fatalf("expires_at should be derived from expires_in")
	}
	token, err := client.AccessToken(context.Background())
	if err != nil || token != fake.token {
		t.Fatalf("access token mismatch: %q %v", token, err)
	}
	current := client.CurrentUser().Get()
	if current == nil || current.Username != "ann" || current.Email != "ann@example.com" {
		t.Fatalf("unexpected current user: %+v", current)
	}
	if current.Role != constants.RoleAdmin {
		t.Fatalf("role should come from token claims, got %q", current.Role)
	}
	if len(events) != 1 || events[0] != constants.AuthEventSignedIn {
		t.Fatalf("unexpected events: %v", events)
	}
}

func TestSignInInvalidCredentials(t *testing.T) {
	fake := newFakeGoTrue(t, signToken(t, time.Now().Add(time.Hour), ""))
	client := NewGoTrueClient(GoTrueConfig{URL: fake.server.URL})

	_, err := client.SignIn(context.Background(), "ann@example.com", "wrong")
	authErr, ok := IsAuthError(err)
	if !ok {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.StatusCode != http.StatusBadRequest || authErr.Code != "invalid_grant" || authErr.Message != "Invalid login credentials" {
		t.Fatalf("unexpected auth error: %+v", authErr)
	}
	if session, _ := client.Session(context.Background()); session != nil {
		t.Fatalf("failed sign in must not leave a session")
	}
}

func TestSignInRequiresCredentials(t *testing.T) {
	client := NewGoTrueClient(GoTrueConfig{URL: "http://127.0.0.1:1"})
	if _, err := client.SignIn(context.Background(), " ", "pw"); !errors.Is(err, ErrCredentialsEmpty) {
		t.Fatalf("expected ErrCredentialsEmpty, got %v", err)
	}
}

func TestSignUpSendsUsernameMetadata(t *testing.T) {
	fake := newFakeGoTrue(t, signToken(t, time.Now().Add(time.Hour), ""))
	client := NewGoTrueClient(GoTrueConfig{URL: fake.server.URL, AnonKey: "anon"})

	user, err := client.SignUp(context.Background(), "ann@example.com", "pw", "ann")
	if err != nil {
		t.Fatalf("sign up failed: %v", err)
	}
	data, _ := fake.lastSignUp["data"].(map[string]interface{})
	if data["username"] != "ann" {
		t.Fatalf("username metadata missing: %v", fake.lastSignUp)
	}
	if fake.lastAPIKey != "anon" {
		t.Fatalf("apikey header missing")
	}
	if user.ID != "user-1" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if session, _ := client.Session(context.Background()); session == nil {
		t.Fatalf("auto-confirmed sign up should establish a session")
	}
}

func TestSignUpPendingConfirmation(t *testing.T) {
	fake := newFakeGoTrue(t, signToken(t, time.Now().Add(time.Hour), ""))
	fake.autoConfirm = false
	client := NewGoTrueClient(GoTrueConfig{URL: fake.server.URL})

	user, err := client.SignUp(context.Background(), "ann@example.com", "pw", "ann")
	if err != nil {
		t.Fatalf("sign up failed: %v", err)
	}
	if user.Email != "ann@example.com" || user.Username() != "ann" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if session, _ := client.Session(context.Background()); session != nil {
		t.Fatalf("unconfirmed sign up must not create a session")
	}
}

func TestSignOutClearsSessionAndPublishes(t *testing.T) {
	fake := newFakeGoTrue(t, signToken(t, time.Now().Add(time.Hour), ""))
	client := NewGoTrueClient(GoTrueConfig{URL: fake.server.URL})
	if _, err := client.SignIn(context.Background(), "ann@example.com", "pw"); err != nil {
		t.Fatalf("sign in failed: %v", err)
	}

	var last Event
	client.Subscribe("test", func(evt Event) { last = evt })
	if err := client.SignOut(context.Background()); err != nil {
		t.Fatalf("sign out failed: %v", err)
	}
	if last.Type != constants.AuthEventSignedOut || last.Session != nil {
		t.Fatalf("unexpected event: %+v", last)
	}
	if atomic.LoadInt32(&fake.logouts) != 1 {
		t.Fatalf("remote logout not called")
	}
	if session, _ := client.Session(context.Background()); session != nil {
		t.Fatalf("session should be cleared")
	}
	if client.CurrentUser().Get() != nil {
		t.Fatalf("current user should be cleared")
	}
}

func TestExpiredSessionIsAbsent(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Save(context.Background(), &Session{
		AccessToken: signToken(t, time.Now().Add(-time.Minute), ""),
		User:        User{ID: "user-1", Email: "ann@example.com"},
	})
	client := NewGoTrueClient(GoTrueConfig{URL: "http://127.0.0.1:1", Store: store})

	session, err := client.Session(context.Background())
	if err != nil || session != nil {
		t.Fatalf("expired session should be absent: %+v %v", session, err)
	}
	if loaded, _ := store.Load(context.Background()); loaded != nil {
		t.Fatalf("expired session should be removed from the store")
	}
	token, err := client.AccessToken(context.Background())
	if err != nil || token != "" {
		t.Fatalf("no token expected: %q %v", token, err)
	}
}

func TestRestoredSessionPopulatesCurrentUser(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json"))
	_ = store.Save(context.Background(), &Session{
		AccessToken: signToken(t, time.Now().Add(time.Hour), constants.RoleSupport),
		User:        User{ID: "user-1", Email: "ann@example.com", UserMetadata: map[string]interface{}{"username": "annie"}},
	})
	client := NewGoTrueClient(GoTrueConfig{URL: "http://127.0.0.1:1", Store: store})

	session, err := client.Session(context.Background())
	if err != nil || session == nil {
		t.Fatalf("restored session missing: %v", err)
	}
	current := client.CurrentUser().Get()
	if current == nil || current.Username != "annie" || current.Role != constants.RoleSupport {
		t.Fatalf("unexpected current user: %+v", current)
	}
}

func TestGetUser(t *testing.T) {
	fake := newFakeGoTrue(t, signToken(t, time.Now().Add(time.Hour), ""))
	client := NewGoTrueClient(GoTrueConfig{URL: fake.server.URL})
	if _, err := client.GetUser(context.Background()); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
	if _, err := client.SignIn(context.Background(), "ann@example.com", "pw"); err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	user, err := client.GetUser(context.Background())
	if err != nil || user.ID != "user-1" {
		t.Fatalf("get user failed: %+v %v", user, err)
	}
}
