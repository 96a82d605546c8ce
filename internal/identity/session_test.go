package identity

import (
	"context"
	"testing"
	"time"
)

func TestUsernameResolutionOrder(t *testing.T) {
	cases := []struct {
		name string
		user User
		want string
	}{
		{
			name: "identity data first",
			user: User{
				Email:        "a@example.com",
				UserMetadata: map[string]interface{}{"username": "meta"},
				Identities:   []UserIdentity{{IdentityData: map[string]interface{}{"username": "ident"}}},
			},
			want: "ident",
		},
		{
			name: "metadata fallback",
			user: User{Email: "a@example.com", UserMetadata: map[string]interface{}{"username": "meta"}},
			want: "meta",
		},
		{
			name: "blank identity username skipped",
			user: User{
				Email:      "a@example.com",
				Identities: []UserIdentity{{IdentityData: map[string]interface{}{"username": "  "}}},
			},
			want: "a@example.com",
		},
		{
			name: "non-string username ignored",
			user: User{Email: "a@example.com", UserMetadata: map[string]interface{}{"username": 42}},
			want: "a@example.com",
		},
	}
	for _, tc := range cases {
		if got := tc.user.Username(); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestSessionExpiryFallsBackToExpiresAt(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := &Session{AccessToken: "opaque-token", ExpiresAt: now.Unix() + 10}
	if s.Expired(now) {
		t.Fatalf("session should still be valid")
	}
	if !s.Expired(now.Add(10 * time.Second)) {
		t.Fatalf("session should be expired at expires_at")
	}

	noExpiry := &Session{AccessToken: "opaque-token"}
	if !noExpiry.Valid(now) {
		t.Fatalf("session without expiry information should be valid")
	}
	var nilSession *Session
	if nilSession.Valid(now) {
		t.Fatalf("nil session must be invalid")
	}
}

func TestParseClaimsRole(t *testing.T) {
	token := signToken(t, time.Now().Add(time.Hour), "admin")
	claims, err := ParseClaims(token)
	if err != nil {
		t.Fatalf("parse claims failed: %v", err)
	}
	if claims.Role() != "admin" || claims.Subject != "user-1" || claims.Email != "ann@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if _, err := ParseClaims("not-a-jwt"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestParseAuthErrorFormats(t *testing.T) {
	gotrue := parseAuthError(422, []byte(`{"code":422,"error_code":"weak_password","msg":"Password should be at least 6 characters"}`))
	if gotrue.Code != "weak_password" || gotrue.Message != "Password should be at least 6 characters" {
		t.Fatalf("unexpected gotrue error: %+v", gotrue)
	}
	plain := parseAuthError(500, []byte("boom"))
	if plain.Message != "boom" || plain.StatusCode != 500 {
		t.Fatalf("unexpected plain error: %+v", plain)
	}
	codeOnly := parseAuthError(400, []byte(`{"error":"invalid_request"}`))
	if codeOnly.Message != "invalid_request" {
		t.Fatalf("code should double as message: %+v", codeOnly)
	}
}

func TestMemoryStoreCopies(t *testing.T) {
	store := NewMemoryStore()
	in := &Session{AccessToken: "a"}
	_ = store.Save(context.Background(), in)
	in.AccessToken = "mutated"

	out, _ := store.Load(context.Background())
	if out.AccessToken != "a" {
		t.Fatalf("memory store shares the caller's session")
	}
	_ = store.Clear(context.Background())
	if out, _ := store.Load(context.Background()); out != nil {
		t.Fatalf("clear failed")
	}
}

func TestFileStoreRoundTripAndClear(t *testing.T) {
	store := NewFileStore(t.TempDir() + "/s.json")
	if s, err := store.Load(context.Background()); s != nil || err != nil {
		t.Fatalf("missing file should load as nil: %v %v", s, err)
	}
	if err := store.Save(context.Background(), &Session{AccessToken: "tok", User: User{Email: "a@example.com"}}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	s, err := store.Load(context.Background())
	if err != nil || s.AccessToken != "tok" || s.User.Email != "a@example.com" {
		t.Fatalf("load failed: %+v %v", s, err)
	}
	if err := store.Clear(context.Background()); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if err := store.Clear(context.Background()); err != nil {
		t.Fatalf("second clear should be a no-op: %v", err)
	}
}

func TestBroadcasterOneSubscriptionPerConsumer(t *testing.T) {
	b := NewBroadcaster()
	var first, second, other int
	unsubscribeFirst := b.Subscribe("view", func(Event) { first++ })
	b.Subscribe("view", func(Event) { second++ })
	b.Subscribe("other", func(Event) { other++ })

	if b.Subscribers() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", b.Subscribers())
	}
	b.Publish(Event{Type: "signed_in"})
	if first != 0 || second != 1 || other != 1 {
		t.Fatalf("unexpected counts: first=%d second=%d other=%d", first, second, other)
	}

	unsubscribeFirst()
	if b.Subscribers() != 2 {
		t.Fatalf("stale unsubscribe must not remove the replacement")
	}
}
