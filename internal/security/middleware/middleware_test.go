package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/security/auth"
	"github.com/yourorg/storefront/internal/security/ratelimit"
)

type stubUserRepo struct {
	users map[string]*domain.User
}

func (s *stubUserRepo) Create(*domain.User) error { return nil }
func (s *stubUserRepo) Update(*domain.User) error { return nil }
func (s *stubUserRepo) GetByID(int64) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}
func (s *stubUserRepo) GetByEmail(string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}
func (s *stubUserRepo) GetByUsername(username string) (*domain.User, error) {
	if u, ok := s.users[username]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func newTestGate(ttl time.Duration) (*AuthGate, *auth.TokenManager) {
	tm := auth.NewTokenManager("test-secret", "storefront-test", ttl)
	repo := &stubUserRepo{users: map[string]*domain.User{
		"alice": {ID: 1, Username: "alice", Email: "alice@example.com"},
	}}
	return NewAuthGate(tm, repo, nil), tm
}

func TestRequireAttachesUser(t *testing.T) {
	gate, tm := newTestGate(time.Minute)

	var seen *domain.User
	handler := gate.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
	}))

	token, err := tm.Issue("alice")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen == nil || seen.Username != "alice" {
		t.Fatalf("expected alice in context, got %+v", seen)
	}
}

func TestRequireRejectsUniformly(t *testing.T) {
	gate, tm := newTestGate(time.Minute)
	handler := gate.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	unknown, _ := tm.Issue("nobody")
	expiredTM := auth.NewTokenManager("test-secret", "storefront-test", -time.Minute)
	expired, _ := expiredTM.Issue("alice")

	headers := map[string]string{
		"missing header":  "",
		"malformed":       "Bearer not-a-token",
		"wrong scheme":    "Basic abc",
		"unknown subject": "Bearer " + unknown,
		"expired":         "Bearer " + expired,
	}
	for name, header := range headers {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewLimiter(2, time.Minute)
	defer limiter.Stop()

	gate, tm := newTestGate(time.Minute)
	limited := RateLimit(limiter, slog.Default())

	handler := gate.Require(limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	token, _ := tm.Issue("alice")
	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if do() != http.StatusOK || do() != http.StatusOK {
		t.Fatal("first two requests should pass")
	}
	if do() != http.StatusTooManyRequests {
		t.Fatal("third request should be throttled")
	}
}
