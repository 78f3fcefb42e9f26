package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/security/auth"
	"github.com/yourorg/storefront/internal/security/ratelimit"
)

type userContextKey struct{}

// AuthGate resolves a request's bearer token into an authenticated user.
// On success the *domain.User is attached to the request context; any
// failure — missing header, malformed or expired token, unknown subject —
// is answered with the same 401 so the response never leaks which check
// tripped. The gate performs exactly one user-store lookup and mutates
// nothing.
type AuthGate struct {
	tokenManager *auth.TokenManager
	userRepo     domain.UserRepository
	logger       *slog.Logger
}

// NewAuthGate creates an auth gate backed by the given token manager and user store
func NewAuthGate(tm *auth.TokenManager, userRepo domain.UserRepository, log *slog.Logger) *AuthGate {
	if log == nil {
		log = slog.Default()
	}
	return &AuthGate{tokenManager: tm, userRepo: userRepo, logger: log}
}

// Authenticate resolves the Authorization header to a user without writing
// a response. Handlers that take credentials outside the header (the
// websocket feed) reuse it with the token they extracted themselves.
func (g *AuthGate) Authenticate(tokenString string) (*domain.User, error) {
	subject, err := g.tokenManager.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	return g.userRepo.GetByUsername(subject)
}

// Require wraps a handler so it only runs for authenticated requests
func (g *AuthGate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}

		tokenString, err := auth.ExtractToken(authHeader)
		if err != nil {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}

		user, err := g.Authenticate(tokenString)
		if err != nil {
			g.logger.Debug("authentication rejected",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the authenticated user attached by the gate
func UserFromContext(ctx context.Context) *domain.User {
	if u := ctx.Value(userContextKey{}); u != nil {
		return u.(*domain.User)
	}
	return nil
}

// RateLimit throttles authenticated mutations per username. It runs after
// the gate, so an empty key only happens on misconfigured routes and is
// allowed through.
func RateLimit(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ""
			if user := UserFromContext(r.Context()); user != nil {
				key = user.Username
			}

			if !limiter.Allow(key) {
				log.Warn("rate limit exceeded",
					slog.String("username", key),
					slog.String("path", r.URL.Path),
				)
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
