package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rumbify/rumbify/internal/api/apierr"
	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/services/session"
)

type contextKey string

const guardContextKey contextKey = "guard"

// Auth creates authentication middleware.
// Requests without a live session are rejected with 401.
func Auth(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			g := sessions.Load(r.Context(), token)
			if !g.IsAuthenticated() {
				apierr.WriteError(w, model.ErrSessionNotFound)
				return
			}

			ctx := context.WithValue(r.Context(), guardContextKey, g)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken extracts the session token from the request
func extractToken(r *http.Request) string {
	// Check Authorization header first
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	// Fall back to cookie
	cookie, err := r.Cookie("session")
	if err == nil {
		return cookie.Value
	}

	return ""
}

// GetGuard returns the caller's role state, anonymous when Auth did not run
func GetGuard(ctx context.Context) *session.Guard {
	g, ok := ctx.Value(guardContextKey).(*session.Guard)
	if !ok || g == nil {
		return session.Anonymous()
	}
	return g
}

// MustGetUser returns the authenticated user or panics
func MustGetUser(ctx context.Context) *model.User {
	user := GetGuard(ctx).User()
	if user == nil {
		panic("no user in context - auth middleware not applied?")
	}
	return user
}

// RequireAdmin rejects callers who are not administrators
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetGuard(r.Context()).IsAdmin() {
			apierr.WriteError(w, model.ErrAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}
