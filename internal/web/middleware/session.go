package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rumbify/rumbify/internal/services/session"
)

type contextKey string

const (
	// SessionCookieName carries the session token
	SessionCookieName = "session"

	guardContextKey contextKey = "guard"
)

// GetGuard retrieves the role state from the request context.
// Returns an anonymous guard if the Session middleware did not run.
func GetGuard(ctx context.Context) *session.Guard {
	g, ok := ctx.Value(guardContextKey).(*session.Guard)
	if !ok || g == nil {
		return session.Anonymous()
	}
	return g
}

// GuardFromRequest is a dispatch.GuardFunc backed by the request context
func GuardFromRequest(r *http.Request) *session.Guard {
	return GetGuard(r.Context())
}

// Session returns middleware that loads the session slot named by the cookie
func Session(manager *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				token = cookie.Value
			}

			g := manager.Load(r.Context(), token)
			if g.Discarded() {
				// Stale or malformed slot; stop sending it
				ClearSessionCookie(w)
			}

			ctx := context.WithValue(r.Context(), guardContextKey, g)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SetSessionCookie stores the session token in the browser
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie removes the session cookie
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
