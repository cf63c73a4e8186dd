package middleware

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/rumbify/rumbify/internal/web/views"
)

const (
	flashCookieName = "flash"
	flashContextKey = contextKey("flash")
	flashMaxAge     = 60
)

// GetFlash returns the message carried over from the previous response, or nil
func GetFlash(ctx context.Context) *views.FlashMessage {
	flash, _ := ctx.Value(flashContextKey).(*views.FlashMessage)
	return flash
}

// SetFlash queues a message for the next page the browser loads, usually
// the target of a redirect
func SetFlash(w http.ResponseWriter, flashType, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    encodeFlash(flashType, message),
		Path:     "/",
		MaxAge:   flashMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Flash moves a queued message into the request context and expires the
// cookie so it is shown exactly once
func Flash() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var flash *views.FlashMessage
			if cookie, err := r.Cookie(flashCookieName); err == nil && cookie.Value != "" {
				flash = decodeFlash(cookie.Value)
				http.SetCookie(w, &http.Cookie{
					Name:     flashCookieName,
					Path:     "/",
					MaxAge:   -1,
					Expires:  time.Unix(0, 0),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), flashContextKey, flash)))
		})
	}
}

// Cookie values cannot hold ';', '"' or non-ASCII text, and party names and
// error messages can, so the pair travels base64 encoded.
func encodeFlash(flashType, message string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(flashType + ":" + message))
}

func decodeFlash(value string) *views.FlashMessage {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		raw = []byte(value)
	}
	flashType, message, ok := strings.Cut(string(raw), ":")
	if !ok || flashType == "" {
		return &views.FlashMessage{Type: "info", Message: string(raw)}
	}
	return &views.FlashMessage{Type: flashType, Message: message}
}
