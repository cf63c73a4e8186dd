package middleware

import (
	"log/slog"
	"net/http"

	"github.com/rumbify/rumbify/internal/api/apierr"
	"github.com/rumbify/rumbify/internal/middleware"
)

// Logging logs every API request under component=api
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger.With(slog.String("component", "api")))
}

// Recovery answers a panic with the INTERNAL_ERROR envelope
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger.With(slog.String("component", "api")), func(w http.ResponseWriter, _ *http.Request, _ any) {
		w.Header().Set("Cache-Control", "no-store")
		apierr.WriteError(w, apierr.NewInternalError())
	})
}
