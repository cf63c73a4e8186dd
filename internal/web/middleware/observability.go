package middleware

import (
	"html"
	"log/slog"
	"net/http"

	"github.com/rumbify/rumbify/internal/middleware"
)

// Logging logs every page and stream request under component=web
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger.With(slog.String("component", "web")))
}

// Recovery renders a bare error page when a handler panics. It must sit
// inside Logging so the page can quote the request ID.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger.With(slog.String("component", "web")), errorPage)
}

func errorPage(w http.ResponseWriter, r *http.Request, _ any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusInternalServerError)

	ref := ""
	if id := middleware.RequestID(r.Context()); id != "" {
		ref = `<p class="ref">Reference: <code>` + html.EscapeString(id) + `</code></p>`
	}
	_, _ = w.Write([]byte(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>Error · Rumbify</title>` +
		`<link rel="stylesheet" href="/static/css/app.css"></head><body><main id="error">` +
		`<h1>Something went wrong</h1><p>The party is still on. Please try again in a moment.</p>` + ref +
		`<p><a href="/app/welcome">Back to Rumbify</a></p></main></body></html>`))
}
