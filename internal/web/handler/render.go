package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/rumbify/rumbify/internal/web/middleware"
	"github.com/rumbify/rumbify/internal/web/views"
)

// render writes a page with the given status
func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Default().Error("failed to render page",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
}

// pageData fills the fields every page shares
func pageData(r *http.Request, app, title string) views.PageData {
	return views.PageData{
		Title: title,
		App:   app,
		User:  middleware.GetGuard(r.Context()).User(),
		Flash: middleware.GetFlash(r.Context()),
	}
}

// NotFound renders the 404 page of an app
func NotFound(app string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, r, http.StatusNotFound, views.NotFound(pageData(r, app, "Not found")))
	}
}

func capitalize(msg string) string {
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func serverError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	logger.Error("request failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
