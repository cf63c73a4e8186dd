package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rumbify/rumbify/internal/api/apierr"
	"github.com/rumbify/rumbify/internal/api/handler"
	"github.com/rumbify/rumbify/internal/api/middleware"
	"github.com/rumbify/rumbify/internal/services/auth"
	"github.com/rumbify/rumbify/internal/services/codes"
	"github.com/rumbify/rumbify/internal/services/party"
	"github.com/rumbify/rumbify/internal/services/session"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger       *slog.Logger
	Sessions     *session.Manager
	AuthService  *auth.Service
	PartyService *party.Service
	CodeService  *codes.Service
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	accountHandler := handler.NewAccountHandler(cfg.AuthService, cfg.Sessions)
	partyHandler := handler.NewPartyHandler(cfg.PartyService, cfg.CodeService)
	codeHandler := handler.NewCodeHandler(cfg.PartyService, cfg.CodeService)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.Sessions)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(loggingMiddleware)
	api.Use(recoveryMiddleware)

	// Account routes (no auth required for registering/logging in)
	api.HandleFunc("/members/register", accountHandler.RegisterMember).Methods(http.MethodPost)
	api.HandleFunc("/members/login", accountHandler.LoginMember).Methods(http.MethodPost)
	api.HandleFunc("/admins/register", accountHandler.RegisterAdmin).Methods(http.MethodPost)
	api.HandleFunc("/admins/login", accountHandler.LoginAdmin).Methods(http.MethodPost)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Everything else needs a session. The handlers are wrapped one by one
	// on api itself so method mismatches still reach MethodNotAllowedHandler.
	authed := func(h http.HandlerFunc) http.Handler { return authMiddleware(h) }
	adminOnly := func(h http.HandlerFunc) http.Handler { return authMiddleware(middleware.RequireAdmin(h)) }

	api.Handle("/logout", authed(accountHandler.Logout)).Methods(http.MethodPost)
	api.Handle("/me", authed(accountHandler.GetMe)).Methods(http.MethodGet)
	api.Handle("/me", authed(accountHandler.UpdateMe)).Methods(http.MethodPatch)

	api.Handle("/parties", authed(partyHandler.List)).Methods(http.MethodGet)
	api.Handle("/parties", adminOnly(partyHandler.Create)).Methods(http.MethodPost)
	api.Handle("/parties/{id}", authed(partyHandler.Get)).Methods(http.MethodGet)
	api.Handle("/parties/{id}/guests", adminOnly(partyHandler.Guests)).Methods(http.MethodGet)
	api.Handle("/parties/{id}/codes", adminOnly(partyHandler.Codes)).Methods(http.MethodGet)

	api.Handle("/codes/generate", adminOnly(codeHandler.Generate)).Methods(http.MethodPost)
	api.Handle("/codes/validate", authed(codeHandler.Validate)).Methods(http.MethodPost)
	api.Handle("/codes/redeem", authed(codeHandler.Redeem)).Methods(http.MethodPost)

	// JSON errors for unmatched API routes
	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierr.WriteError(w, apierr.NewNotFoundError())
	})
	api.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierr.WriteError(w, apierr.NewMethodNotAllowedError())
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
