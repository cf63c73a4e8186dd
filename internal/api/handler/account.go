package handler

import (
	"context"
	"net/http"

	"github.com/rumbify/rumbify/internal/api/middleware"
	"github.com/rumbify/rumbify/internal/api/request"
	"github.com/rumbify/rumbify/internal/api/response"
	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/services/auth"
	"github.com/rumbify/rumbify/internal/services/session"
)

// AccountHandler handles registration, login and profile endpoints
type AccountHandler struct {
	authService *auth.Service
	sessions    *session.Manager
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(authService *auth.Service, sessions *session.Manager) *AccountHandler {
	return &AccountHandler{
		authService: authService,
		sessions:    sessions,
	}
}

// RegisterMember handles POST /api/v1/members/register
func (h *AccountHandler) RegisterMember(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, h.authService.RegisterMember)
}

// RegisterAdmin handles POST /api/v1/admins/register
func (h *AccountHandler) RegisterAdmin(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, h.authService.RegisterAdmin)
}

type registerFunc func(ctx context.Context, reg auth.Registration) (*model.User, error)

func (h *AccountHandler) register(w http.ResponseWriter, r *http.Request, fn registerFunc) {
	var req request.RegisterRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if req.Name == "" {
		WriteError(w, NewInvalidRequestError("name is required"))
		return
	}
	if req.Email == "" {
		WriteError(w, NewInvalidRequestError("email is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	user, err := fn(r.Context(), auth.Registration{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		WriteError(w, err)
		return
	}

	h.respondWithSession(w, r, http.StatusCreated, user)
}

// LoginMember handles POST /api/v1/members/login
func (h *AccountHandler) LoginMember(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, model.RoleMember)
}

// LoginAdmin handles POST /api/v1/admins/login
func (h *AccountHandler) LoginAdmin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, model.RoleAdmin)
}

func (h *AccountHandler) login(w http.ResponseWriter, r *http.Request, role model.Role) {
	var req request.LoginRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if req.Email == "" || req.Password == "" {
		WriteError(w, NewInvalidRequestError("email and password are required"))
		return
	}

	user, err := h.authService.Login(r.Context(), req.Email, req.Password, role)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.respondWithSession(w, r, http.StatusOK, user)
}

func (h *AccountHandler) respondWithSession(w http.ResponseWriter, r *http.Request, status int, user *model.User) {
	sess, err := h.sessions.Start(r.Context(), user)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, status, response.AuthResponse{
		Success:      true,
		User:         response.UserFromModel(user),
		SessionToken: sess.Token,
	})
}

// Logout handles POST /api/v1/logout
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := middleware.GetGuard(r.Context()).Clear(r.Context()); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// GetMe handles GET /api/v1/me
func (h *AccountHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	response.JSON(w, http.StatusOK, response.UserResponse{Success: true, User: response.UserFromModel(user)})
}

// UpdateMe handles PATCH /api/v1/me
func (h *AccountHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	guard := middleware.GetGuard(r.Context())

	var req request.UpdateProfileRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	user, err := h.authService.UpdateProfile(r.Context(), guard.User().ID, auth.ProfileUpdate{
		Name:  req.Name,
		Phone: req.Phone,
		Bio:   req.Bio,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := h.sessions.Refresh(r.Context(), guard.Token(), user); err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.UserResponse{Success: true, User: response.UserFromModel(user)})
}
