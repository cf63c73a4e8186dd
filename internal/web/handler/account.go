package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/services/auth"
	"github.com/rumbify/rumbify/internal/services/session"
	"github.com/rumbify/rumbify/internal/web/middleware"
	"github.com/rumbify/rumbify/internal/web/views"
)

// AccountURLs are the pages an account handler links and redirects to
type AccountURLs struct {
	Login       string
	Register    string
	Home        string // after login or registration
	Public      string // after logout
	Profile     string
	EditProfile string // empty when the app has no profile editing
}

// AccountHandler serves login, registration, profile and logout for one app
type AccountHandler struct {
	authService *auth.Service
	sessions    *session.Manager
	logger      *slog.Logger
	role        model.Role
	app         string
	urls        AccountURLs
}

// NewAccountHandler creates an account handler for the app serving role
func NewAccountHandler(authService *auth.Service, sessions *session.Manager, logger *slog.Logger, role model.Role, urls AccountURLs) *AccountHandler {
	app := views.AppMember
	if role == model.RoleAdmin {
		app = views.AppAdmin
	}
	return &AccountHandler{
		authService: authService,
		sessions:    sessions,
		logger:      logger.With(slog.String("component", "web-"+app)),
		role:        role,
		app:         app,
		urls:        urls,
	}
}

func (h *AccountHandler) heading(action string) string {
	if h.role == model.RoleAdmin {
		return "Organiser " + action
	}
	return action
}

// LoginPage renders the login form
func (h *AccountHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, http.StatusOK, "", "")
}

// Login handles login form submission
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, r, http.StatusBadRequest, "", "Invalid form data")
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if email == "" || password == "" {
		h.renderLogin(w, r, http.StatusUnprocessableEntity, email, "Email and password are required")
		return
	}

	user, err := h.authService.Login(r.Context(), email, password, h.role)
	switch {
	case errors.Is(err, auth.ErrWrongApp):
		h.renderLogin(w, r, http.StatusUnprocessableEntity, email, h.wrongAppMessage())
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.renderLogin(w, r, http.StatusUnprocessableEntity, email, "Invalid email or password")
		return
	case err != nil:
		serverError(w, r, h.logger, err)
		return
	}

	h.startSession(w, r, user, "Welcome back, "+user.Name+"!")
}

func (h *AccountHandler) wrongAppMessage() string {
	if h.role == model.RoleAdmin {
		return "This is a member account. Log in through the member app instead."
	}
	return "This is an organiser account. Log in through the admin app instead."
}

// RegisterPage renders the registration form
func (h *AccountHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.renderRegister(w, r, http.StatusOK, views.RegisterData{})
}

// Register handles registration form submission
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderRegister(w, r, http.StatusBadRequest, views.RegisterData{Error: "Invalid form data"})
		return
	}

	reg := auth.Registration{
		Name:     strings.TrimSpace(r.FormValue("name")),
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	data := views.RegisterData{Name: reg.Name, Email: reg.Email, FieldErrors: make(map[string]string)}

	if reg.Name == "" {
		data.FieldErrors["name"] = "Name is required"
	}
	if reg.Email == "" {
		data.FieldErrors["email"] = "Email is required"
	}
	if len(reg.Password) < auth.MinPasswordLength {
		data.FieldErrors["password"] = "Password must be at least 8 characters"
	}
	if len(data.FieldErrors) > 0 {
		h.renderRegister(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	var (
		user *model.User
		err  error
	)
	if h.role == model.RoleAdmin {
		user, err = h.authService.RegisterAdmin(r.Context(), reg)
	} else {
		user, err = h.authService.RegisterMember(r.Context(), reg)
	}
	switch {
	case errors.Is(err, auth.ErrEmailExists):
		data.FieldErrors["email"] = "That email is already registered"
		h.renderRegister(w, r, http.StatusUnprocessableEntity, data)
		return
	case errors.Is(err, auth.ErrInvalidInput):
		data.Error = capitalize(strings.TrimPrefix(err.Error(), auth.ErrInvalidInput.Error()+": "))
		h.renderRegister(w, r, http.StatusUnprocessableEntity, data)
		return
	case err != nil:
		serverError(w, r, h.logger, err)
		return
	}

	h.startSession(w, r, user, "Account created! Welcome, "+user.Name+"!")
}

func (h *AccountHandler) startSession(w http.ResponseWriter, r *http.Request, user *model.User, greeting string) {
	sess, err := h.sessions.Start(r.Context(), user)
	if err != nil {
		serverError(w, r, h.logger, err)
		return
	}
	middleware.SetSessionCookie(w, sess.Token, h.sessions.TTL())
	middleware.SetFlash(w, "success", greeting)
	http.Redirect(w, r, h.urls.Home, http.StatusSeeOther)
}

// Logout clears the session and returns to the public page
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := middleware.GetGuard(r.Context()).Clear(r.Context()); err != nil {
		h.logger.Error("failed to clear session", slog.Any("error", err))
	}
	middleware.ClearSessionCookie(w)
	middleware.SetFlash(w, "info", "You have been logged out")
	http.Redirect(w, r, h.urls.Public, http.StatusSeeOther)
}

// Profile renders the signed-in user's profile
func (h *AccountHandler) Profile(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, views.Profile(views.ProfileData{
		PageData: pageData(r, h.app, "Profile"),
		EditURL:  h.urls.EditProfile,
	}))
}

// EditProfilePage renders the profile form
func (h *AccountHandler) EditProfilePage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetGuard(r.Context()).User()
	h.renderEditProfile(w, r, http.StatusOK, views.EditProfileData{Name: user.Name, Phone: user.Phone, Bio: user.Bio})
}

// EditProfile saves the profile form and refreshes the session slot
func (h *AccountHandler) EditProfile(w http.ResponseWriter, r *http.Request) {
	guard := middleware.GetGuard(r.Context())
	if err := r.ParseForm(); err != nil {
		h.renderEditProfile(w, r, http.StatusBadRequest, views.EditProfileData{Error: "Invalid form data"})
		return
	}

	name, phone, bio := r.FormValue("name"), r.FormValue("phone"), r.FormValue("bio")
	data := views.EditProfileData{Name: name, Phone: phone, Bio: bio}

	user, err := h.authService.UpdateProfile(r.Context(), guard.User().ID, auth.ProfileUpdate{
		Name:  &name,
		Phone: &phone,
		Bio:   &bio,
	})
	if errors.Is(err, auth.ErrInvalidInput) {
		data.Error = "Name is required"
		h.renderEditProfile(w, r, http.StatusUnprocessableEntity, data)
		return
	}
	if err != nil {
		serverError(w, r, h.logger, err)
		return
	}

	if err := h.sessions.Refresh(r.Context(), guard.Token(), user); err != nil {
		serverError(w, r, h.logger, err)
		return
	}

	middleware.SetFlash(w, "success", "Profile updated")
	http.Redirect(w, r, h.urls.Profile, http.StatusSeeOther)
}

func (h *AccountHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, email, errorMsg string) {
	render(w, r, status, views.Login(views.LoginData{
		PageData:    pageData(r, h.app, "Log in"),
		Heading:     h.heading("Log in"),
		Action:      h.urls.Login,
		RegisterURL: h.urls.Register,
		Email:       email,
		Error:       errorMsg,
	}))
}

func (h *AccountHandler) renderRegister(w http.ResponseWriter, r *http.Request, status int, data views.RegisterData) {
	data.PageData = pageData(r, h.app, "Register")
	data.Heading = h.heading("Register")
	data.Action = h.urls.Register
	data.LoginURL = h.urls.Login
	render(w, r, status, views.Register(data))
}

func (h *AccountHandler) renderEditProfile(w http.ResponseWriter, r *http.Request, status int, data views.EditProfileData) {
	data.PageData = pageData(r, h.app, "Edit profile")
	render(w, r, status, views.EditProfile(data))
}
