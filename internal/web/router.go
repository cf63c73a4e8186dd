package web

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/services/auth"
	"github.com/rumbify/rumbify/internal/services/codes"
	"github.com/rumbify/rumbify/internal/services/party"
	"github.com/rumbify/rumbify/internal/services/session"
	"github.com/rumbify/rumbify/internal/web/dispatch"
	"github.com/rumbify/rumbify/internal/web/handler"
	"github.com/rumbify/rumbify/internal/web/middleware"
	"github.com/rumbify/rumbify/internal/web/sse"
	"github.com/rumbify/rumbify/internal/web/views"
)

const (
	MemberPrefix = "/app"
	AdminPrefix  = "/admin"
)

// Homes shared by both apps; only the public page differs
var (
	memberHomes = dispatch.Homes{Admin: "/admin/my-parties", Member: "/app/dashboard", Public: "/app/welcome"}
	adminHomes  = dispatch.Homes{Admin: "/admin/my-parties", Member: "/app/dashboard", Public: "/admin/admin-login"}
)

// RouterConfig holds configuration for the web router
type RouterConfig struct {
	Logger       *slog.Logger
	Sessions     *session.Manager
	AuthService  *auth.Service
	PartyService *party.Service
	CodeService  *codes.Service
	HubManager   *sse.HubManager
	StaticDir    string // Path to static files directory
}

// NewRouter creates a new web router with both apps mounted
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)
	sessionMiddleware := middleware.Session(cfg.Sessions)
	flashMiddleware := middleware.Flash()

	// Apply global middleware to all routes
	r.Use(loggingMiddleware)
	r.Use(recoveryMiddleware)

	// Create SSE hub manager if not provided
	hubManager := cfg.HubManager
	if hubManager == nil {
		hubManager = sse.NewHubManager(cfg.Logger)
	}

	withSession := func(h http.Handler) http.Handler {
		return sessionMiddleware(flashMiddleware(h))
	}

	// Static files
	if cfg.StaticDir != "" {
		staticHandler := http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir)))
		r.PathPrefix("/static/").Handler(staticHandler)
	}

	r.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, memberHomes.Public, http.StatusSeeOther)
	})

	member := newMemberApp(cfg, withSession(handler.NotFound(views.AppMember)))
	admin := newAdminApp(cfg, hubManager, withSession(handler.NotFound(views.AppAdmin)))

	r.Path(MemberPrefix).Handler(withSession(member))
	r.PathPrefix(MemberPrefix + "/").Handler(withSession(member))
	r.Path(AdminPrefix).Handler(withSession(admin))
	r.PathPrefix(AdminPrefix + "/").Handler(withSession(admin))

	// mux skips r.Use middleware for unmatched requests
	r.NotFoundHandler = recoveryMiddleware(loggingMiddleware(withSession(handler.NotFound(views.AppMember))))

	return r
}

func newMemberApp(cfg RouterConfig, notFound http.Handler) *dispatch.Dispatcher {
	d := dispatch.New(dispatch.Config{
		Name:   "member",
		Prefix: MemberPrefix,
		Serves: model.RoleMember,
		Index:  "welcome",
		Homes:  memberHomes,
	}, middleware.GuardFromRequest, notFound)

	account := handler.NewAccountHandler(cfg.AuthService, cfg.Sessions, cfg.Logger, model.RoleMember, handler.AccountURLs{
		Login:       d.URL("login"),
		Register:    d.URL("register"),
		Home:        memberHomes.Member,
		Public:      memberHomes.Public,
		Profile:     d.URL("profile"),
		EditProfile: d.URL("edit-profile"),
	})
	pages := handler.NewMemberHandler(cfg.PartyService, cfg.CodeService, cfg.Logger)

	d.Handle("welcome", session.Public, pages.Welcome)
	d.Handle("login", session.Login, account.LoginPage)
	d.HandleAction("login", session.Login, account.Login)
	d.Handle("register", session.Login, account.RegisterPage)
	d.HandleAction("register", session.Login, account.Register)
	d.Handle("dashboard", session.MemberOnly, pages.Dashboard)
	d.Handle("event-details", session.MemberOnly, pages.EventDetails)
	d.HandleAction("event-details", session.MemberOnly, pages.Redeem)
	d.Handle("profile", session.MemberOnly, account.Profile)
	d.Handle("edit-profile", session.MemberOnly, account.EditProfilePage)
	d.HandleAction("edit-profile", session.MemberOnly, account.EditProfile)
	d.HandleAction("logout", session.AuthenticatedOnly, account.Logout)

	return d
}

func newAdminApp(cfg RouterConfig, hubs *sse.HubManager, notFound http.Handler) *dispatch.Dispatcher {
	d := dispatch.New(dispatch.Config{
		Name:   "admin",
		Prefix: AdminPrefix,
		Serves: model.RoleAdmin,
		Index:  "admin-login",
		Homes:  adminHomes,
	}, middleware.GuardFromRequest, notFound)

	account := handler.NewAccountHandler(cfg.AuthService, cfg.Sessions, cfg.Logger, model.RoleAdmin, handler.AccountURLs{
		Login:    d.URL("admin-login"),
		Register: d.URL("admin-register"),
		Home:     adminHomes.Admin,
		Public:   adminHomes.Public,
		Profile:  d.URL("profile"),
	})
	pages := handler.NewAdminHandler(cfg.PartyService, cfg.CodeService, hubs, cfg.Logger)

	d.Handle("admin-login", session.Login, account.LoginPage)
	d.HandleAction("admin-login", session.Login, account.Login)
	d.Handle("admin-register", session.Login, account.RegisterPage)
	d.HandleAction("admin-register", session.Login, account.Register)
	d.Handle("my-parties", session.AdminOnly, pages.MyParties)
	d.Handle("create-party", session.AdminOnly, pages.CreatePartyPage)
	d.HandleAction("create-party", session.AdminOnly, pages.CreateParty)
	d.Handle("manage-party", session.AdminOnly, pages.ManageParty)
	d.HandleAction("manage-party", session.AdminOnly, pages.GenerateCodes)
	d.Handle("guests-summary", session.AdminOnly, pages.GuestsSummary)
	d.Handle("guests-events", session.AdminOnly, pages.GuestsEvents)
	d.Handle("profile", session.AdminOnly, account.Profile)
	d.HandleAction("logout", session.AuthenticatedOnly, account.Logout)

	return d
}
