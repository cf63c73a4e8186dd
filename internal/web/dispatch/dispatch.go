// Package dispatch maps a request path and the visitor's role to exactly one
// screen or one redirect. The member and admin apps share this code and differ
// only in their Config and route table.
package dispatch

import (
	"context"
	"net/http"
	"strings"

	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/services/session"
)

// Homes are the landing pages each kind of visitor is sent to
type Homes struct {
	Admin  string
	Member string
	Public string
}

// Config describes one app
type Config struct {
	Name   string
	Prefix string     // mount point, e.g. "/app"
	Serves model.Role // the authenticated role this app is for
	Index  string     // route served for the bare prefix
	Homes  Homes
}

// Kind is what the dispatcher decided to do
type Kind int

const (
	KindRender Kind = iota
	KindRedirect
	KindNotFound
	KindMethodNotAllowed
)

func (k Kind) String() string {
	switch k {
	case KindRender:
		return "render"
	case KindRedirect:
		return "redirect"
	case KindNotFound:
		return "not-found"
	case KindMethodNotAllowed:
		return "method-not-allowed"
	default:
		return "unknown"
	}
}

// Decision is the outcome for one request
type Decision struct {
	Kind     Kind
	Route    string // registered route name, empty when unregistered
	Location string // redirect target
	Handler  http.Handler
}

type route struct {
	class  session.Classification
	render http.Handler
	action http.Handler
}

// GuardFunc returns the role state of a request
type GuardFunc func(r *http.Request) *session.Guard

// Dispatcher routes every request under an app prefix
type Dispatcher struct {
	cfg      Config
	routes   map[string]*route
	guard    GuardFunc
	notFound http.Handler
}

// New creates a dispatcher. guard reads the role state of a request;
// notFound renders the 404 view.
func New(cfg Config, guard GuardFunc, notFound http.Handler) *Dispatcher {
	cfg.Prefix = "/" + strings.Trim(cfg.Prefix, "/")
	if notFound == nil {
		notFound = http.NotFoundHandler()
	}
	return &Dispatcher{
		cfg:      cfg,
		routes:   make(map[string]*route),
		guard:    guard,
		notFound: notFound,
	}
}

// Config returns the app configuration
func (d *Dispatcher) Config() Config {
	return d.cfg
}

// Handle registers the GET view for path
func (d *Dispatcher) Handle(path string, class session.Classification, render http.HandlerFunc) {
	d.route(path, class).render = render
}

// HandleAction registers the POST handler for path
func (d *Dispatcher) HandleAction(path string, class session.Classification, action http.HandlerFunc) {
	d.route(path, class).action = action
}

func (d *Dispatcher) route(path string, class session.Classification) *route {
	name := strings.Trim(path, "/")
	rt, ok := d.routes[name]
	if !ok {
		rt = &route{}
		d.routes[name] = rt
	}
	rt.class = class
	return rt
}

// URL returns the absolute path of a route
func (d *Dispatcher) URL(name string) string {
	return d.cfg.Prefix + "/" + strings.Trim(name, "/")
}

// RouteName converts a request path into a route name relative to the prefix.
// ok is false when the path lies outside the app.
func (d *Dispatcher) RouteName(path string) (string, bool) {
	if path != d.cfg.Prefix && !strings.HasPrefix(path, d.cfg.Prefix+"/") {
		return "", false
	}
	name := strings.Trim(strings.TrimPrefix(path, d.cfg.Prefix), "/")
	if name == "" {
		name = d.cfg.Index
	}
	return name, true
}

// Decide picks the outcome for a request without side effects
func (d *Dispatcher) Decide(g *session.Guard, method, path string) Decision {
	name, ok := d.RouteName(path)
	if !ok {
		return Decision{Kind: KindNotFound}
	}
	rt, ok := d.routes[name]
	if !ok {
		return Decision{Kind: KindNotFound}
	}

	// A signed-in user never sees the other app's screens
	if g.IsAuthenticated() && g.Role() != d.cfg.Serves {
		return Decision{Kind: KindRedirect, Route: name, Location: d.home(g)}
	}

	if !g.CanAccess(rt.class) {
		return Decision{Kind: KindRedirect, Route: name, Location: d.home(g)}
	}

	var h http.Handler
	switch method {
	case http.MethodGet, http.MethodHead:
		h = rt.render
	case http.MethodPost:
		h = rt.action
	}
	if h == nil {
		return Decision{Kind: KindMethodNotAllowed, Route: name}
	}
	return Decision{Kind: KindRender, Route: name, Handler: h}
}

// home picks the single redirect target for a denied visitor
func (d *Dispatcher) home(g *session.Guard) string {
	switch {
	case g.IsAdmin():
		return d.cfg.Homes.Admin
	case g.IsMember():
		return d.cfg.Homes.Member
	default:
		return d.cfg.Homes.Public
	}
}

type routeKey struct{}

// RouteFromContext returns the route name the dispatcher matched
func RouteFromContext(ctx context.Context) string {
	name, _ := ctx.Value(routeKey{}).(string)
	return name
}

// ServeHTTP applies the decision for the request
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g := d.guard(r)
	dec := d.Decide(g, r.Method, r.URL.Path)

	switch dec.Kind {
	case KindRender:
		ctx := context.WithValue(r.Context(), routeKey{}, dec.Route)
		dec.Handler.ServeHTTP(w, r.WithContext(ctx))
	case KindRedirect:
		http.Redirect(w, r, dec.Location, http.StatusSeeOther)
	case KindMethodNotAllowed:
		allowed := d.allowed(dec.Route)
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	default:
		d.notFound.ServeHTTP(w, r)
	}
}

func (d *Dispatcher) allowed(name string) []string {
	rt := d.routes[name]
	var methods []string
	if rt == nil {
		return methods
	}
	if rt.render != nil {
		methods = append(methods, http.MethodGet, http.MethodHead)
	}
	if rt.action != nil {
		methods = append(methods, http.MethodPost)
	}
	return methods
}
