package web_test

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumbify/rumbify/internal/factory"
	"github.com/rumbify/rumbify/internal/middleware"
)

func TestRootRedirectsToWelcome(t *testing.T) {
	ts := newWebTestServer(t)

	rr := ts.get("/")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/app/welcome", rr.Header().Get("Location"))
}

func TestUnknownRoutesRenderNotFound(t *testing.T) {
	ts := newWebTestServer(t)
	ts.registerAdmin("Olivia")

	// Unregistered paths never redirect, whatever the role
	for _, path := range []string{"/app/unknown-route", "/admin/nope", "/nowhere", "/app/dashboard/extra", "/application"} {
		rr := ts.get(path)
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
		assert.Empty(t, rr.Header().Get("Location"), path)
		assertContainsElement(t, parseHTML(rr.Body), "#not-found")
	}
}

func TestNotFoundLinksToAppHome(t *testing.T) {
	ts := newWebTestServer(t)

	doc := parseHTML(ts.get("/admin/nope").Body)
	assertContainsElement(t, doc, `#not-found a[href="/admin/admin-login"]`)

	doc = parseHTML(ts.get("/app/nope").Body)
	assertContainsElement(t, doc, `#not-found a[href="/app/welcome"]`)
}

func TestAccessDeniedRedirects(t *testing.T) {
	anonymous := newWebTestServer(t)
	member := anonymous.browser()
	member.registerMember("Max")
	admin := anonymous.browser()
	admin.registerAdmin("Olivia")

	tests := []struct {
		name     string
		ts       *webTestServer
		path     string
		location string
	}{
		{"anonymous member page", anonymous, "/app/dashboard", "/app/welcome"},
		{"anonymous profile", anonymous, "/app/profile", "/app/welcome"},
		{"anonymous admin page", anonymous, "/admin/my-parties", "/admin/admin-login"},
		{"anonymous guests stream", anonymous, "/admin/guests-events?id=x", "/admin/admin-login"},
		{"member on admin page", member, "/admin/my-parties", "/app/dashboard"},
		{"member on admin login", member, "/admin/admin-login", "/app/dashboard"},
		{"admin on member page", admin, "/app/dashboard", "/admin/my-parties"},
		{"admin on public page", admin, "/app/welcome", "/admin/my-parties"},
		{"admin on member login", admin, "/app/login", "/admin/my-parties"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := tt.ts.get(tt.path)
			assert.Equal(t, http.StatusSeeOther, rr.Code)
			assert.Equal(t, tt.location, rr.Header().Get("Location"))
		})
	}
}

func TestBareAdminPrefixServesLogin(t *testing.T) {
	ts := newWebTestServer(t)

	for _, path := range []string{"/admin", "/admin/"} {
		rr := ts.get(path)
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assertContainsElement(t, parseHTML(rr.Body), `#login form[action="/admin/admin-login"]`)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newWebTestServer(t)

	rr := ts.post("/app/welcome", url.Values{})
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET, HEAD", rr.Header().Get("Allow"))

	ts.registerMember("Max")
	rr = ts.get("/app/logout")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "POST", rr.Header().Get("Allow"))
}

func TestLogoutRequiresSession(t *testing.T) {
	ts := newWebTestServer(t)

	rr := ts.post("/admin/logout", nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/admin/admin-login", rr.Header().Get("Location"))
}

func TestUnknownSessionCookieIsCleared(t *testing.T) {
	ts := newWebTestServer(t)
	ts.cookies.cookies["session"] = &http.Cookie{Name: "session", Value: "garbage"}

	rr := ts.get("/app/welcome")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, ts.cookies.hasSession())
	assertContainsElement(t, parseHTML(rr.Body), `#nav a[href="/app/login"]`)
}

func TestMalformedSessionSlotIsTreatedAsAnonymous(t *testing.T) {
	ts := newWebTestServer(t)
	require.NoError(t, ts.app.Storage.SaveSession(t.Context(), "tok", []byte(`{"role":"admin","user":null}`), time.Hour))
	ts.cookies.cookies["session"] = &http.Cookie{Name: "session", Value: "tok"}

	rr := ts.get("/admin/my-parties")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/admin/admin-login", rr.Header().Get("Location"))
	assert.False(t, ts.cookies.hasSession())

	_, err := ts.app.Storage.GetSession(t.Context(), "tok")
	assert.Error(t, err, "malformed slot should be deleted")
}

func TestRequestIDHeader(t *testing.T) {
	ts := newWebTestServer(t)

	rr := ts.get("/app/welcome")
	assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
}

func TestStaticFileServing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "css", "app.css"), []byte("body{}"), 0o644))

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })
	ts := &webTestServer{t: t, handler: newRouter(app, dir), app: app, cookies: newCookieJar()}

	rr := ts.get("/static/css/app.css")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "body{}", rr.Body.String())
}
