package web_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberRegistrationLandsOnDashboard(t *testing.T) {
	ts := newWebTestServer(t)
	ts.registerMember("Max Power")

	rr := ts.get("/app/dashboard")
	require.Equal(t, http.StatusOK, rr.Code)

	doc := parseHTML(rr.Body)
	assertContainsText(t, doc, "#dashboard h1", "Max Power")
	assertContainsText(t, doc, "#flash", "Account created")
	assertContainsElement(t, doc, "#no-tickets")
	assertContainsElement(t, doc, `form[action="/app/logout"]`)
}

func TestFlashShownOnce(t *testing.T) {
	ts := newWebTestServer(t)
	ts.registerMember("Max")

	doc := parseHTML(ts.get("/app/dashboard").Body)
	assertContainsElement(t, doc, "#flash")

	doc = parseHTML(ts.get("/app/dashboard").Body)
	assertNotContainsElement(t, doc, "#flash")
}

func TestRegisterValidationErrors(t *testing.T) {
	ts := newWebTestServer(t)

	rr := ts.post("/app/register", url.Values{"name": {""}, "email": {"max@example.com"}, "password": {"short"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.False(t, ts.cookies.hasSession())

	doc := parseHTML(rr.Body)
	assertContainsElement(t, doc, `.field-error[data-field="name"]`)
	assertContainsText(t, doc, `.field-error[data-field="password"]`, "8 characters")
	assert.Equal(t, "max@example.com", doc.Find(`input[name="email"]`).AttrOr("value", ""))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ts := newWebTestServer(t)
	ts.registerMember("Max")

	other := ts.browser()
	rr := other.post("/admin/admin-register", url.Values{"name": {"Other"}, "email": {"MAX@example.com"}, "password": {testPassword}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assertContainsText(t, parseHTML(rr.Body), `.field-error[data-field="email"]`, "already registered")
}

func TestRegisterInvalidEmail(t *testing.T) {
	ts := newWebTestServer(t)

	rr := ts.post("/app/register", url.Values{"name": {"Max"}, "email": {"not-an-email"}, "password": {testPassword}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assertContainsText(t, parseHTML(rr.Body), ".form-error", "valid email")
}

func TestLoginAndLogout(t *testing.T) {
	ts := newWebTestServer(t)
	ts.registerMember("Max")
	require.Equal(t, http.StatusSeeOther, ts.post("/app/logout", nil).Code)
	require.False(t, ts.cookies.hasSession())

	rr := ts.post("/app/login", url.Values{"email": {"max@example.com"}, "password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/app/dashboard", rr.Header().Get("Location"))
	assert.True(t, ts.cookies.hasSession())

	doc := parseHTML(ts.followRedirect(rr).Body)
	assertContainsText(t, doc, "#flash", "Welcome back, Max!")

	rr = ts.post("/app/logout", nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/app/welcome", rr.Header().Get("Location"))
	assert.False(t, ts.cookies.hasSession())

	doc = parseHTML(ts.followRedirect(rr).Body)
	assertContainsText(t, doc, "#flash", "logged out")
	assertContainsElement(t, doc, `#nav a[href="/app/login"]`)

	// Signed-out visitors are sent to the public page
	rr = ts.get("/app/dashboard")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/app/welcome", rr.Header().Get("Location"))
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newWebTestServer(t)
	ts.registerMember("Max")
	ts.post("/app/logout", nil)

	rr := ts.post("/app/login", url.Values{"email": {"max@example.com"}, "password": {"wrong-password"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.False(t, ts.cookies.hasSession())

	doc := parseHTML(rr.Body)
	assertContainsText(t, doc, ".form-error", "Invalid email or password")
	assert.Equal(t, "max@example.com", doc.Find(`input[name="email"]`).AttrOr("value", ""))
}

func TestLoginThroughWrongApp(t *testing.T) {
	ts := newWebTestServer(t)
	ts.registerMember("Max")
	ts.browser().registerAdmin("Olivia")

	visitor := ts.browser()
	rr := visitor.post("/admin/admin-login", url.Values{"email": {"max@example.com"}, "password": {testPassword}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assertContainsText(t, parseHTML(rr.Body), ".form-error", "member app")
	assert.False(t, visitor.cookies.hasSession())

	rr = visitor.post("/app/login", url.Values{"email": {"olivia@example.com"}, "password": {testPassword}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assertContainsText(t, parseHTML(rr.Body), ".form-error", "admin app")
}

func TestAdminRegistrationLandsOnMyParties(t *testing.T) {
	ts := newWebTestServer(t)
	ts.registerAdmin("Olivia")

	rr := ts.get("/admin/my-parties")
	require.Equal(t, http.StatusOK, rr.Code)

	doc := parseHTML(rr.Body)
	assertContainsElement(t, doc, "#no-parties")
	assertContainsElement(t, doc, `form[action="/admin/logout"]`)
	assert.Equal(t, "admin", doc.Find("body").AttrOr("data-app", ""))
}

func TestLoginPagesRedirectSignedInUsers(t *testing.T) {
	ts := newWebTestServer(t)
	ts.registerMember("Max")

	rr := ts.get("/app/login")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/app/dashboard", rr.Header().Get("Location"))

	admin := ts.browser()
	admin.registerAdmin("Olivia")
	rr = admin.get("/admin/admin-login")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/admin/my-parties", rr.Header().Get("Location"))
}

func TestProfileAndEditProfile(t *testing.T) {
	ts := newWebTestServer(t)
	ts.registerMember("Max")

	doc := parseHTML(ts.get("/app/profile").Body)
	assertContainsText(t, doc, "#profile-name", "Max")
	assertContainsText(t, doc, "#profile-email", "max@example.com")
	assertContainsText(t, doc, "#profile-role", "member")
	assertContainsElement(t, doc, "#edit-profile")

	doc = parseHTML(ts.get("/app/edit-profile").Body)
	assert.Equal(t, "Max", doc.Find(`input[name="name"]`).AttrOr("value", ""))

	rr := ts.post("/app/edit-profile", url.Values{"name": {"Maxine"}, "phone": {"+61 400 000 000"}, "bio": {"Dancer"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/app/profile", rr.Header().Get("Location"))

	// The session slot carries the new profile without logging in again
	doc = parseHTML(ts.followRedirect(rr).Body)
	assertContainsText(t, doc, "#profile-name", "Maxine")
	assertContainsText(t, doc, "#profile-phone", "+61 400 000 000")
	assertContainsText(t, doc, "#profile-bio", "Dancer")
	assertContainsText(t, doc, "#nav .who", "Maxine")
}

func TestEditProfileRequiresName(t *testing.T) {
	ts := newWebTestServer(t)
	ts.registerMember("Max")

	rr := ts.post("/app/edit-profile", url.Values{"name": {"  "}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assertContainsText(t, parseHTML(rr.Body), ".form-error", "Name is required")
}

func TestAdminProfileHasNoEditLink(t *testing.T) {
	ts := newWebTestServer(t)
	ts.registerAdmin("Olivia")

	rr := ts.get("/admin/profile")
	require.Equal(t, http.StatusOK, rr.Code)
	doc := parseHTML(rr.Body)
	assertContainsText(t, doc, "#profile-role", "admin")
	assertNotContainsElement(t, doc, "#edit-profile")
}
