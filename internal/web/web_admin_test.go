package web_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumbify/rumbify/internal/model"
)

func manageURL(pt *model.Party) string {
	return "/admin/manage-party?id=" + url.QueryEscape(string(pt.ID))
}

func guestsURL(pt *model.Party) string {
	return "/admin/guests-summary?id=" + url.QueryEscape(string(pt.ID))
}

func TestCreateParty(t *testing.T) {
	ts := newWebTestServer(t)
	ts.registerAdmin("Olivia")

	doc := parseHTML(ts.get("/admin/create-party").Body)
	assertContainsElement(t, doc, `form[action="/admin/create-party"]`)

	rr := ts.post("/admin/create-party", url.Values{
		"name":        {"Launch Night"},
		"description": {"Doors at ten"},
		"location":    {"Warehouse 9"},
		"starts_at":   {"2026-12-31T22:00"},
		"capacity":    {"200"},
		"tiers":       {"General: 15\nVIP: 50.00"},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	location := rr.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/admin/manage-party?id="), location)

	doc = parseHTML(ts.followRedirect(rr).Body)
	assertContainsText(t, doc, "#flash", "Party created")
	assertContainsText(t, doc, "#manage-party h1", "Launch Night")
	assert.Equal(t, 2, doc.Find("#prices tr.tier").Length())
	assertContainsElement(t, doc, "#no-codes")

	doc = parseHTML(ts.get("/admin/my-parties").Body)
	assertContainsText(t, doc, "#party-list li.party", "Launch Night")
}

func TestCreatePartyValidation(t *testing.T) {
	ts := newWebTestServer(t)
	ts.registerAdmin("Olivia")

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"missing name", url.Values{"starts_at": {"2026-12-31T22:00"}, "tiers": {"General: 15"}}, "Name is required"},
		{"bad date", url.Values{"name": {"X"}, "starts_at": {"soon"}, "tiers": {"General: 15"}}, "Start time"},
		{"bad tier", url.Values{"name": {"X"}, "starts_at": {"2026-12-31T22:00"}, "tiers": {"General"}}, "Price tier"},
		{"duplicate tier", url.Values{"name": {"X"}, "starts_at": {"2026-12-31T22:00"}, "tiers": {"VIP: 1\nvip: 2"}}, "Duplicate price tier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.post("/admin/create-party", tt.form)
			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			doc := parseHTML(rr.Body)
			assertContainsText(t, doc, ".form-error", tt.want)
			assert.Equal(t, tt.form.Get("starts_at"), doc.Find(`input[name="starts_at"]`).AttrOr("value", ""))
		})
	}

	parties, err := ts.app.PartyService.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, parties)
}

func TestGenerateCodes(t *testing.T) {
	ts := newWebTestServer(t)
	ts.registerAdmin("Olivia")
	pt := ts.createParty("Launch Night")

	ts.app.MockRandom.QueueString("VIPCODE1", "VIPCODE2", "VIPCODE3")
	rr := ts.post(manageURL(pt), url.Values{"price_name": {"VIP"}, "quantity": {"3"}})
	require.Equal(t, http.StatusOK, rr.Code)

	doc := parseHTML(rr.Body)
	assert.Equal(t, []string{"VIPCODE1", "VIPCODE2", "VIPCODE3"}, doc.Find("#generated-codes code").Map(textOf))
	assert.Equal(t, 3, doc.Find("#codes tr.code").Length())
	assertContainsText(t, doc, "#total-codes", "3")
	assertContainsText(t, doc, "#total-used", "0")
	assert.Equal(t, "VIP", doc.Find(`select[name="price_name"] option[selected]`).AttrOr("value", ""))

	// Reloading shows the codes without the one-off banner
	doc = parseHTML(ts.get(manageURL(pt)).Body)
	assertNotContainsElement(t, doc, "#generated-codes")
	assert.Equal(t, 3, doc.Find("#codes tr.code").Length())
}

func TestGenerateCodesErrors(t *testing.T) {
	ts := newWebTestServer(t)
	ts.registerAdmin("Olivia")
	pt := ts.createParty("Launch Night")

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"zero", url.Values{"price_name": {"VIP"}, "quantity": {"0"}}, "between 1 and 100"},
		{"too many", url.Values{"price_name": {"VIP"}, "quantity": {"101"}}, "between 1 and 100"},
		{"not a number", url.Values{"price_name": {"VIP"}, "quantity": {"lots"}}, "must be a number"},
		{"unknown tier", url.Values{"price_name": {"Backstage"}, "quantity": {"1"}}, "price tiers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.post(manageURL(pt), tt.form)
			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			assertContainsText(t, parseHTML(rr.Body), ".form-error", tt.want)
		})
	}

	list, err := ts.app.CodeService.ListForParty(t.Context(), pt.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGuestsSummary(t *testing.T) {
	ts := newWebTestServer(t)
	ts.registerAdmin("Olivia")
	pt := ts.createParty("Launch Night")
	ts.app.MockRandom.QueueString("VIPCODE1")
	ts.post(manageURL(pt), url.Values{"price_name": {"VIP"}, "quantity": {"1"}})

	doc := parseHTML(ts.get(guestsURL(pt)).Body)
	assertContainsElement(t, doc, "#no-guests")
	assert.Equal(t, "/admin/guests-events?id="+url.QueryEscape(string(pt.ID)), doc.Find("#guests").AttrOr("sse-connect", ""))
	assert.Equal(t, "guest-checked-in", doc.Find("#guest-rows").AttrOr("sse-swap", ""))

	member := ts.browser()
	member.registerMember("Max")
	require.Equal(t, http.StatusSeeOther, member.post(eventURL(pt), url.Values{"code": {"VIPCODE1"}}).Code)

	doc = parseHTML(ts.get(guestsURL(pt)).Body)
	assertNotContainsElement(t, doc, "#no-guests")
	assertContainsText(t, doc, "#guest-rows tr.guest", "Max")
	assertContainsText(t, doc, "#guest-rows tr.guest", "VIPCODE1")
	assertContainsText(t, doc, "#total-used", "1")
}

func TestAdminCannotSeeOtherAdminsParties(t *testing.T) {
	owner := newWebTestServer(t)
	owner.registerAdmin("Olivia")
	pt := owner.createParty("Launch Night")

	other := owner.browser()
	other.registerAdmin("Oscar")

	doc := parseHTML(other.get("/admin/my-parties").Body)
	assertContainsElement(t, doc, "#no-parties")

	for _, path := range []string{manageURL(pt), guestsURL(pt), "/admin/guests-events?id=" + string(pt.ID)} {
		rr := other.get(path)
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
		assertContainsElement(t, parseHTML(rr.Body), "#not-found")
	}

	rr := other.post(manageURL(pt), url.Values{"price_name": {"VIP"}, "quantity": {"1"}})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
