package web_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/services/codes"
)

// setupParty has an admin create a party with codes and returns a fresh
// member browser alongside
func setupParty(t *testing.T, codeValues ...string) (*webTestServer, *model.Party) {
	t.Helper()
	admin := newWebTestServer(t)
	admin.registerAdmin("Olivia")
	pt := admin.createParty("Launch Night")

	if len(codeValues) > 0 {
		admin.app.MockRandom.QueueString(codeValues...)
		_, err := admin.app.CodeService.Generate(t.Context(), codes.GenerateRequest{
			PartyID: pt.ID, PriceName: "VIP", Quantity: len(codeValues),
		})
		require.NoError(t, err)
	}

	member := admin.browser()
	member.registerMember("Max")
	return member, pt
}

func eventURL(pt *model.Party) string {
	return "/app/event-details?id=" + url.QueryEscape(string(pt.ID))
}

func TestWelcomeListsParties(t *testing.T) {
	member, pt := setupParty(t)
	visitor := member.browser()

	rr := visitor.get("/app/welcome")
	require.Equal(t, http.StatusOK, rr.Code)

	doc := parseHTML(rr.Body)
	assertContainsText(t, doc, "#party-list li.party", "Launch Night")
	assertContainsText(t, doc, "#party-list li.party .location", "Warehouse 9")
	assertContainsElement(t, doc, ".cta")
	// Anonymous visitors see names only
	assertNotContainsElement(t, doc, `#party-list a[href="`+eventURL(pt)+`"]`)
}

func TestBarePrefixServesWelcome(t *testing.T) {
	ts := newWebTestServer(t)

	for _, path := range []string{"/app", "/app/"} {
		rr := ts.get(path)
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assertContainsElement(t, parseHTML(rr.Body), "#welcome")
	}
}

func TestDashboardListsPartiesAndTickets(t *testing.T) {
	member, pt := setupParty(t, "VIPCODE1")

	doc := parseHTML(member.get("/app/dashboard").Body)
	assertContainsElement(t, doc, `#party-list a[href="`+eventURL(pt)+`"]`)
	assertContainsElement(t, doc, "#no-tickets")

	member.post(eventURL(pt), url.Values{"code": {"VIPCODE1"}})

	doc = parseHTML(member.get("/app/dashboard").Body)
	assertContainsText(t, doc, "#tickets li.ticket", "Launch Night")
	assertContainsText(t, doc, "#tickets li.ticket .tier", "VIP")
	assertContainsText(t, doc, "#tickets li.ticket code", "VIPCODE1")
}

func TestEventDetailsShowsPrices(t *testing.T) {
	member, pt := setupParty(t)

	rr := member.get(eventURL(pt))
	require.Equal(t, http.StatusOK, rr.Code)

	doc := parseHTML(rr.Body)
	assertContainsText(t, doc, "#event-details h1", "Launch Night")
	assert.Equal(t, 2, doc.Find("#prices tr.tier").Length())
	assertContainsText(t, doc, "#prices", "$50.00")
	assertContainsElement(t, doc, "form#redeem")
	assertNotContainsElement(t, doc, "#ticket")
}

func TestEventDetailsUnknownParty(t *testing.T) {
	member, _ := setupParty(t)

	for _, path := range []string{"/app/event-details?id=nope", "/app/event-details"} {
		rr := member.get(path)
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
		assertContainsElement(t, parseHTML(rr.Body), "#not-found")
	}
}

func TestRedeemCode(t *testing.T) {
	member, pt := setupParty(t, "VIPCODE1")

	rr := member.post(eventURL(pt), url.Values{"code": {" vipcode1 "}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, eventURL(pt), rr.Header().Get("Location"))

	doc := parseHTML(member.followRedirect(rr).Body)
	assertContainsText(t, doc, "#flash", "VIP ticket")
	assertContainsText(t, doc, "#ticket", "VIPCODE1")
	assertNotContainsElement(t, doc, "form#redeem")

	guests, err := member.app.PartyService.Guests(t.Context(), pt.ID)
	require.NoError(t, err)
	require.Len(t, guests, 1)
	assert.Equal(t, "Max", guests[0].User.Name)
}

func TestRedeemErrors(t *testing.T) {
	member, pt := setupParty(t, "VIPCODE1", "VIPCODE2")

	// A second party to own a foreign code
	admin := member.browser()
	admin.registerAdmin("Other Admin")
	other := admin.createParty("Other Party")
	member.app.MockRandom.QueueString("OTHERCD1")
	_, err := member.app.CodeService.Generate(t.Context(), codes.GenerateRequest{PartyID: other.ID, PriceName: "General", Quantity: 1})
	require.NoError(t, err)

	// Someone else already used VIPCODE2
	someone := member.browser()
	someone.registerMember("Sam")
	require.Equal(t, http.StatusSeeOther, someone.post(eventURL(pt), url.Values{"code": {"VIPCODE2"}}).Code)

	tests := []struct {
		name string
		code string
		want string
	}{
		{"unknown code", "ZZZZZZZZ", "doesn't exist"},
		{"malformed code", "abc", "doesn't exist"},
		{"already used", "VIPCODE2", "already been used"},
		{"other party", "OTHERCD1", "different party"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := member.post(eventURL(pt), url.Values{"code": {tt.code}})
			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

			doc := parseHTML(rr.Body)
			assertContainsText(t, doc, ".form-error", tt.want)
			assert.Equal(t, tt.code, doc.Find(`form#redeem input[name="code"]`).AttrOr("value", ""))
		})
	}

	// VIPCODE1 is still redeemable after the failures
	assert.Equal(t, http.StatusSeeOther, member.post(eventURL(pt), url.Values{"code": {"VIPCODE1"}}).Code)
}
