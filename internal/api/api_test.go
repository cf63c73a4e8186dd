package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumbify/rumbify/internal/api"
	"github.com/rumbify/rumbify/internal/api/response"
	"github.com/rumbify/rumbify/internal/factory"
	"github.com/rumbify/rumbify/internal/testutil"
)

// testServer creates a test server with all dependencies
type testServer struct {
	t       *testing.T
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:       testutil.NopLogger(),
		Sessions:     app.Sessions,
		AuthService:  app.AuthService,
		PartyService: app.PartyService,
		CodeService:  app.CodeService,
	})

	return &testServer{t: t, handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

type errorBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func assertError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, rr.Code, rr.Body.String())
	body := decodeBody[errorBody](t, rr)
	assert.False(t, body.Success)
	assert.Equal(t, code, body.Error.Code)
}

// register signs up an account and returns its session token
func (ts *testServer) register(kind, name string) (string, response.User) {
	ts.t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/"+kind+"/register", map[string]string{
		"name":     name,
		"email":    strings.ToLower(name) + "@example.com",
		"password": "password123",
	}, "")
	require.Equal(ts.t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Equal(ts.t, "no-store", rr.Header().Get("Cache-Control"))
	body := decodeBody[response.AuthResponse](ts.t, rr)
	require.True(ts.t, body.Success)
	require.NotEmpty(ts.t, body.SessionToken)
	return body.SessionToken, body.User
}

func (ts *testServer) createParty(token string) response.Party {
	ts.t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/parties", map[string]any{
		"name":      "Launch Night",
		"location":  "Warehouse 9",
		"starts_at": time.Date(2026, 12, 31, 22, 0, 0, 0, time.UTC),
		"price_tiers": []map[string]any{
			{"name": "General", "price_cents": 1500},
			{"name": "VIP", "price_cents": 5000},
		},
	}, token)
	require.Equal(ts.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeBody[response.PartyResponse](ts.t, rr).Party
}

func (ts *testServer) generate(token, partyID, tier string, values ...string) {
	ts.t.Helper()
	ts.app.MockRandom.QueueString(values...)
	rr := ts.request(http.MethodPost, "/api/v1/codes/generate", map[string]any{
		"party_id": partyID, "price_name": tier, "quantity": len(values),
	}, token)
	require.Equal(ts.t, http.StatusCreated, rr.Code, rr.Body.String())
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	token, user := ts.register("members", "Max")
	assert.Equal(t, "member", user.Role)
	assert.False(t, user.IsAdmin)

	rr := ts.request(http.MethodPost, "/api/v1/members/login", map[string]string{"email": "MAX@example.com", "password": "password123"}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	login := decodeBody[response.AuthResponse](t, rr)
	assert.NotEqual(t, token, login.SessionToken)
	assert.Equal(t, user.ID, login.User.ID)

	_, admin := ts.register("admins", "Olivia")
	assert.Equal(t, "admin", admin.Role)
	assert.True(t, admin.IsAdmin)
}

func TestRegisterErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.register("members", "Max")

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"missing name", map[string]string{"email": "a@example.com", "password": "password123"}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"short password", map[string]string{"name": "A", "email": "a@example.com", "password": "short"}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad email", map[string]string{"name": "A", "email": "nope", "password": "password123"}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"duplicate", map[string]string{"name": "A", "email": "max@example.com", "password": "password123"}, http.StatusConflict, "EMAIL_EXISTS"},
		{"unknown field", map[string]string{"name": "A", "email": "b@example.com", "password": "password123", "admin": "yes"}, http.StatusBadRequest, "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request(http.MethodPost, "/api/v1/admins/register", tt.body, "")
			assertError(t, rr, tt.status, tt.code)
		})
	}
}

func TestLoginErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.register("members", "Max")

	rr := ts.request(http.MethodPost, "/api/v1/members/login", map[string]string{"email": "max@example.com", "password": "wrong-password"}, "")
	assertError(t, rr, http.StatusUnauthorized, "INVALID_CREDENTIALS")

	rr = ts.request(http.MethodPost, "/api/v1/admins/login", map[string]string{"email": "max@example.com", "password": "password123"}, "")
	assertError(t, rr, http.StatusForbidden, "WRONG_APP")

	rr = ts.request(http.MethodPost, "/api/v1/members/login", nil, "")
	assertError(t, rr, http.StatusBadRequest, "INVALID_REQUEST")
}

func TestMeAndLogout(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.register("members", "Max")

	rr := ts.request(http.MethodGet, "/api/v1/me", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Max", decodeBody[response.UserResponse](t, rr).User.Name)

	rr = ts.request(http.MethodPatch, "/api/v1/me", map[string]string{"bio": "Dancer"}, token)
	require.Equal(t, http.StatusOK, rr.Code)
	me := decodeBody[response.UserResponse](t, rr).User
	assert.Equal(t, "Max", me.Name)
	assert.Equal(t, "Dancer", me.Bio)

	// The refreshed session sees the update
	rr = ts.request(http.MethodGet, "/api/v1/me", nil, token)
	assert.Equal(t, "Dancer", decodeBody[response.UserResponse](t, rr).User.Bio)

	rr = ts.request(http.MethodPost, "/api/v1/logout", nil, token)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/me", nil, token)
	assertError(t, rr, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/v1/me", "/api/v1/parties"} {
		rr := ts.request(http.MethodGet, path, nil, "")
		assertError(t, rr, http.StatusUnauthorized, "UNAUTHORIZED")

		rr = ts.request(http.MethodGet, path, nil, "bogus")
		assertError(t, rr, http.StatusUnauthorized, "UNAUTHORIZED")
	}
}

func TestPartyEndpoints(t *testing.T) {
	ts := newTestServer(t)
	adminToken, admin := ts.register("admins", "Olivia")
	memberToken, _ := ts.register("members", "Max")

	// Members cannot create parties
	rr := ts.request(http.MethodPost, "/api/v1/parties", map[string]any{"name": "X"}, memberToken)
	assertError(t, rr, http.StatusForbidden, "ADMIN_REQUIRED")

	rr = ts.request(http.MethodPost, "/api/v1/parties", map[string]any{"name": "X"}, adminToken)
	assertError(t, rr, http.StatusBadRequest, "INVALID_PARTY")

	pt := ts.createParty(adminToken)
	assert.Equal(t, admin.ID, pt.AdminID)
	require.Len(t, pt.PriceTiers, 2)
	assert.NotEmpty(t, pt.PriceTiers[0].ID)

	rr = ts.request(http.MethodGet, "/api/v1/parties", nil, memberToken)
	require.Equal(t, http.StatusOK, rr.Code)
	parties := decodeBody[response.PartiesResponse](t, rr).Parties
	require.Len(t, parties, 1)
	assert.Equal(t, "Launch Night", parties[0].Name)

	rr = ts.request(http.MethodGet, "/api/v1/parties/"+pt.ID, nil, memberToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, pt.ID, decodeBody[response.PartyResponse](t, rr).Party.ID)

	rr = ts.request(http.MethodGet, "/api/v1/parties/nope", nil, memberToken)
	assertError(t, rr, http.StatusNotFound, "PARTY_NOT_FOUND")

	// Guest and code lists are for the owner only
	rr = ts.request(http.MethodGet, "/api/v1/parties/"+pt.ID+"/guests", nil, memberToken)
	assertError(t, rr, http.StatusForbidden, "ADMIN_REQUIRED")

	otherToken, _ := ts.register("admins", "Oscar")
	rr = ts.request(http.MethodGet, "/api/v1/parties/"+pt.ID+"/codes", nil, otherToken)
	assertError(t, rr, http.StatusForbidden, "NOT_PARTY_OWNER")
}

func TestGenerateCodes(t *testing.T) {
	ts := newTestServer(t)
	adminToken, _ := ts.register("admins", "Olivia")
	pt := ts.createParty(adminToken)

	ts.app.MockRandom.QueueString("VIPCODE1", "VIPCODE2", "VIPCODE3", "VIPCODE4", "VIPCODE5")
	rr := ts.request(http.MethodPost, "/api/v1/codes/generate", map[string]any{
		"party_id": pt.ID, "price_name": "VIP", "quantity": 5,
	}, adminToken)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	body := decodeBody[response.GenerateCodesResponse](t, rr)
	assert.True(t, body.Success)
	assert.Equal(t, []string{"VIPCODE1", "VIPCODE2", "VIPCODE3", "VIPCODE4", "VIPCODE5"}, body.Codes)
	require.Len(t, body.SavedCodes, 5)
	for _, c := range body.SavedCodes {
		assert.Equal(t, "VIP", c.PriceName)
		assert.False(t, c.AlreadyUsed)
		assert.Equal(t, pt.ID, c.PartyID)
	}

	// By tier id
	ts.app.MockRandom.QueueString("GENCODE1")
	rr = ts.request(http.MethodPost, "/api/v1/codes/generate", map[string]any{
		"party_id": pt.ID, "price_id": pt.PriceTiers[0].ID, "quantity": 1,
	}, adminToken)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "General", decodeBody[response.GenerateCodesResponse](t, rr).SavedCodes[0].PriceName)

	rr = ts.request(http.MethodGet, "/api/v1/parties/"+pt.ID+"/codes", nil, adminToken)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeBody[response.CodesResponse](t, rr)
	assert.Len(t, list.Codes, 6)
	require.NotNil(t, list.Summary)
	assert.Equal(t, 6, list.Summary.Total)
}

func TestGenerateCodesErrors(t *testing.T) {
	ts := newTestServer(t)
	adminToken, _ := ts.register("admins", "Olivia")
	otherAdminToken, _ := ts.register("admins", "Oscar")
	memberToken, _ := ts.register("members", "Max")
	pt := ts.createParty(adminToken)

	tests := []struct {
		name   string
		token  string
		body   map[string]any
		status int
		code   string
	}{
		{"member", memberToken, map[string]any{"party_id": pt.ID, "price_name": "VIP", "quantity": 1}, http.StatusForbidden, "ADMIN_REQUIRED"},
		{"zero quantity", adminToken, map[string]any{"party_id": pt.ID, "price_name": "VIP", "quantity": 0}, http.StatusBadRequest, "INVALID_QUANTITY"},
		{"too many", adminToken, map[string]any{"party_id": pt.ID, "price_name": "VIP", "quantity": 101}, http.StatusBadRequest, "INVALID_QUANTITY"},
		{"unknown tier", adminToken, map[string]any{"party_id": pt.ID, "price_name": "Backstage", "quantity": 1}, http.StatusBadRequest, "PRICE_TIER_NOT_FOUND"},
		{"no tier", adminToken, map[string]any{"party_id": pt.ID, "quantity": 1}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"unknown party", adminToken, map[string]any{"party_id": "nope", "price_name": "VIP", "quantity": 1}, http.StatusNotFound, "PARTY_NOT_FOUND"},
		{"bad quantity for unknown party", adminToken, map[string]any{"party_id": "nope", "price_name": "VIP", "quantity": 0}, http.StatusBadRequest, "INVALID_QUANTITY"},
		{"bad quantity for foreign party", otherAdminToken, map[string]any{"party_id": pt.ID, "price_name": "VIP", "quantity": 500}, http.StatusBadRequest, "INVALID_QUANTITY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request(http.MethodPost, "/api/v1/codes/generate", tt.body, tt.token)
			assertError(t, rr, tt.status, tt.code)
		})
	}

	rr := ts.request(http.MethodGet, "/api/v1/parties/"+pt.ID+"/codes", nil, adminToken)
	assert.Empty(t, decodeBody[response.CodesResponse](t, rr).Codes)
}

func TestValidateAndRedeem(t *testing.T) {
	ts := newTestServer(t)
	adminToken, _ := ts.register("admins", "Olivia")
	memberToken, member := ts.register("members", "Max")
	otherToken, other := ts.register("members", "Sam")
	pt := ts.createParty(adminToken)
	ts.generate(adminToken, pt.ID, "VIP", "VIPCODE1", "VIPCODE2")

	rr := ts.request(http.MethodPost, "/api/v1/codes/validate", map[string]string{"code": " vipcode1 "}, memberToken)
	require.Equal(t, http.StatusOK, rr.Code)
	v := decodeBody[response.ValidateCodeResponse](t, rr)
	assert.Equal(t, "VIPCODE1", v.Code)
	assert.True(t, v.Valid)
	assert.False(t, v.AlreadyUsed)

	rr = ts.request(http.MethodPost, "/api/v1/codes/validate", map[string]string{"code": "ZZZZZZZZ"}, memberToken)
	assertError(t, rr, http.StatusNotFound, "CODE_NOT_FOUND")

	// Members cannot redeem for someone else
	rr = ts.request(http.MethodPost, "/api/v1/codes/redeem", map[string]string{"code": "VIPCODE1", "user_id": other.ID}, memberToken)
	assertError(t, rr, http.StatusForbidden, "FORBIDDEN")

	rr = ts.request(http.MethodPost, "/api/v1/codes/redeem", map[string]string{"code": "VIPCODE1"}, memberToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	guest := decodeBody[response.RedeemCodeResponse](t, rr).Guest
	assert.Equal(t, member.ID, guest.User.ID)
	assert.Equal(t, "VIP", guest.PriceName)

	rr = ts.request(http.MethodPost, "/api/v1/codes/redeem", map[string]string{"code": "VIPCODE1"}, otherToken)
	assertError(t, rr, http.StatusConflict, "CODE_ALREADY_USED")

	rr = ts.request(http.MethodPost, "/api/v1/codes/validate", map[string]string{"code": "VIPCODE1"}, memberToken)
	v = decodeBody[response.ValidateCodeResponse](t, rr)
	assert.False(t, v.Valid)
	assert.True(t, v.AlreadyUsed)

	rr = ts.request(http.MethodPost, "/api/v1/codes/redeem", map[string]string{"code": "VIPCODE2", "party_id": "other"}, otherToken)
	assertError(t, rr, http.StatusConflict, "CODE_WRONG_PARTY")

	// The owning admin can check a member in
	ts.app.MockClock.Advance(time.Minute)
	rr = ts.request(http.MethodPost, "/api/v1/codes/redeem", map[string]string{"code": "VIPCODE2", "user_id": other.ID}, adminToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ts.request(http.MethodGet, "/api/v1/parties/"+pt.ID+"/guests", nil, adminToken)
	require.Equal(t, http.StatusOK, rr.Code)
	guests := decodeBody[response.GuestsResponse](t, rr).Guests
	require.Len(t, guests, 2)
	assert.Equal(t, "VIPCODE1", guests[0].Code)
	assert.Equal(t, "VIPCODE2", guests[1].Code)
}

func TestAdminCannotRedeemAtOthersParty(t *testing.T) {
	ts := newTestServer(t)
	ownerToken, _ := ts.register("admins", "Olivia")
	otherToken, _ := ts.register("admins", "Oscar")
	_, member := ts.register("members", "Max")
	pt := ts.createParty(ownerToken)
	ts.generate(ownerToken, pt.ID, "VIP", "VIPCODE1")

	rr := ts.request(http.MethodPost, "/api/v1/codes/redeem", map[string]string{"code": "VIPCODE1", "user_id": member.ID}, otherToken)
	assertError(t, rr, http.StatusForbidden, "NOT_PARTY_OWNER")
}

func TestUnknownRouteAndMethod(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/nope", nil, "")
	assertError(t, rr, http.StatusNotFound, "NOT_FOUND")

	rr = ts.request(http.MethodDelete, "/api/v1/health", nil, "")
	assertError(t, rr, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")

	// session routes answer 405 before asking for a token
	rr = ts.request(http.MethodDelete, "/api/v1/parties", nil, "")
	assertError(t, rr, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")

	rr = ts.request(http.MethodGet, "/api/v1/codes/redeem", nil, "")
	assertError(t, rr, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")
}
