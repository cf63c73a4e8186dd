package web_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSSE_EndpointHeaders verifies the guests stream returns SSE headers
func TestSSE_EndpointHeaders(t *testing.T) {
	ts := newWebTestServer(t)
	ts.registerAdmin("Olivia")
	pt := ts.createParty("Launch Night")

	req := httptest.NewRequest(http.MethodGet, "/admin/guests-events?id="+url.QueryEscape(string(pt.ID)), nil)
	ts.cookies.addTo(req)

	// Use a context with timeout since SSE is a long-running connection
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rr.Header().Get("Cache-Control"))
	assert.Equal(t, "no", rr.Header().Get("X-Accel-Buffering"))
	assert.Contains(t, rr.Body.String(), "event: connected")
}

// TestSSE_MemberRedemptionReachesAdmin streams a check-in to the organiser
func TestSSE_MemberRedemptionReachesAdmin(t *testing.T) {
	ts := newWebTestServer(t)
	ts.registerAdmin("Olivia")
	pt := ts.createParty("Launch Night")
	ts.app.MockRandom.QueueString("VIPCODE1")
	require.Equal(t, http.StatusOK, ts.post(manageURL(pt), url.Values{"price_name": {"VIP"}, "quantity": {"1"}}).Code)

	server := httptest.NewServer(ts.handler)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/admin/guests-events?id="+url.QueryEscape(string(pt.ID)), nil)
	require.NoError(t, err)
	ts.cookies.addTo(req)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "event: connected\n", line)

	hub := ts.app.HubManager.GetHub(pt.ID)
	require.NotNil(t, hub)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	member := ts.browser()
	member.registerMember("Max")
	require.Equal(t, http.StatusSeeOther, member.post(eventURL(pt), url.Values{"code": {"VIPCODE1"}}).Code)

	var event, data string
	for event == "" || data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		switch {
		case strings.HasPrefix(line, "event: guest-checked-in"):
			event = line
		case event != "" && strings.HasPrefix(line, "data: "):
			data = line
		}
	}
	assert.Contains(t, data, `class="guest"`)
	assert.Contains(t, data, "Max")
	assert.Contains(t, data, "VIPCODE1")
}
