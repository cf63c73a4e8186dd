package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumbify/rumbify/internal/api"
	"github.com/rumbify/rumbify/internal/cli"
	"github.com/rumbify/rumbify/internal/factory"
	"github.com/rumbify/rumbify/internal/model"
	"github.com/rumbify/rumbify/internal/testutil"
	"github.com/rumbify/rumbify/internal/web"
)

type cliEnv struct {
	t         *testing.T
	app       *factory.TestApp
	serverURL string
	tokenFile string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	t.Setenv("RUMBIFY_TOKEN", "")

	app := factory.NewTestApp()
	logger := testutil.NopLogger()

	mux := http.NewServeMux()
	mux.Handle("/api/", api.NewRouter(api.RouterConfig{
		Logger:       logger,
		Sessions:     app.Sessions,
		AuthService:  app.AuthService,
		PartyService: app.PartyService,
		CodeService:  app.CodeService,
	}))
	mux.Handle("/", web.NewRouter(web.RouterConfig{
		Logger:       logger,
		Sessions:     app.Sessions,
		AuthService:  app.AuthService,
		PartyService: app.PartyService,
		CodeService:  app.CodeService,
		HubManager:   app.HubManager,
		StaticDir:    t.TempDir(),
	}))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		_ = app.Close()
		server.Close()
	})

	return &cliEnv{
		t:         t,
		app:       app,
		serverURL: server.URL,
		tokenFile: filepath.Join(t.TempDir(), "token"),
	}
}

// withTokenFile returns an env sharing the server but not the saved token
func (e *cliEnv) withTokenFile(name string) *cliEnv {
	other := *e
	other.tokenFile = filepath.Join(e.t.TempDir(), name)
	return &other
}

func (e *cliEnv) runCtx(ctx context.Context, format string, args ...string) (string, error) {
	root := cli.NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{
		"--server", e.serverURL,
		"--token-file", e.tokenFile,
		"--output", format,
	}, args...))

	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func (e *cliEnv) run(args ...string) (string, error) {
	return e.runCtx(context.Background(), "json", args...)
}

func (e *cliEnv) runText(args ...string) (string, error) {
	return e.runCtx(context.Background(), "text", args...)
}

func decodeOutput[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func (e *cliEnv) register(kind, name, email string) cli.AuthResult {
	e.t.Helper()
	out, err := e.run(kind, "register", "--name", name, "--email", email, "--pass", "password123")
	require.NoError(e.t, err, out)
	return decodeOutput[cli.AuthResult](e.t, out)
}

func (e *cliEnv) createParty() cli.Party {
	e.t.Helper()
	out, err := e.run("party", "create",
		"--name", "Launch Night",
		"--location", "Warehouse 9",
		"--starts-at", "2026-12-31T22:00",
		"--tier", "General: 15",
		"--tier", "VIP: $50.00")
	require.NoError(e.t, err, out)
	return decodeOutput[cli.Party](e.t, out)
}

func TestHealth(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run("health")
	require.NoError(t, err)
	health := decodeOutput[cli.HealthResult](t, out)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, env.serverURL, health.Server)
	assert.NotEmpty(t, health.Latency)

	out, err = env.runText("health")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Status: ok\nServer: "+env.serverURL+" ("), out)
}

func TestPrintErrorAddsHint(t *testing.T) {
	reqErr := &cli.RequestError{Status: 401, Code: "UNAUTHORIZED", Message: "Authentication required"}

	var text bytes.Buffer
	cli.NewOutput("text", io.Discard).PrintError(&text, reqErr)
	assert.Equal(t, "Error: Authentication required (UNAUTHORIZED)\n"+
		"Hint: log in with `rumbify member login` or `rumbify admin login`\n", text.String())

	var js bytes.Buffer
	cli.NewOutput("json", io.Discard).PrintError(&js, reqErr)
	var body struct {
		Error struct {
			Status  int    `json:"status"`
			Code    string `json:"code"`
			Message string `json:"message"`
			Hint    string `json:"hint"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(js.Bytes(), &body))
	assert.Equal(t, 401, body.Error.Status)
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
	assert.Equal(t, "Authentication required", body.Error.Message)
	assert.NotEmpty(t, body.Error.Hint)

	var plain bytes.Buffer
	cli.NewOutput("text", io.Discard).PrintError(&plain, errors.New("boom"))
	assert.Equal(t, "Error: boom\n", plain.String())
}

func TestRequestErrorIsTyped(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("me")
	require.Error(t, err)
	var reqErr *cli.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, 401, reqErr.Status)
	assert.Equal(t, "UNAUTHORIZED", reqErr.Code)
}

func TestAccountCommands(t *testing.T) {
	env := newCLIEnv(t)

	auth := env.register("member", "Max", "max@example.com")
	assert.Equal(t, "Max", auth.User.Name)
	assert.Equal(t, "member", auth.User.Role)
	assert.NotEmpty(t, auth.SessionToken)

	// The token was saved
	saved, err := os.ReadFile(env.tokenFile)
	require.NoError(t, err)
	assert.Equal(t, auth.SessionToken, string(saved))

	out, err := env.run("me")
	require.NoError(t, err, out)
	assert.Equal(t, auth.User.ID, decodeOutput[cli.User](t, out).ID)

	out, err = env.run("me", "update", "--bio", "Dancer")
	require.NoError(t, err, out)
	me := decodeOutput[cli.User](t, out)
	assert.Equal(t, "Dancer", me.Bio)
	assert.Equal(t, "Max", me.Name)

	_, err = env.run("me", "update")
	assert.Error(t, err)

	out, err = env.runText("logout")
	require.NoError(t, err)
	assert.Equal(t, "Logged out\n", out)
	_, err = os.Stat(env.tokenFile)
	assert.True(t, os.IsNotExist(err))

	_, err = env.run("me")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNAUTHORIZED")

	// Logging in again saves a fresh token
	out, err = env.run("member", "login", "--email", "max@example.com", "--pass", "password123")
	require.NoError(t, err, out)
	login := decodeOutput[cli.AuthResult](t, out)
	assert.NotEqual(t, auth.SessionToken, login.SessionToken)

	_, err = env.run("admin", "login", "--email", "max@example.com", "--pass", "password123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WRONG_APP")
}

func TestInvalidGlobalFlags(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.runCtx(context.Background(), "yaml", "health")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown output format "yaml"`)

	_, err = env.run("--server", "localhost:8080", "health")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server must be an http(s) URL")
}

func TestTokenFlagOverridesFile(t *testing.T) {
	env := newCLIEnv(t)
	admin := env.register("admin", "Olivia", "olivia@example.com")
	member := env.withTokenFile("member").register("member", "Max", "max@example.com")

	out, err := env.run("--token", member.SessionToken, "me")
	require.NoError(t, err, out)
	assert.Equal(t, "Max", decodeOutput[cli.User](t, out).Name)

	out, err = env.run("me")
	require.NoError(t, err, out)
	assert.Equal(t, admin.User.ID, decodeOutput[cli.User](t, out).ID)
}

func TestPartyAndCodeCommands(t *testing.T) {
	env := newCLIEnv(t)
	env.register("admin", "Olivia", "olivia@example.com")
	member := env.withTokenFile("member")
	guest := member.register("member", "Max", "max@example.com")

	pt := env.createParty()
	assert.Equal(t, "Launch Night", pt.Name)
	assert.Equal(t, time.Date(2026, 12, 31, 22, 0, 0, 0, time.UTC), pt.StartsAt.UTC())
	require.Len(t, pt.PriceTiers, 2)
	assert.Equal(t, int64(5000), pt.PriceTiers[1].PriceCents)

	// Members cannot create parties
	_, err := member.run("party", "create", "--name", "X", "--starts-at", "2026-12-31T22:00", "--tier", "A: 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_REQUIRED")

	_, err = env.run("party", "create", "--name", "X", "--starts-at", "someday", "--tier", "A: 1")
	assert.Error(t, err)

	out, err := member.run("party", "list")
	require.NoError(t, err, out)
	parties := decodeOutput[cli.PartyList](t, out).Parties
	require.Len(t, parties, 1)
	assert.Equal(t, pt.ID, parties[0].ID)

	out, err = member.run("party", "get", pt.ID)
	require.NoError(t, err, out)
	assert.Equal(t, "Warehouse 9", decodeOutput[cli.Party](t, out).Location)

	env.app.MockRandom.QueueString("VIPCODE1", "VIPCODE2")
	out, err = env.run("codes", "generate", "--party", pt.ID, "--tier", "VIP", "-n", "2")
	require.NoError(t, err, out)
	generated := decodeOutput[cli.GenerateResult](t, out)
	assert.Equal(t, []string{"VIPCODE1", "VIPCODE2"}, generated.Codes)

	_, err = env.run("codes", "generate", "--party", pt.ID, "--tier", "VIP", "-n", "101")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_QUANTITY")

	out, err = member.run("codes", "validate", "vipcode1")
	require.NoError(t, err, out)
	assert.True(t, decodeOutput[cli.Validation](t, out).Valid)

	out, err = member.run("codes", "redeem", "VIPCODE1", "--party", pt.ID)
	require.NoError(t, err, out)
	redeemed := decodeOutput[cli.Guest](t, out)
	assert.Equal(t, guest.User.ID, redeemed.User.ID)
	assert.Equal(t, "VIP", redeemed.PriceName)

	_, err = member.run("codes", "redeem", "VIPCODE1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CODE_ALREADY_USED")

	out, err = env.run("party", "guests", pt.ID)
	require.NoError(t, err, out)
	guests := decodeOutput[cli.GuestList](t, out).Guests
	require.Len(t, guests, 1)
	assert.Equal(t, "Max", guests[0].User.Name)

	out, err = env.run("party", "codes", pt.ID)
	require.NoError(t, err, out)
	codes := decodeOutput[cli.CodeList](t, out)
	assert.Len(t, codes.Codes, 2)
	require.NotNil(t, codes.Summary)
	assert.Equal(t, 1, codes.Summary.Used)

	_, err = member.run("party", "codes", pt.ID)
	assert.Error(t, err)
}

func TestTextOutput(t *testing.T) {
	env := newCLIEnv(t)
	env.register("admin", "Olivia", "olivia@example.com")
	pt := env.createParty()

	out, err := env.runText("party", "get", pt.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Party: Launch Night")
	assert.Contains(t, out, "VIP: $50.00")
	assert.Contains(t, out, "General: $15.00")

	env.app.MockRandom.QueueString("GENCODE1")
	out, err = env.runText("codes", "generate", "--party", pt.ID, "--tier-id", pt.PriceTiers[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Generated 1 General codes:")
	assert.Contains(t, out, "GENCODE1")

	out, err = env.runText("codes", "validate", "GENCODE1")
	require.NoError(t, err)
	assert.Contains(t, out, "GENCODE1 is valid: General ticket")
}

func TestWatchPrintsCheckIns(t *testing.T) {
	env := newCLIEnv(t)
	env.register("admin", "Olivia", "olivia@example.com")
	guest := env.withTokenFile("member").register("member", "Max", "max@example.com")
	pt := env.createParty()

	env.app.MockRandom.QueueString("VIPCODE1")
	_, err := env.run("codes", "generate", "--party", pt.ID, "--tier", "VIP")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := env.runCtx(ctx, "text", "party", "watch", pt.ID, "--limit", "1")
		done <- result{out, err}
	}()

	require.Eventually(t, func() bool {
		hub := env.app.HubManager.GetHub(model.PartyID(pt.ID))
		return hub != nil && hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err = env.app.CodeService.Redeem(ctx, "VIPCODE1", model.UserID(guest.User.ID), "")
	require.NoError(t, err)

	res := <-done
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "Watching party "+pt.ID)
	assert.Contains(t, res.out, "guest-checked-in: Max | max@example.com | VIP | VIPCODE1")
}

func TestWatchRequiresAdminSession(t *testing.T) {
	env := newCLIEnv(t)
	env.register("member", "Max", "max@example.com")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := env.runCtx(ctx, "text", "party", "watch", "some-party")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not signed in as an admin")
}
