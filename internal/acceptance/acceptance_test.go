package acceptance

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"go-library/internal/browser"
	"go-library/internal/library"
	"go-library/internal/storage"
)

var admin = Account{Username: "admin", Password: "password"}

type testApp struct {
	URL   string
	Store *storage.Memory
}

// startApp serves the real library app over an in-memory store seeded with books.
func startApp(t *testing.T, books int) *testApp {
	t.Helper()
	store := storage.NewMemory()
	_, err := storage.Seed(context.Background(), store, books)
	require.NoError(t, err)

	creds, err := library.NewCredentials(admin.Username, admin.Password)
	require.NoError(t, err)
	srv, err := library.NewServer(store, library.Options{Credentials: creds, Logger: zap.NewNop()})
	require.NoError(t, err)

	server := httptest.NewServer(srv.Handler())
	t.Cleanup(server.Close)
	return &testApp{URL: server.URL, Store: store}
}

func newEnv(t *testing.T, app *testApp) *Env {
	t.Helper()
	client, err := browser.New(app.URL, browser.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return &Env{
		Client:        client,
		Sessions:      app.Store,
		SessionCookie: "LIBSESSID",
		Admin:         admin,
		Logger:        zaptest.NewLogger(t),
	}
}

func TestScenarios_PassAgainstSeededApp(t *testing.T) {
	app := startApp(t, SeededBooks)

	for _, sc := range Scenarios() {
		t.Run(sc.Name, func(t *testing.T) {
			require.NoError(t, sc.Run(context.Background(), newEnv(t, app)))
		})
	}
}

func TestHomepage_FailsBelowSeedCount(t *testing.T) {
	app := startApp(t, SeededBooks-1)

	err := homepage(context.Background(), newEnv(t, app))
	var ae *browser.AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, SeededBooks-1, ae.Actual)
}

func TestLogin_OnlyAdminCredentialsSetTheSession(t *testing.T) {
	app := startApp(t, 1)
	ctx := context.Background()

	pairs := []Account{
		{Username: "invalid", Password: "data"},
		{Username: "admin", Password: "wrong"},
		{Username: "Admin", Password: "password"},
		{Username: "", Password: ""},
	}
	for _, pair := range pairs {
		env := newEnv(t, app)
		_, err := env.Client.Request(ctx, "GET", "/login")
		require.NoError(t, err)
		doc, err := env.Client.SubmitForm(ctx, "Login", pair.fields())
		require.NoError(t, err, "%+v", pair)
		assert.NoError(t, browser.AssertSelectorTextContains(doc, "span", library.MsgWrongCredentials))

		value, ok, err := sessionValue(ctx, env, library.LoginKey)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, value, "%+v", pair)
	}

	env := newEnv(t, app)
	require.NoError(t, login(ctx, env))
	value, ok, err := sessionValue(ctx, env, library.LoginKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", value)
}

func TestSuccessfulLogin_FailsWithWrongAdminPassword(t *testing.T) {
	app := startApp(t, 1)
	env := newEnv(t, app)
	env.Admin = Account{Username: "admin", Password: "nope"}

	// The app re-renders the form instead of redirecting.
	err := successfulLogin(context.Background(), env)
	var noRedirect *browser.NoRedirectError
	assert.ErrorAs(t, err, &noRedirect)
}

func TestScenarios_SkipSessionChecksWithoutStore(t *testing.T) {
	app := startApp(t, 1)
	env := newEnv(t, app)
	env.Sessions = nil

	assert.NoError(t, successfulLogin(context.Background(), env))
}

func TestDuplicateBook_SecondSubmissionShowsError(t *testing.T) {
	app := startApp(t, 1)
	require.NoError(t, duplicateBook(context.Background(), newEnv(t, app)))

	books, err := app.Store.ListBooks(context.Background())
	require.NoError(t, err)
	var added int
	for _, b := range books {
		if strings.HasPrefix(b.Name, "testBook-") {
			added++
		}
	}
	assert.Equal(t, 1, added)
}

func TestRunner_Report(t *testing.T) {
	app := startApp(t, SeededBooks)
	runner := NewRunner(RunnerConfig{
		BaseURL:  app.URL,
		Admin:    admin,
		Sessions: app.Store,
	}, zaptest.NewLogger(t))

	report := runner.Run(context.Background(), Scenarios())
	require.Len(t, report.Results, len(Scenarios()))
	assert.Empty(t, report.Failed(), report.String())
	assert.Contains(t, report.String(), "9 passed, 0 failed")
}

func TestRunner_FilterAndFailures(t *testing.T) {
	app := startApp(t, 10)
	runner := NewRunner(RunnerConfig{BaseURL: app.URL, Admin: admin}, zaptest.NewLogger(t))

	report := runner.Run(context.Background(), Scenarios(), "homepage", "requires-login")
	require.Len(t, report.Results, 3)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "homepage", failed[0].Name)
	assert.Contains(t, report.String(), "FAIL homepage")
}

func TestRunner_UnreachableApp(t *testing.T) {
	server := httptest.NewServer(nil)
	url := server.URL
	server.Close()

	runner := NewRunner(RunnerConfig{BaseURL: url, Admin: admin}, zaptest.NewLogger(t))
	report := runner.Run(context.Background(), Scenarios(), "homepage")

	require.Len(t, report.Results, 1)
	var netErr *browser.NetworkError
	assert.ErrorAs(t, report.Results[0].Err, &netErr)
}

func TestRunner_CancelledContext(t *testing.T) {
	app := startApp(t, 1)
	runner := NewRunner(RunnerConfig{BaseURL: app.URL, Admin: admin}, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := runner.Run(ctx, Scenarios())
	assert.Len(t, report.Failed(), len(Scenarios()))
}
