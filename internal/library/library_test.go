package library

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"go-library/internal/storage"
	"go-library/pkg/models"
)

func newTestServer(t *testing.T) (*Server, *storage.Memory) {
	t.Helper()
	creds, err := NewCredentials("admin", "password")
	require.NoError(t, err)

	store := storage.NewMemory()
	srv, err := NewServer(store, Options{Credentials: creds, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	return srv, store
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// loginCookie logs in through the handler and returns the session cookie.
func loginCookie(t *testing.T, srv *Server) *http.Cookie {
	t.Helper()
	rec := serve(srv, postForm("/login", url.Values{
		"login[username]": {"admin"},
		"login[password]": {"password"},
	}))
	require.Equal(t, http.StatusFound, rec.Code)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "LIBSESSID" {
			return ck
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func TestNewServer_RequiresCredentials(t *testing.T) {
	_, err := NewServer(storage.NewMemory(), Options{})
	assert.Error(t, err)
}

func TestCredentials_Check(t *testing.T) {
	creds, err := NewCredentials("admin", "password")
	require.NoError(t, err)

	assert.True(t, creds.Check("admin", "password"))
	assert.False(t, creds.Check("admin", "Password"))
	assert.False(t, creds.Check("invalid", "data"))
	assert.False(t, creds.Check("", ""))
}

func TestHome_ListsBooks(t *testing.T) {
	srv, store := newTestServer(t)
	_, err := storage.Seed(context.Background(), store, 3)
	require.NoError(t, err)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<h3>Books</h3>")
	assert.Equal(t, 3, strings.Count(body, `class="book-row"`))
	assert.Contains(t, body, `<a href="/login">Login</a>`)
	assert.NotContains(t, body, "Add/List Books")
}

func TestGatedPages_RedirectAnonymousVisitors(t *testing.T) {
	srv, store := newTestServer(t)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/new-book", nil),
		httptest.NewRequest(http.MethodGet, "/new-reader", nil),
		postForm("/new-book", url.Values{"book[name]": {"x"}, "book[author]": {"y"}, "book[genre]": {"horror"}}),
		postForm("/new-reader", url.Values{"reader[name]": {"x"}}),
	} {
		rec := serve(srv, req)
		assert.Equal(t, http.StatusFound, rec.Code, "%s %s", req.Method, req.URL.Path)
		assert.Equal(t, "/", rec.Header().Get("Location"))
	}

	n, _ := store.CountBooks(context.Background())
	assert.Zero(t, n, "anonymous POST must not add a book")
}

func TestLogin_WrongCredentials(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(srv, postForm("/login", url.Values{
		"login[username]": {"invalid"},
		"login[password]": {"data"},
	}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<span class="error">Wrong credentials</span>`)
	assert.Contains(t, rec.Body.String(), `value="invalid"`)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogin_StoresSession(t *testing.T) {
	srv, store := newTestServer(t)

	ck := loginCookie(t, srv)
	values, err := store.LoadSession(context.Background(), ck.Value)
	require.NoError(t, err)
	assert.Equal(t, "1", values[LoginKey])

	req := httptest.NewRequest(http.MethodGet, "/new-book", nil)
	req.AddCookie(ck)
	rec := serve(srv, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h3>Add/List Books</h3>")
}

func TestLogout_DropsSession(t *testing.T) {
	srv, store := newTestServer(t)
	ck := loginCookie(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(ck)
	rec := serve(srv, req)
	assert.Equal(t, http.StatusFound, rec.Code)

	_, err := store.LoadSession(context.Background(), ck.Value)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAddBook(t *testing.T) {
	srv, store := newTestServer(t)
	ck := loginCookie(t, srv)
	form := url.Values{"book[name]": {"Carrie"}, "book[author]": {"King"}, "book[genre]": {"horror"}}

	req := postForm("/new-book", form)
	req.AddCookie(ck)
	rec := serve(srv, req)
	require.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "/books/"), location)

	rec = serve(srv, httptest.NewRequest(http.MethodGet, location, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<span class="book-name">Carrie</span>`)

	req = postForm("/new-book", form)
	req.AddCookie(ck)
	rec = serve(srv, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Duplicate Book name")

	books, _ := store.ListBooks(context.Background())
	assert.Equal(t, []string{"Carrie"}, bookNames(books))
}

func TestAddBook_Validation(t *testing.T) {
	srv, _ := newTestServer(t)
	ck := loginCookie(t, srv)

	cases := map[string]url.Values{
		"Book name is required": {"book[name]": {"  "}, "book[author]": {"a"}, "book[genre]": {"horror"}},
		"Author is required":    {"book[name]": {"n"}, "book[author]": {""}, "book[genre]": {"horror"}},
		"Unknown genre":         {"book[name]": {"n"}, "book[author]": {"a"}, "book[genre]": {"cookbook"}},
	}
	for msg, form := range cases {
		req := postForm("/new-book", form)
		req.AddCookie(ck)
		rec := serve(srv, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, msg)
		assert.Contains(t, rec.Body.String(), msg)
	}
}

func TestAddReader(t *testing.T) {
	srv, _ := newTestServer(t)
	ck := loginCookie(t, srv)

	req := postForm("/new-reader", url.Values{"reader[name]": {"Ada"}})
	req.AddCookie(ck)
	rec := serve(srv, req)
	require.Equal(t, http.StatusFound, rec.Code)

	rec = serve(srv, httptest.NewRequest(http.MethodGet, rec.Header().Get("Location"), nil))
	assert.Contains(t, rec.Body.String(), `<span class="reader-name">Ada</span>`)

	req = postForm("/new-reader", url.Values{"reader[name]": {"Ada"}})
	req.AddCookie(ck)
	rec = serve(srv, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Duplicate reader name")
}

func TestShowPages_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/books/42", "/books/abc", "/readers/0", "/nowhere"} {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestRobots(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/robots.txt", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Disallow: /logout")
}

func bookNames(books []models.Book) []string {
	names := make([]string, 0, len(books))
	for _, b := range books {
		names = append(names, b.Name)
	}
	return names
}
