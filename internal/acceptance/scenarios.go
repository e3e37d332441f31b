// Package acceptance holds the end-to-end scenarios for the library app and
// a sequential runner. Every scenario drives its own simulated browser.
package acceptance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-library/internal/browser"
	"go-library/internal/storage"
)

// SeededBooks is the minimum book count the seed fixture guarantees.
const SeededBooks = 50

// Env is what a scenario gets to work with.
type Env struct {
	Client *browser.Client
	// Sessions reads server-side session values. It may be nil when the
	// runner has no access to the app's store; session checks are then skipped.
	Sessions      storage.SessionStore
	SessionCookie string
	Admin         Account
	Logger        *zap.Logger
}

type Account struct {
	Username string
	Password string
}

type Scenario struct {
	Name string
	Run  func(ctx context.Context, env *Env) error
}

// Scenarios returns the suite in its canonical order.
func Scenarios() []Scenario {
	return []Scenario{
		{Name: "homepage", Run: homepage},
		{Name: "add-book-requires-login", Run: gatedRedirectsHome("/new-book")},
		{Name: "add-reader-requires-login", Run: gatedRedirectsHome("/new-reader")},
		{Name: "failed-login", Run: failedLogin},
		{Name: "successful-login", Run: successfulLogin},
		{Name: "add-book", Run: addBook},
		{Name: "duplicate-book", Run: duplicateBook},
		{Name: "add-reader", Run: addReader},
		{Name: "duplicate-reader", Run: duplicateReader},
	}
}

// steps runs fns in order and stops at the first error.
func steps(fns ...func() error) error {
	for _, fn := range fns {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

func homepage(ctx context.Context, env *Env) error {
	c := env.Client
	doc, err := c.Request(ctx, "GET", "/")
	if err != nil {
		return err
	}
	return steps(
		func() error { return browser.AssertResponseIsSuccessful(doc) },
		func() error { return browser.AssertSelectorTextContains(doc, "h3", "Books") },
		func() error { return browser.AssertGreaterThanOrEqual(SeededBooks, doc.Count(".book-row")) },
	)
}

func gatedRedirectsHome(path string) func(context.Context, *Env) error {
	return func(ctx context.Context, env *Env) error {
		c := env.Client
		if _, err := c.Request(ctx, "GET", path); err != nil {
			return err
		}
		doc, err := c.FollowRedirect(ctx)
		if err != nil {
			return err
		}
		return steps(
			func() error { return browser.AssertResponseIsSuccessful(doc) },
			func() error { return browser.AssertSelectorTextContains(doc, "h3", "Books") },
		)
	}
}

func failedLogin(ctx context.Context, env *Env) error {
	c := env.Client
	if _, err := c.Request(ctx, "GET", "/"); err != nil {
		return err
	}
	doc, err := c.ClickLink(ctx, "Login")
	if err != nil {
		return err
	}
	if err := browser.AssertResponseIsSuccessful(doc); err != nil {
		return err
	}

	doc, err = c.SubmitForm(ctx, "Login", map[string]string{
		"login[username]": "invalid",
		"login[password]": "data",
	})
	if err != nil {
		return err
	}
	if err := browser.AssertSelectorTextContains(doc, "span", "Wrong credentials"); err != nil {
		return err
	}

	value, ok, err := sessionValue(ctx, env, "isLogin")
	if err != nil || !ok {
		return err
	}
	return browser.AssertEquals("", value)
}

func successfulLogin(ctx context.Context, env *Env) error {
	c := env.Client
	if _, err := c.Request(ctx, "GET", "/"); err != nil {
		return err
	}
	doc, err := c.ClickLink(ctx, "Login")
	if err != nil {
		return err
	}
	if err := browser.AssertResponseIsSuccessful(doc); err != nil {
		return err
	}

	if _, err := c.SubmitForm(ctx, "Login", env.Admin.fields()); err != nil {
		return err
	}
	doc, err = c.FollowRedirect(ctx)
	if err != nil {
		return err
	}
	if err := browser.AssertSelectorTextContains(doc, "h3", "Books"); err != nil {
		return err
	}

	value, ok, err := sessionValue(ctx, env, "isLogin")
	if err != nil || !ok {
		return err
	}
	return browser.AssertEquals("1", value)
}

func addBook(ctx context.Context, env *Env) error {
	name := uniqueName("testBook")
	if err := login(ctx, env); err != nil {
		return err
	}
	doc, err := submitBook(ctx, env.Client, name)
	if err != nil {
		return err
	}
	if doc, err = env.Client.FollowRedirect(ctx); err != nil {
		return err
	}
	return browser.AssertSelectorTextContains(doc, "span", name)
}

func duplicateBook(ctx context.Context, env *Env) error {
	name := uniqueName("testBook")
	if err := login(ctx, env); err != nil {
		return err
	}
	if _, err := submitBook(ctx, env.Client, name); err != nil {
		return err
	}
	if _, err := env.Client.FollowRedirect(ctx); err != nil {
		return err
	}

	doc, err := submitBook(ctx, env.Client, name)
	if err != nil {
		return err
	}
	return browser.AssertSelectorTextContains(doc, "span", "Duplicate Book name")
}

func addReader(ctx context.Context, env *Env) error {
	name := uniqueName("testReader")
	if err := login(ctx, env); err != nil {
		return err
	}
	if _, err := submitReader(ctx, env.Client, name); err != nil {
		return err
	}
	doc, err := env.Client.FollowRedirect(ctx)
	if err != nil {
		return err
	}
	return browser.AssertSelectorTextContains(doc, "span", name)
}

func duplicateReader(ctx context.Context, env *Env) error {
	name := uniqueName("testReader")
	if err := login(ctx, env); err != nil {
		return err
	}
	if _, err := submitReader(ctx, env.Client, name); err != nil {
		return err
	}
	if _, err := env.Client.FollowRedirect(ctx); err != nil {
		return err
	}

	doc, err := submitReader(ctx, env.Client, name)
	if err != nil {
		return err
	}
	return browser.AssertSelectorTextContains(doc, "span", "Duplicate reader name")
}

// login goes straight to the login page and lands back on the book list.
func login(ctx context.Context, env *Env) error {
	c := env.Client
	doc, err := c.Request(ctx, "GET", "/login")
	if err != nil {
		return err
	}
	if err := browser.AssertResponseIsSuccessful(doc); err != nil {
		return err
	}
	if _, err := c.SubmitForm(ctx, "Login", env.Admin.fields()); err != nil {
		return err
	}
	_, err = c.FollowRedirect(ctx)
	return err
}

func submitBook(ctx context.Context, c *browser.Client, name string) (*browser.Document, error) {
	doc, err := c.ClickLink(ctx, "Add/List Books")
	if err != nil {
		return nil, err
	}
	if err := browser.AssertResponseIsSuccessful(doc); err != nil {
		return nil, err
	}
	return c.SubmitForm(ctx, "Add", map[string]string{
		"book[name]":   name,
		"book[author]": "testAuthor",
		"book[genre]":  "horror",
	})
}

func submitReader(ctx context.Context, c *browser.Client, name string) (*browser.Document, error) {
	doc, err := c.ClickLink(ctx, "Add/List Readers")
	if err != nil {
		return nil, err
	}
	if err := browser.AssertResponseIsSuccessful(doc); err != nil {
		return nil, err
	}
	return c.SubmitForm(ctx, "Save", map[string]string{"reader[name]": name})
}

func (a Account) fields() map[string]string {
	return map[string]string{
		"login[username]": a.Username,
		"login[password]": a.Password,
	}
}

// sessionValue reads key from the server-side session behind the client's
// cookie. ok is false when the check has to be skipped.
func sessionValue(ctx context.Context, env *Env, key string) (value string, ok bool, err error) {
	if env.Sessions == nil {
		env.Logger.Warn("No session store configured, skipping session check", zap.String("key", key))
		return "", false, nil
	}
	ck, found := env.Client.Cookie(env.SessionCookie)
	if !found {
		return "", true, nil
	}
	values, err := env.Sessions.LoadSession(ctx, ck.Value)
	if errors.Is(err, storage.ErrNotFound) {
		return "", true, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session: %w", err)
	}
	return values[key], true, nil
}

func uniqueName(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}
