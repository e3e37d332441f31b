// Package browser is a simulated browser for acceptance tests: an HTTP client
// with a cookie jar and an HTML parser that requests pages, clicks links,
// submits forms and follows redirects without a real browser engine.
//
// A Client is not safe for concurrent use. Create one per test case; the
// cookie jar and the current document live and die with it.
package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultMaxRedirects = 10
	defaultUserAgent    = "LibraryAcceptance/1.0"
)

type Client struct {
	base         *url.URL
	http         *http.Client
	jar          http.CookieJar
	log          *zap.Logger
	userAgent    string
	autoFollow   bool
	maxRedirects int

	doc     *Document
	last    lastRequest
	history []*url.URL
}

// lastRequest is kept so 307/308 redirects can replay method and body.
type lastRequest struct {
	method string
	body   url.Values
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.log = logger }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithFollowRedirects makes every request follow redirects on its own.
func WithFollowRedirects(follow bool) Option {
	return func(c *Client) { c.autoFollow = follow }
}

func WithMaxRedirects(n int) Option {
	return func(c *Client) { c.maxRedirects = n }
}

// WithJar replaces the fresh cookie jar, e.g. to continue another client's session.
func WithJar(jar http.CookieJar) Option {
	return func(c *Client) {
		c.jar = jar
		c.http.Jar = jar
	}
}

// New returns a client whose relative paths resolve against baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		base: base,
		jar:  jar,
		http: &http.Client{
			Jar:     jar,
			Timeout: defaultTimeout,
			// Redirects are surfaced to the caller, who follows them explicitly.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log:          zap.NewNop(),
		userAgent:    defaultUserAgent,
		maxRedirects: defaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Named("browser")
	return c, nil
}

// Document returns the last response, or nil before the first request.
func (c *Client) Document() *Document { return c.doc }

// Jar returns the cookie jar so other HTTP clients can share the session.
func (c *Client) Jar() http.CookieJar { return c.jar }

// Cookie returns the named cookie the jar would send to the current page.
func (c *Client) Cookie(name string) (*http.Cookie, bool) {
	for _, ck := range c.jar.Cookies(c.currentURL()) {
		if ck.Name == name {
			return ck, true
		}
	}
	return nil, false
}

// History lists the URLs of every document loaded so far, oldest first.
func (c *Client) History() []*url.URL {
	return append([]*url.URL(nil), c.history...)
}

func (c *Client) currentURL() *url.URL {
	if c.doc != nil {
		return c.doc.URL
	}
	return c.base
}

func (c *Client) resolve(ref string) (*url.URL, error) {
	u, err := c.currentURL().Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", ref, err)
	}
	return u, nil
}

// Request issues method to path (relative to the current page, or the base
// URL before the first request). Any HTTP status is a successful response at
// this level; only transport failures return a *NetworkError.
func (c *Client) Request(ctx context.Context, method, path string) (*Document, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}
	return c.navigate(ctx, strings.ToUpper(method), target, nil)
}

// FollowRedirect requests the Location of the last response. It fails with a
// *NoRedirectError unless that response was a 3xx carrying a Location.
func (c *Client) FollowRedirect(ctx context.Context) (*Document, error) {
	if c.doc == nil {
		return nil, &NoRedirectError{}
	}
	target, ok := c.doc.Location()
	if !c.doc.IsRedirect() || !ok {
		return nil, &NoRedirectError{Status: c.doc.StatusCode, URL: c.doc.URL.String()}
	}
	return c.do(ctx, c.redirectMethod(), target, c.redirectBody())
}

func (c *Client) redirectMethod() string {
	switch c.doc.StatusCode {
	case http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return c.last.method
	}
	return http.MethodGet
}

func (c *Client) redirectBody() url.Values {
	if c.redirectMethod() == http.MethodGet {
		return nil
	}
	return c.last.body
}

// ClickLink follows the first link whose visible text equals text.
func (c *Client) ClickLink(ctx context.Context, text string) (*Document, error) {
	if c.doc == nil {
		return nil, &ElementNotFoundError{Kind: "document"}
	}
	a, ok := c.doc.Link(text)
	if !ok {
		return nil, &ElementNotFoundError{Kind: "link", Query: text, URL: c.doc.URL.String()}
	}
	target, err := c.resolve(htmlquery.SelectAttr(a, "href"))
	if err != nil {
		return nil, err
	}
	return c.navigate(ctx, http.MethodGet, target, nil)
}

// SubmitForm submits the form owning the submit control labelled buttonText.
// fields overlays the form's default values; naming a field the form does not
// have is an *ElementNotFoundError.
func (c *Client) SubmitForm(ctx context.Context, buttonText string, fields map[string]string) (*Document, error) {
	if c.doc == nil {
		return nil, &ElementNotFoundError{Kind: "document"}
	}
	control, formNode, ok := c.doc.SubmitControl(buttonText)
	if !ok {
		return nil, &ElementNotFoundError{Kind: "button", Query: buttonText, URL: c.doc.URL.String()}
	}

	form := NewForm(c.doc, formNode, control)
	for name, value := range fields {
		if !form.Set(name, value) {
			return nil, &ElementNotFoundError{Kind: "field", Query: name, URL: c.doc.URL.String()}
		}
	}

	method, target, body := form.Request()
	return c.navigate(ctx, method, target, body)
}

// Back reloads the previous page in the history with a GET.
func (c *Client) Back(ctx context.Context) (*Document, error) {
	if len(c.history) < 2 {
		return nil, fmt.Errorf("no previous page in history")
	}
	prev := c.history[len(c.history)-2]
	c.history = c.history[:len(c.history)-2]
	return c.navigate(ctx, http.MethodGet, prev, nil)
}

// Reload requests the current page again with a GET.
func (c *Client) Reload(ctx context.Context) (*Document, error) {
	if c.doc == nil {
		return nil, &ElementNotFoundError{Kind: "document"}
	}
	return c.navigate(ctx, http.MethodGet, c.doc.URL, nil)
}

// navigate performs one request and, when auto-follow is on, chases redirects.
func (c *Client) navigate(ctx context.Context, method string, target *url.URL, body url.Values) (*Document, error) {
	doc, err := c.do(ctx, method, target, body)
	if err != nil || !c.autoFollow {
		return doc, err
	}
	for hops := 0; doc.IsRedirect(); hops++ {
		if _, ok := doc.Location(); !ok {
			return doc, nil
		}
		if hops >= c.maxRedirects {
			return doc, &TooManyRedirectsError{Max: c.maxRedirects, URL: doc.URL.String()}
		}
		if doc, err = c.FollowRedirect(ctx); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func (c *Client) do(ctx context.Context, method string, target *url.URL, body url.Values) (*Document, error) {
	var reader io.Reader
	if body != nil {
		reader = strings.NewReader(body.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if c.doc != nil {
		req.Header.Set("Referer", c.doc.URL.String())
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: target.String(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: target.String(), Err: err}
	}

	doc, err := NewDocument(resp.Request.URL, resp.StatusCode, resp.Header, raw)
	if err != nil {
		return nil, err
	}

	c.log.Debug("Request complete",
		zap.String("method", method),
		zap.String("url", target.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	c.doc = doc
	c.last = lastRequest{method: method, body: body}
	c.history = append(c.history, doc.URL)
	return doc, nil
}
