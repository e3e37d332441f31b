// Package headless runs a smoke check of the library app in a real Chrome,
// complementing the simulated browser with actual rendering and form posting.
package headless

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

type Options struct {
	// ExecPath overrides Chrome discovery.
	ExecPath string
	// Visible shows the browser window.
	Visible bool
	Timeout time.Duration
	// Username and Password, when set, add a login round trip to the check.
	Username string
	Password string
}

type SmokeResult struct {
	Title    string
	Heading  string
	BookRows int
	// LoggedIn is set once the navigation shows the Logout link after login.
	LoggedIn bool
}

// Smoke loads baseURL in Chrome, reads the book list and optionally logs in.
func Smoke(ctx context.Context, baseURL string, opts Options, logger *zap.Logger) (SmokeResult, error) {
	log := logger.Named("headless")
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", !opts.Visible),
		chromedp.Flag("disable-gpu", !opts.Visible),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	runCtx, cancel := context.WithTimeout(browserCtx, opts.Timeout)
	defer cancel()

	var res SmokeResult
	home := strings.TrimSuffix(baseURL, "/") + "/"
	err := chromedp.Run(runCtx,
		chromedp.Navigate(home),
		chromedp.WaitVisible("h3", chromedp.ByQuery),
		chromedp.Title(&res.Title),
		chromedp.Text("h3", &res.Heading, chromedp.ByQuery),
		chromedp.Evaluate(`document.querySelectorAll(".book-row").length`, &res.BookRows),
	)
	if err != nil {
		return res, fmt.Errorf("failed to load %s: %w", home, err)
	}
	res.Heading = strings.TrimSpace(res.Heading)
	log.Info("Book list rendered", zap.String("heading", res.Heading), zap.Int("book_rows", res.BookRows))

	if opts.Username == "" {
		return res, nil
	}

	err = chromedp.Run(runCtx,
		chromedp.Navigate(home+"login"),
		chromedp.WaitVisible(`input[name="login[username]"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="login[username]"]`, opts.Username, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="login[password]"]`, opts.Password, chromedp.ByQuery),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
		chromedp.WaitVisible(`nav a[href="/logout"]`, chromedp.ByQuery),
	)
	if err != nil {
		return res, fmt.Errorf("failed to log in: %w", err)
	}
	res.LoggedIn = true
	log.Info("Login round trip done", zap.Bool("logged_in", res.LoggedIn))
	return res, nil
}
