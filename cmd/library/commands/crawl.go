package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-library/internal/browser"
	"go-library/internal/crawler"
	"go-library/internal/crawler/engine"
	"go-library/internal/storage"
	"go-library/pkg/models"
)

func crawlCmd() *cobra.Command {
	var (
		start    string
		login    bool
		maxPages int
	)
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Check every page of the app for broken links",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if start == "" {
				start = cfg.BaseURL
			}

			client := crawler.NewHTTPClient(cfg.RequestTimeout, cfg.MaxRedirects)
			filters := crawler.AllFilters{}
			inDomain, err := crawler.NewInDomainFilter(start)
			if err != nil {
				return err
			}
			filters = append(filters, inDomain)

			if login {
				jar, err := loginJar(ctx, start)
				if err != nil {
					return err
				}
				client.Jar = jar
				filters = append(filters, crawler.ExcludePathFilter{Prefixes: []string{"/logout"}})
			}

			report := &crawler.Report{}
			sinks := engine.MultiSink[models.PageCheck]{report}

			pg, db, err := openPostgres(ctx)
			if err != nil {
				return err
			}
			if pg != nil {
				defer db.Close()
				sinks = append(sinks, &storage.PageCheckSink{Storage: pg})
			}

			domains := crawler.NewDomainManager(client, cfg.UserAgent, cfg.RateLimit, logger)
			processor := &crawler.CheckProcessor{Parser: crawler.NewParser(client, cfg.UserAgent)}
			eng := engine.NewEngine[models.PageCheck](engine.Config{
				Workers:   cfg.Workers,
				BatchSize: cfg.BatchSize,
				MaxPages:  maxPages,
			}, processor, sinks, domains, filters, logger)

			runErr := eng.Run(ctx, start)
			if _, err := report.WriteTo(cmd.OutOrStdout()); err != nil {
				return err
			}
			if runErr != nil {
				return runErr
			}
			if broken := report.Broken(); len(broken) > 0 {
				return fmt.Errorf("%d broken pages", len(broken))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "URL to start from (default $BASE_URL)")
	cmd.Flags().BoolVar(&login, "login", false, "log in as the admin first to reach the gated pages")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop scheduling after this many URLs (0 = no limit)")
	return cmd
}

// loginJar logs in with the simulated browser and hands back its cookies.
func loginJar(ctx context.Context, start string) (http.CookieJar, error) {
	b, err := browser.New(start,
		browser.WithLogger(logger),
		browser.WithTimeout(cfg.RequestTimeout),
		browser.WithUserAgent(cfg.UserAgent),
		browser.WithMaxRedirects(cfg.MaxRedirects),
	)
	if err != nil {
		return nil, err
	}
	if _, err := b.Request(ctx, http.MethodGet, "/login"); err != nil {
		return nil, err
	}
	if _, err := b.SubmitForm(ctx, "Login", map[string]string{
		"login[username]": cfg.AdminUsername,
		"login[password]": cfg.AdminPassword,
	}); err != nil {
		return nil, err
	}
	if _, err := b.FollowRedirect(ctx); err != nil {
		return nil, fmt.Errorf("login was not accepted: %w", err)
	}
	if _, ok := b.Cookie(cfg.SessionCookie); !ok {
		return nil, fmt.Errorf("no %s cookie after login", cfg.SessionCookie)
	}
	logger.Info("Logged in for crawl", zap.String("user", cfg.AdminUsername))
	return b.Jar(), nil
}
