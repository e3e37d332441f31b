package acceptance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"go-library/internal/browser"
	"go-library/internal/storage"
)

type Result struct {
	Name     string
	Err      error
	Duration time.Duration
}

func (r Result) Passed() bool { return r.Err == nil }

type Report struct {
	Results []Result
}

func (r Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.Passed() {
			failed = append(failed, res)
		}
	}
	return failed
}

func (r Report) String() string {
	var b strings.Builder
	for _, res := range r.Results {
		status := "PASS"
		if !res.Passed() {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "%s %-28s %s\n", status, res.Name, res.Duration.Round(time.Millisecond))
		if res.Err != nil {
			fmt.Fprintf(&b, "     %v\n", res.Err)
		}
	}
	fmt.Fprintf(&b, "%d passed, %d failed\n", len(r.Results)-len(r.Failed()), len(r.Failed()))
	return b.String()
}

type RunnerConfig struct {
	BaseURL       string
	Admin         Account
	SessionCookie string
	Sessions      storage.SessionStore
	// Timeout bounds a single scenario; each request is also bounded by the
	// client's own timeout.
	Timeout        time.Duration
	RequestTimeout time.Duration
	UserAgent      string
	// MaxRedirects bounds redirect chains for clients that follow on their own.
	MaxRedirects int
}

type Runner struct {
	cfg RunnerConfig
	log *zap.Logger
}

func NewRunner(cfg RunnerConfig, logger *zap.Logger) *Runner {
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Minute
	}
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = "LIBSESSID"
	}
	return &Runner{cfg: cfg, log: logger.Named("acceptance")}
}

// Run executes the scenarios one after another, each with a fresh browser.
// An empty filter runs everything; otherwise only scenarios whose name
// contains one of the filter strings.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario, filter ...string) Report {
	var report Report
	for _, sc := range scenarios {
		if !matches(sc.Name, filter) {
			continue
		}
		if ctx.Err() != nil {
			report.Results = append(report.Results, Result{Name: sc.Name, Err: ctx.Err()})
			continue
		}
		res := r.runOne(ctx, sc)
		if res.Passed() {
			r.log.Info("Scenario passed", zap.String("scenario", sc.Name), zap.Duration("duration", res.Duration))
		} else {
			r.log.Error("Scenario failed", zap.String("scenario", sc.Name), zap.Error(res.Err))
		}
		report.Results = append(report.Results, res)
	}
	return report
}

func (r *Runner) runOne(ctx context.Context, sc Scenario) Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	env, err := r.newEnv()
	if err == nil {
		err = sc.Run(ctx, env)
	}
	return Result{Name: sc.Name, Err: err, Duration: time.Since(start)}
}

func (r *Runner) newEnv() (*Env, error) {
	opts := []browser.Option{browser.WithLogger(r.log)}
	if r.cfg.RequestTimeout > 0 {
		opts = append(opts, browser.WithTimeout(r.cfg.RequestTimeout))
	}
	if r.cfg.UserAgent != "" {
		opts = append(opts, browser.WithUserAgent(r.cfg.UserAgent))
	}
	if r.cfg.MaxRedirects > 0 {
		opts = append(opts, browser.WithMaxRedirects(r.cfg.MaxRedirects))
	}
	client, err := browser.New(r.cfg.BaseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &Env{
		Client:        client,
		Sessions:      r.cfg.Sessions,
		SessionCookie: r.cfg.SessionCookie,
		Admin:         r.cfg.Admin,
		Logger:        r.log,
	}, nil
}

func matches(name string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if strings.Contains(name, f) {
			return true
		}
	}
	return false
}
