package commands

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-library/internal/acceptance"
	"go-library/internal/storage"
)

func checkCmd() *cobra.Command {
	var (
		only      []string
		inProcess bool
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the acceptance scenarios against the app",
		Long: "Runs every scenario with a fresh simulated browser. Session values are\n" +
			"verified through PostgreSQL when DB_URL is set, or directly when the app\n" +
			"is started in-process.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rc := acceptance.RunnerConfig{
				BaseURL:        cfg.BaseURL,
				Admin:          acceptance.Account{Username: cfg.AdminUsername, Password: cfg.AdminPassword},
				SessionCookie:  cfg.SessionCookie,
				Timeout:        timeout,
				RequestTimeout: cfg.RequestTimeout,
				UserAgent:      cfg.UserAgent,
				MaxRedirects:   cfg.MaxRedirects,
			}

			if inProcess {
				url, store, stop, err := startInProcess(ctx)
				if err != nil {
					return err
				}
				defer stop()
				rc.BaseURL = url
				rc.Sessions = store
			} else {
				pg, db, err := openPostgres(ctx)
				if err != nil {
					return err
				}
				if pg != nil {
					defer db.Close()
					rc.Sessions = pg
				}
			}

			report := acceptance.NewRunner(rc, logger).Run(ctx, acceptance.Scenarios(), only...)
			fmt.Fprint(cmd.OutOrStdout(), report.String())
			if failed := report.Failed(); len(failed) > 0 {
				return fmt.Errorf("%d of %d scenarios failed", len(failed), len(report.Results))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&only, "run", nil, "only run scenarios whose name contains one of these")
	cmd.Flags().BoolVar(&inProcess, "in-process", false, "start a seeded in-memory app on a random port and test it")
	cmd.Flags().DurationVar(&timeout, "scenario-timeout", time.Minute, "upper bound for a single scenario")
	return cmd
}

// startInProcess serves a freshly seeded in-memory app on a loopback port.
func startInProcess(ctx context.Context) (string, *storage.Memory, func(), error) {
	store := storage.NewMemory()
	if _, err := storage.Seed(ctx, store, max(cfg.SeedBooks, acceptance.SeededBooks)); err != nil {
		return "", nil, nil, err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, nil, err
	}

	serveCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := serve(serveCtx, ln, store); err != nil {
			logger.Error("In-process app stopped", zap.Error(err))
		}
	}()

	stop := func() {
		cancel()
		<-done
	}
	return "http://" + ln.Addr().String(), store, stop, nil
}
