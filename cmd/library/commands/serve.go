package commands

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-library/internal/library"
	"go-library/internal/storage"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the library web app",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if addr == "" {
				addr = cfg.ListenAddr
			}

			var store storage.Store = storage.NewMemory()
			pg, db, err := openPostgres(ctx)
			if err != nil {
				return err
			}
			if pg != nil {
				defer db.Close()
				store = pg
			} else {
				logger.Info("No DB_URL set, keeping data in memory")
			}

			added, err := storage.Seed(ctx, store, cfg.SeedBooks)
			if err != nil {
				return err
			}
			logger.Info("Seeded books", zap.Int("added", added), zap.Int("wanted", cfg.SeedBooks))

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			return serve(ctx, ln, store)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default $LISTEN_ADDR)")
	return cmd
}

// serve runs the app on ln until ctx ends, then shuts down gracefully.
func serve(ctx context.Context, ln net.Listener, store storage.Store) error {
	creds, err := library.NewCredentials(cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		return err
	}
	app, err := library.NewServer(store, library.Options{
		Credentials:   creds,
		SessionCookie: cfg.SessionCookie,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
