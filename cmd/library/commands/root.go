package commands

import (
	"context"
	"database/sql"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-library/internal/config"
	"go-library/internal/logging"
	"go-library/internal/storage"
)

const dbAttempts = 10

var (
	cfg    *config.Config
	logger *zap.Logger

	baseURL string
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	baseURL = ""
	root := &cobra.Command{
		Use:           "library",
		Short:         "Library web app and its acceptance tooling",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			if baseURL != "" {
				cfg.BaseURL = baseURL
			}
			logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&baseURL, "base-url", "", "app instance to talk to (default $BASE_URL)")

	root.AddCommand(serveCmd(), seedCmd(), checkCmd(), crawlCmd(), smokeCmd())
	return root
}

// openPostgres connects and migrates when DB_URL is set. It returns nil
// storage otherwise.
func openPostgres(ctx context.Context) (*storage.Storage, *sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, nil
	}
	db, err := storage.Open(ctx, cfg.DatabaseURL, dbAttempts, logger)
	if err != nil {
		return nil, nil, err
	}
	pg := storage.NewStorage(db, logger)
	if err := pg.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return pg, db, nil
}
