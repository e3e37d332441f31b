package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"go-library/internal/storage"
)

func seedCmd() *cobra.Command {
	var books int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the fixture books into PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pg, db, err := openPostgres(ctx)
			if err != nil {
				return err
			}
			if pg == nil {
				return errors.New("seed needs DB_URL; the in-memory store is seeded by serve")
			}
			defer db.Close()

			if books < 0 {
				books = cfg.SeedBooks
			}
			added, err := storage.Seed(ctx, pg, books)
			if err != nil {
				return err
			}
			total, err := pg.CountBooks(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d books, %d in total\n", added, total)
			return nil
		},
	}
	cmd.Flags().IntVar(&books, "books", -1, "minimum number of fixture books (default $SEED_BOOKS)")
	return cmd
}
