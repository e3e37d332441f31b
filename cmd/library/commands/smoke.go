package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"go-library/internal/acceptance"
	"go-library/internal/headless"
)

func smokeCmd() *cobra.Command {
	var opts headless.Options
	var login bool
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Load the app in headless Chrome",
		RunE: func(cmd *cobra.Command, args []string) error {
			if login {
				opts.Username = cfg.AdminUsername
				opts.Password = cfg.AdminPassword
			}
			res, err := headless.Smoke(cmd.Context(), cfg.BaseURL, opts, logger)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "title=%q heading=%q book_rows=%d logged_in=%v\n",
				res.Title, res.Heading, res.BookRows, res.LoggedIn)
			if res.Heading != "Books" || res.BookRows < acceptance.SeededBooks {
				return fmt.Errorf("book list looks wrong: heading %q with %d rows", res.Heading, res.BookRows)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.ExecPath, "chrome", "", "path to the Chrome binary")
	cmd.Flags().BoolVar(&opts.Visible, "visible", false, "show the browser window")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "overall timeout")
	cmd.Flags().BoolVar(&login, "login", false, "also log in as the admin")
	return cmd
}
