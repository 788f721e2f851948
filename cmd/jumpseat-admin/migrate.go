package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jumpseat/jumpseat-api/internal/bootstrap"
	"github.com/jumpseat/jumpseat-api/internal/migrate"
)

func newMigrateCmd(a *app) *cobra.Command {
	var (
		timeout time.Duration
		status  bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd.Context(), timeout)
			defer cancel()

			db, err := connectDB(a.Logger, &a.Config)
			if err != nil {
				return err
			}
			defer closeDB(a.Logger, db)

			if status {
				statuses, listErr := migrate.List(ctx, db)
				if listErr != nil {
					return fmt.Errorf("list migrations: %w", listErr)
				}
				return printMigrationStatus(a.Out, statuses)
			}

			a.Logger.Info("running database migrations")
			if migrateErr := bootstrap.RunMigrations(ctx, db, a.Logger); migrateErr != nil {
				return fmt.Errorf("run migrations: %w", migrateErr)
			}
			a.Logger.Info("migrations completed successfully")
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", defaultCommandTimeout, "maximum time to wait for migrations")
	cmd.Flags().BoolVar(&status, "status", false, "list migrations and whether they are applied instead of running them")
	return cmd
}

func printMigrationStatus(w io.Writer, statuses []migrate.Status) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writef(tw, "VERSION\tAPPLIED\n"); err != nil {
		return err
	}
	for _, s := range statuses {
		applied := "no"
		if s.Applied {
			applied = "yes"
		}
		if err := writef(tw, "%s\t%s\n", s.Version, applied); err != nil {
			return err
		}
	}
	return tw.Flush()
}
