// Package main provides jumpseat-admin, the operator CLI for migrations, manual queue
// syncs and lease maintenance.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jumpseat/jumpseat-api/config"
	"github.com/jumpseat/jumpseat-api/internal/bootstrap"
)

// app carries what every subcommand needs once the root pre-run has loaded config.
type app struct {
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
}

const defaultCommandTimeout = 5 * time.Minute

func main() {
	logger := bootstrap.InitLogger()
	a := &app{Logger: logger, Out: os.Stdout}

	if err := newRootCmd(a).Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "jumpseat-admin",
		Short:         "Operator tooling for jumpseat",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := bootstrap.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a.Config = cfg
			a.Logger = bootstrap.ConfigureLogger(&cfg)
			a.Out = cmd.OutOrStdout()
			return nil
		},
	}

	root.AddCommand(
		newMigrateCmd(a),
		newSyncCmd(a),
		newMarkAppliedCmd(a),
		newReleaseLeaseCmd(a),
	)
	return root
}

// commandContext returns a context cancelled by SIGINT/SIGTERM or after timeout.
func commandContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
