package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jumpseat/jumpseat-api/internal/bootstrap"
	"github.com/jumpseat/jumpseat-api/internal/domain/model"
)

// queueSyncer is the slice of the queue sync service the admin commands drive.
type queueSyncer interface {
	SyncClient(ctx context.Context, clientID string) (*model.SyncResult, error)
	SyncAllClients(ctx context.Context) ([]model.SyncResult, error)
	MarkJobApplied(ctx context.Context, clientID, feedJobID string) error
}

type syncOptions struct {
	ClientID string
	All      bool
	JSON     bool
	Timeout  time.Duration
}

// withQueueSync connects the database, builds the service and hands it to fn.
func (a *app) withQueueSync(ctx context.Context, fn func(context.Context, queueSyncer) error) error {
	db, err := connectDB(a.Logger, &a.Config)
	if err != nil {
		return err
	}
	defer closeDB(a.Logger, db)

	svc, err := bootstrap.NewQueueSyncService(db, &a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("init queue sync: %w", err)
	}
	return fn(ctx, svc)
}

func newSyncCmd(a *app) *cobra.Command {
	var opts syncOptions

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Top up one client's queue, or every active client's, from the job feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd.Context(), opts.Timeout)
			defer cancel()
			return a.withQueueSync(ctx, func(ctx context.Context, svc queueSyncer) error {
				return runSync(ctx, svc, opts, a.Out)
			})
		},
	}

	cmd.Flags().StringVar(&opts.ClientID, "client", "", "client ID to sync")
	cmd.Flags().BoolVar(&opts.All, "all", false, "sync every active client")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print results as JSON")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "maximum time for the whole run")
	cmd.MarkFlagsMutuallyExclusive("client", "all")
	cmd.MarkFlagsOneRequired("client", "all")
	return cmd
}

func runSync(ctx context.Context, svc queueSyncer, opts syncOptions, out io.Writer) error {
	var results []model.SyncResult
	if opts.All {
		all, err := svc.SyncAllClients(ctx)
		if err != nil {
			return fmt.Errorf("sync all clients: %w", err)
		}
		results = all
	} else {
		clientID := strings.TrimSpace(opts.ClientID)
		if clientID == "" {
			return errors.New("--client must not be blank")
		}
		res, err := svc.SyncClient(ctx, clientID)
		if err != nil {
			return fmt.Errorf("sync client %s: %w", clientID, err)
		}
		results = []model.SyncResult{*res}
	}

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if results == nil {
			results = []model.SyncResult{}
		}
		return enc.Encode(results)
	}
	return printSyncResults(out, results)
}

func printSyncResults(w io.Writer, results []model.SyncResult) error {
	if len(results) == 0 {
		return writef(w, "no active clients\n")
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writef(tw, "CLIENT\tADDED\tSKIPPED\tQUEUE\tERRORS\n"); err != nil {
		return err
	}
	for _, r := range results {
		errs := strings.Join(r.Errors, "; ")
		if r.Error != "" {
			errs = "failed: " + r.Error
		}
		if errs == "" {
			errs = "-"
		}
		if err := writef(tw, "%s\t%d\t%d\t%d\t%s\n", r.ClientID, r.Added, r.Skipped, r.QueueSize, errs); err != nil {
			return err
		}
	}
	return tw.Flush()
}

type markAppliedOptions struct {
	ClientID  string
	FeedJobID string
	Timeout   time.Duration
}

func newMarkAppliedCmd(a *app) *cobra.Command {
	var opts markAppliedOptions

	cmd := &cobra.Command{
		Use:   "mark-applied",
		Short: "Report an application to the job feed so the job is not offered again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd.Context(), opts.Timeout)
			defer cancel()
			return a.withQueueSync(ctx, func(ctx context.Context, svc queueSyncer) error {
				return runMarkApplied(ctx, svc, opts, a.Out)
			})
		},
	}

	cmd.Flags().StringVar(&opts.ClientID, "client", "", "client ID the application belongs to")
	cmd.Flags().StringVar(&opts.FeedJobID, "job", "", "feed job ID that was applied to")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", time.Minute, "maximum time to wait for the feed")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}

func runMarkApplied(ctx context.Context, svc queueSyncer, opts markAppliedOptions, out io.Writer) error {
	clientID := strings.TrimSpace(opts.ClientID)
	jobID := strings.TrimSpace(opts.FeedJobID)
	if clientID == "" || jobID == "" {
		return errors.New("--client and --job must not be blank")
	}
	if err := svc.MarkJobApplied(ctx, clientID, jobID); err != nil {
		return fmt.Errorf("mark job applied: %w", err)
	}
	return writef(out, "marked feed job %s applied for client %s\n", jobID, clientID)
}
