package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jumpseat/jumpseat-api/internal/adapters/queuesync"
	"github.com/jumpseat/jumpseat-api/internal/core"
	"github.com/jumpseat/jumpseat-api/internal/data"
)

func newReleaseLeaseCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "release-lease",
		Short: "Drop the queue sync lease so the next tick on any instance runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to release the lease without --yes")
			}
			ctx, cancel := commandContext(cmd.Context(), 0)
			defer cancel()

			client, err := connectRedis(a.Logger, &a.Config.Redis)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := client.Close(); cerr != nil {
					a.Logger.Warn("redis close failed", "error", cerr)
				}
			}()

			return releaseLease(ctx, data.NewRedisCacheRepo(client), a.Out)
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm releasing the lease")
	return cmd
}

func releaseLease(ctx context.Context, cache core.CacheRepository, out io.Writer) error {
	existed, err := cache.Delete(ctx, queuesync.LeaseKey)
	if err != nil {
		return fmt.Errorf("delete lease: %w", err)
	}
	if !existed {
		return writef(out, "no queue sync lease held\n")
	}
	return writef(out, "released queue sync lease\n")
}
