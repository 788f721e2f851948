package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jumpseat/jumpseat-api/config"
	"github.com/jumpseat/jumpseat-api/internal/adapters/queuesync"
	"github.com/jumpseat/jumpseat-api/internal/core"
	"github.com/jumpseat/jumpseat-api/internal/observability/statsd"
)

// QueueSyncRunnerConfig contains configuration for the periodic queue top-up.
type QueueSyncRunnerConfig struct {
	Syncer     queuesync.Syncer
	Config     config.QueueSyncConfig
	Lease      core.CacheRepository
	InstanceID string
	Logger     *slog.Logger
	Metrics    statsd.Sink
}

// RunQueueSync starts the queue sync runner and blocks until ctx is cancelled.
func RunQueueSync(ctx context.Context, cfg QueueSyncRunnerConfig) error {
	runner, err := queuesync.NewRunner(queuesync.RunnerOptions{
		Config:     cfg.Config,
		Lease:      cfg.Lease,
		InstanceID: cfg.InstanceID,
		Logger:     cfg.Logger,
		Metrics:    cfg.Metrics,
		Syncer:     cfg.Syncer,
	})
	if err != nil {
		return fmt.Errorf("create queue sync runner: %w", err)
	}
	return runner.Run(ctx)
}
