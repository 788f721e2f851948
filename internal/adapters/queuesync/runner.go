// Package queuesync runs the periodic client queue top-up loop.
package queuesync

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jumpseat/jumpseat-api/config"
	"github.com/jumpseat/jumpseat-api/internal/core"
	"github.com/jumpseat/jumpseat-api/internal/data"
	"github.com/jumpseat/jumpseat-api/internal/domain/model"
	"github.com/jumpseat/jumpseat-api/internal/observability/statsd"
	"github.com/jumpseat/jumpseat-api/internal/service"
)

// LeaseKey is the cache key holding the per-tick sync lease.
const LeaseKey = "jumpseat:queue-sync:lease"

// Syncer is the queue sync operation the runner drives.
type Syncer interface {
	SyncAllClients(ctx context.Context) ([]model.SyncResult, error)
}

// Runner ticks SyncAllClients on the configured interval.
type Runner struct {
	syncer     Syncer
	interval   time.Duration
	lease      core.CacheRepository
	instanceID string
	logger     *slog.Logger
	metrics    statsd.Sink
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Feed   core.FeedClient
	Config config.QueueSyncConfig
	// ExcludeApplyDomains is passed through to the queue sync service.
	ExcludeApplyDomains []string
	// Lease, when set, makes each tick take a distributed lease so only one instance syncs.
	Lease      core.CacheRepository
	InstanceID string
	Logger     *slog.Logger
	Metrics    statsd.Sink

	// Optional dependency injection for testing/decoupling
	Syncer Syncer
}

// NewRunner creates a new queue sync runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	syncer := opts.Syncer
	if syncer == nil {
		svc, err := wireQueueSyncService(opts)
		if err != nil {
			return nil, fmt.Errorf("wire queue sync service: %w", err)
		}
		syncer = svc
	}

	return &Runner{
		syncer:     syncer,
		interval:   opts.Config.Interval,
		lease:      opts.Lease,
		instanceID: opts.InstanceID,
		logger:     opts.Logger.With("component", "queue_sync_runner"),
		metrics:    opts.Metrics,
	}, nil
}

// validateRunnerOptions validates and sets defaults for RunnerOptions.
func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.Syncer == nil {
		if opts.DB == nil {
			return errors.New("database connection is required")
		}
		if opts.Feed == nil {
			return errors.New("feed client is required")
		}
	}
	opts.Config.Sanitize()
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.InstanceID == "" {
		opts.InstanceID = uuid.NewString()
	}
	return nil
}

// wireQueueSyncService builds the Postgres-backed service.
func wireQueueSyncService(opts RunnerOptions) (*service.QueueSyncService, error) {
	return service.NewQueueSyncService(service.QueueSyncServiceOptions{
		Repos: service.QueueSyncRepositories{
			Jobs:         data.NewJobRepo(opts.DB),
			Applications: data.NewApplicationRepo(opts.DB),
			Sessions:     data.NewSessionRepo(opts.DB),
			Clients:      data.NewClientRepo(opts.DB),
		},
		Feed:                opts.Feed,
		Config:              opts.Config,
		ExcludeApplyDomains: opts.ExcludeApplyDomains,
		Logger:              opts.Logger,
		Metrics:             opts.Metrics,
	})
}

// Run syncs once after a short jitter, then on every tick until ctx is cancelled.
// Returns nil on graceful shutdown.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting queue sync runner",
		"interval", r.interval,
		"distributed_lock", r.lease != nil)

	r.waitWithJitter(ctx)
	if ctx.Err() != nil {
		return nil
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "queue sync runner stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick runs one sweep over all clients unless another instance holds the lease.
func (r *Runner) tick(ctx context.Context) {
	if !r.acquire(ctx) {
		r.logger.DebugContext(ctx, "queue sync lease held elsewhere, skipping tick")
		return
	}

	start := time.Now()
	results, err := r.syncer.SyncAllClients(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.ErrorContext(ctx, "queue sync sweep failed", "error", err)
		return
	}

	var added, failed int
	for _, res := range results {
		added += res.Added
		if res.Error != "" {
			failed++
		}
	}
	if r.metrics != nil {
		r.metrics.Timing("queue_sync.sweep_duration", time.Since(start), nil)
	}
	r.logger.InfoContext(ctx, "queue sync sweep finished",
		"clients", len(results),
		"added", added,
		"failed_clients", failed,
		"duration_ms", time.Since(start).Milliseconds())
}

// acquire takes the per-tick lease. Without a lease store every tick runs; when the
// store is unreachable the tick runs anyway since the jobs unique index absorbs overlap.
func (r *Runner) acquire(ctx context.Context) bool {
	if r.lease == nil {
		return true
	}
	ttl := r.interval - r.interval/10
	ok, err := r.lease.SetIfNotExists(ctx, LeaseKey, []byte(r.instanceID), ttl)
	if err != nil {
		r.logger.WarnContext(ctx, "queue sync lease unavailable, running unguarded", "error", err)
		return true
	}
	return ok
}

// waitWithJitter adds a random delay up to 10% of the interval so instances started
// together do not hit the feed at the same moment.
func (r *Runner) waitWithJitter(ctx context.Context) {
	maxJitter := int64(r.interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		r.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	timer := time.NewTimer(jitter)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
