package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jumpseat/jumpseat-api/config"
	"github.com/jumpseat/jumpseat-api/internal/core"
	"github.com/jumpseat/jumpseat-api/internal/domain/jobfeed"
	"github.com/jumpseat/jumpseat-api/internal/domain/model"
	apperrors "github.com/jumpseat/jumpseat-api/internal/errors"
	"github.com/jumpseat/jumpseat-api/internal/observability/metrics"
	"github.com/jumpseat/jumpseat-api/internal/observability/statsd"
)

// QueueSyncRepositories groups the storage ports QueueSyncService reads and writes.
type QueueSyncRepositories struct {
	Jobs         core.JobRepository         // Required
	Applications core.ApplicationRepository // Required
	Sessions     core.SessionRepository     // Required
	Clients      core.ClientRepository      // Required
}

// QueueSyncServiceOptions groups dependencies for QueueSyncService.
type QueueSyncServiceOptions struct {
	Repos  QueueSyncRepositories
	Feed   core.FeedClient        // Required: external job feed
	Config config.QueueSyncConfig // Target size, fetch pad, page cap, per-client timeout
	// ExcludeApplyDomains is forwarded to the feed and enforced locally.
	ExcludeApplyDomains []string
	Logger              *slog.Logger // Optional
	Metrics             statsd.Sink  // Optional
}

// QueueSyncService keeps every client's queue of reviewable jobs topped up from the feed.
type QueueSyncService struct {
	jobs         core.JobRepository
	applications core.ApplicationRepository
	sessions     core.SessionRepository
	clients      core.ClientRepository
	feed         core.FeedClient
	screener     *jobfeed.Screener
	exclude      []string
	cfg          config.QueueSyncConfig
	logger       *slog.Logger
	metrics      statsd.Sink
}

// NewQueueSyncService constructs a QueueSyncService.
func NewQueueSyncService(opts QueueSyncServiceOptions) (*QueueSyncService, error) {
	switch {
	case opts.Repos.Jobs == nil:
		return nil, errors.New("JobRepository is required")
	case opts.Repos.Applications == nil:
		return nil, errors.New("ApplicationRepository is required")
	case opts.Repos.Sessions == nil:
		return nil, errors.New("SessionRepository is required")
	case opts.Repos.Clients == nil:
		return nil, errors.New("ClientRepository is required")
	case opts.Feed == nil:
		return nil, errors.New("FeedClient is required")
	}

	cfg := opts.Config
	cfg.Sanitize()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "queue_sync_service")
	logger.Debug("QueueSyncService initialized",
		"target_size", cfg.TargetSize,
		"fetch_pad", cfg.FetchPad,
		"max_page_size", cfg.MaxPageSize,
		"excluded_domains", len(opts.ExcludeApplyDomains),
	)

	exclude := make([]string, len(opts.ExcludeApplyDomains))
	copy(exclude, opts.ExcludeApplyDomains)

	return &QueueSyncService{
		jobs:         opts.Repos.Jobs,
		applications: opts.Repos.Applications,
		sessions:     opts.Repos.Sessions,
		clients:      opts.Repos.Clients,
		feed:         opts.Feed,
		screener:     jobfeed.NewScreener(exclude),
		exclude:      exclude,
		cfg:          cfg,
		logger:       logger,
		metrics:      opts.Metrics,
	}, nil
}

// SyncClient tops up one client's queue to the configured target. A client already at
// or above target is a no-op that never calls the feed. Feed failures are returned;
// per-item failures are collected in the result's Errors.
func (s *QueueSyncService) SyncClient(ctx context.Context, clientID string) (*model.SyncResult, error) {
	if clientID == "" {
		return nil, apperrors.ValidationField("client_id", "client_id is required")
	}

	start := time.Now()
	res, err := s.syncClient(ctx, clientID)
	if err != nil {
		m := metrics.SyncMetric{Result: metrics.ResultError, Err: err}
		metrics.EmitQueueSync(s.metrics, m)
		s.logger.ErrorContext(ctx, "queue sync failed", "client_id", clientID, "error", err)
		return nil, err
	}

	metrics.EmitQueueSync(s.metrics, metrics.SyncResultMetric(*res, time.Since(start)))
	s.logger.InfoContext(ctx, "queue sync completed",
		"client_id", clientID,
		"added", res.Added,
		"skipped", res.Skipped,
		"errors", len(res.Errors),
		"queue_size", res.QueueSize,
	)
	return res, nil
}

func (s *QueueSyncService) syncClient(ctx context.Context, clientID string) (*model.SyncResult, error) {
	current, err := s.QueueSize(ctx, clientID)
	if err != nil {
		return nil, err
	}

	res := &model.SyncResult{ClientID: clientID, Errors: []string{}, QueueSize: current}
	if current >= s.cfg.TargetSize {
		return res, nil
	}

	deficit := s.cfg.TargetSize - current
	items, err := s.feed.FetchJobs(ctx, model.FeedRequest{
		User:                clientID,
		ExcludeApplyDomains: s.exclude,
		PageSize:            min(deficit+s.cfg.FetchPad, s.cfg.MaxPageSize),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch feed for client %s: %w", clientID, err)
	}

	seen := make(map[string]struct{}, len(items))
	for i := range items {
		if res.Added >= deficit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("sync client %s: %w", clientID, err)
		}
		s.consider(ctx, clientID, &items[i], seen, res)
	}

	res.QueueSize = current + res.Added
	return res, nil
}

// consider screens one feed item and inserts it when it is new for the client.
func (s *QueueSyncService) consider(
	ctx context.Context,
	clientID string,
	item *model.FeedItem,
	seen map[string]struct{},
	res *model.SyncResult,
) {
	if reason := s.screener.Screen(item); reason != jobfeed.SkipNone {
		s.logger.DebugContext(ctx, "feed item skipped",
			"client_id", clientID, "feed_job_id", item.CanonicalJobID, "reason", string(reason))
		res.Skipped++
		return
	}
	// Only screened items claim their id, so a later valid copy still gets a chance.
	if _, dup := seen[item.CanonicalJobID]; dup {
		res.Skipped++
		return
	}
	seen[item.CanonicalJobID] = struct{}{}

	if _, err := s.jobs.GetByFeedID(ctx, clientID, item.CanonicalJobID); err == nil {
		res.Skipped++
		return
	} else if !apperrors.IsNotFound(err) {
		res.Errors = append(res.Errors, fmt.Sprintf("lookup feed job %s: %v", item.CanonicalJobID, err))
		return
	}

	req := model.NewCreateJobRequest(clientID, *item)
	if _, err := s.jobs.Create(ctx, &req); err != nil {
		if apperrors.IsConflict(err) {
			// Lost a race with a concurrent sync for the same client.
			res.Skipped++
			return
		}
		res.Errors = append(res.Errors, fmt.Sprintf("create feed job %s: %v", item.CanonicalJobID, err))
		return
	}
	res.Added++
}

// QueueSize counts the client's jobs that have neither an application nor a flagged
// session. A job both applied and flagged is excluded once.
func (s *QueueSyncService) QueueSize(ctx context.Context, clientID string) (int, error) {
	jobs, err := s.jobs.ListByClient(ctx, clientID)
	if err != nil {
		return 0, fmt.Errorf("list jobs for client %s: %w", clientID, err)
	}
	apps, err := s.applications.ListByClient(ctx, clientID)
	if err != nil {
		return 0, fmt.Errorf("list applications for client %s: %w", clientID, err)
	}
	flagged, err := s.sessions.ListFlaggedJobIDs(ctx, clientID)
	if err != nil {
		return 0, fmt.Errorf("list flagged jobs for client %s: %w", clientID, err)
	}

	handled := make(map[string]struct{}, len(apps)+len(flagged))
	for _, a := range apps {
		handled[a.JobID] = struct{}{}
	}
	for _, id := range flagged {
		handled[id] = struct{}{}
	}

	queued := 0
	for _, j := range jobs {
		if _, ok := handled[j.ID]; !ok {
			queued++
		}
	}
	return queued, nil
}

// SyncAllClients syncs every active or placed client one after another. A client
// whose sync fails gets a result with Error set; only a failure to list clients is
// returned as an error.
func (s *QueueSyncService) SyncAllClients(ctx context.Context) ([]model.SyncResult, error) {
	clients, err := s.clients.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}

	results := make([]model.SyncResult, 0, len(clients))
	for _, c := range clients {
		if !c.Status.Syncable() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, err := s.syncWithTimeout(ctx, c.ID)
		if err != nil {
			results = append(results, model.SyncResult{ClientID: c.ID, Errors: []string{}, Error: err.Error()})
			continue
		}
		results = append(results, *res)
	}

	s.logger.InfoContext(ctx, "queue sync sweep completed", "clients", len(results))
	return results, nil
}

func (s *QueueSyncService) syncWithTimeout(ctx context.Context, clientID string) (*model.SyncResult, error) {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.ClientTimeout)
	defer cancel()
	return s.SyncClient(cctx, clientID)
}

// MarkJobApplied registers a consumed feed job with the feed API. It makes exactly
// one attempt; failures are returned to the caller.
func (s *QueueSyncService) MarkJobApplied(ctx context.Context, clientID, feedJobID string) error {
	if clientID == "" {
		return apperrors.ValidationField("client_id", "client_id is required")
	}
	if feedJobID == "" {
		return apperrors.ValidationField("feed_job_id", "feed_job_id is required")
	}

	err := s.feed.RegisterApplication(ctx, model.FeedApplicationRequest{User: clientID, Job: feedJobID})
	if err != nil {
		s.logger.WarnContext(ctx, "feed application registration failed",
			"client_id", clientID, "feed_job_id", feedJobID, "error", err)
		return fmt.Errorf("mark job %s applied: %w", feedJobID, err)
	}
	return nil
}
