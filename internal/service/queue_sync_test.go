package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jumpseat/jumpseat-api/config"
	"github.com/jumpseat/jumpseat-api/internal/domain/model"
	apperrors "github.com/jumpseat/jumpseat-api/internal/errors"
	"github.com/jumpseat/jumpseat-api/internal/mocks"
	"github.com/jumpseat/jumpseat-api/internal/observability/statsd"
)

const testClientID = "client-1"

type queueSyncFixture struct {
	jobs     *mocks.MockJobRepository
	apps     *mocks.MockApplicationRepository
	sessions *mocks.MockSessionRepository
	clients  *mocks.MockClientRepository
	feed     *mocks.MockFeedClient
	metrics  *statsd.Recorder
	svc      *QueueSyncService
}

func newQueueSyncFixture(t *testing.T, exclude ...string) *queueSyncFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &queueSyncFixture{
		jobs:     mocks.NewMockJobRepository(ctrl),
		apps:     mocks.NewMockApplicationRepository(ctrl),
		sessions: mocks.NewMockSessionRepository(ctrl),
		clients:  mocks.NewMockClientRepository(ctrl),
		feed:     mocks.NewMockFeedClient(ctrl),
		metrics:  &statsd.Recorder{},
	}
	svc, err := NewQueueSyncService(QueueSyncServiceOptions{
		Repos: QueueSyncRepositories{
			Jobs:         f.jobs,
			Applications: f.apps,
			Sessions:     f.sessions,
			Clients:      f.clients,
		},
		Feed:                f.feed,
		Config:              config.QueueSyncConfig{TargetSize: 100, FetchPad: 20, MaxPageSize: 100},
		ExcludeApplyDomains: exclude,
		Metrics:             f.metrics,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

// expectQueue sets up the three size lookups for clientID.
func (f *queueSyncFixture) expectQueue(clientID string, jobs int, applied, flagged []string) {
	f.jobs.EXPECT().ListByClient(gomock.Any(), clientID).Return(makeJobs(clientID, jobs), nil)
	apps := make([]*model.Application, 0, len(applied))
	for _, id := range applied {
		apps = append(apps, &model.Application{ID: "app-" + id, JobID: id, ClientID: clientID})
	}
	f.apps.EXPECT().ListByClient(gomock.Any(), clientID).Return(apps, nil)
	f.sessions.EXPECT().ListFlaggedJobIDs(gomock.Any(), clientID).Return(flagged, nil)
}

func makeJobs(clientID string, n int) []*model.Job {
	jobs := make([]*model.Job, n)
	for i := range jobs {
		jobs[i] = &model.Job{ID: fmt.Sprintf("job-%d", i), ClientID: clientID, FeedJobID: fmt.Sprintf("old-%d", i)}
	}
	return jobs
}

func feedItem(id string) model.FeedItem {
	return model.FeedItem{
		CanonicalJobID: id,
		Title:          "Backend Engineer",
		Company:        "Initech",
		JobLocation:    "Remote",
		ApplyURL:       "https://careers.initech.test/jobs/" + id,
	}
}

func notFound() error { return apperrors.NotFound("job not found") }

func TestQueueSync_NoopAtTarget(t *testing.T) {
	t.Parallel()
	f := newQueueSyncFixture(t)
	f.expectQueue(testClientID, 100, nil, nil)
	// No FetchJobs expectation: any feed call fails the test.

	res, err := f.svc.SyncClient(context.Background(), testClientID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 100, res.QueueSize)
	assert.Empty(t, res.Errors)
	assert.NotNil(t, res.Errors)
	assert.Equal(t, "noop", f.metrics.Named("queue_sync.result")[0].Tags["result"])
}

func TestQueueSync_AboveTargetIsNoop(t *testing.T) {
	t.Parallel()
	f := newQueueSyncFixture(t)
	f.expectQueue(testClientID, 130, []string{"job-0"}, nil)

	res, err := f.svc.SyncClient(context.Background(), testClientID)
	require.NoError(t, err)
	assert.Equal(t, 129, res.QueueSize)
}

func TestQueueSync_StopsAtDeficit(t *testing.T) {
	t.Parallel()
	f := newQueueSyncFixture(t)
	f.expectQueue(testClientID, 95, nil, nil)

	items := make([]model.FeedItem, 30)
	for i := range items {
		items[i] = feedItem(fmt.Sprintf("feed-%02d", i))
	}
	f.feed.EXPECT().
		FetchJobs(gomock.Any(), model.FeedRequest{User: testClientID, ExcludeApplyDomains: []string{}, PageSize: 25}).
		Return(items, nil)

	// Every even item is already queued for the client.
	lookups := 0
	f.jobs.EXPECT().GetByFeedID(gomock.Any(), testClientID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, feedID string) (*model.Job, error) {
			lookups++
			var n int
			_, _ = fmt.Sscanf(feedID, "feed-%d", &n)
			if n%2 == 0 {
				return &model.Job{ID: "existing-" + feedID, FeedJobID: feedID}, nil
			}
			return nil, notFound()
		}).Times(10)

	var created []string
	f.jobs.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.CreateJobRequest) (*model.Job, error) {
			assert.Equal(t, model.JobSourceFeed, req.Source)
			assert.Equal(t, testClientID, req.ClientID)
			require.NotNil(t, req.Location)
			assert.Equal(t, "Remote", *req.Location)
			created = append(created, req.FeedJobID)
			return &model.Job{ID: "new-" + req.FeedJobID, FeedJobID: req.FeedJobID}, nil
		}).Times(5)

	res, err := f.svc.SyncClient(context.Background(), testClientID)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Added)
	assert.Equal(t, 5, res.Skipped)
	assert.Equal(t, 100, res.QueueSize)
	assert.Equal(t, 10, lookups)
	assert.Equal(t, []string{"feed-01", "feed-03", "feed-05", "feed-07", "feed-09"}, created)

	assert.InDelta(t, 5, f.metrics.Sum("queue_sync.added"), 0)
	assert.InDelta(t, 100, f.metrics.Sum("queue_sync.queue_size"), 0)
}

func TestQueueSync_AppliedAndFlaggedLeaveTheQueue(t *testing.T) {
	t.Parallel()
	f := newQueueSyncFixture(t)
	// job-1 is both applied and flagged; it counts once.
	f.expectQueue(testClientID, 100, []string{"job-0", "job-1", "job-2"}, []string{"job-1", "job-3"})

	f.feed.EXPECT().
		FetchJobs(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req model.FeedRequest) ([]model.FeedItem, error) {
			assert.Equal(t, 24, req.PageSize)
			return nil, nil
		})

	res, err := f.svc.SyncClient(context.Background(), testClientID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 96, res.QueueSize)
}

func TestQueueSync_PageSizeCapped(t *testing.T) {
	t.Parallel()
	f := newQueueSyncFixture(t)
	f.expectQueue(testClientID, 0, nil, nil)

	f.feed.EXPECT().
		FetchJobs(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req model.FeedRequest) ([]model.FeedItem, error) {
			assert.Equal(t, 100, req.PageSize)
			return []model.FeedItem{}, nil
		})

	res, err := f.svc.SyncClient(context.Background(), testClientID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.QueueSize)
}

func TestQueueSync_SkipsAndPerItemErrors(t *testing.T) {
	t.Parallel()
	f := newQueueSyncFixture(t, "blockedats.test")
	f.expectQueue(testClientID, 90, nil, nil)

	missingTitle := feedItem("no-title")
	missingTitle.Title = "  "
	excluded := feedItem("excluded")
	excluded.ApplyURL = "https://acme.blockedats.test/apply/1"
	missingID := feedItem("")

	items := []model.FeedItem{
		feedItem("a"),
		feedItem("a"), // repeated within the batch
		missingTitle,
		excluded,
		missingID,
		feedItem("race"),
		feedItem("broken"),
		feedItem("lookup-fails"),
		feedItem("b"),
	}
	f.feed.EXPECT().
		FetchJobs(gomock.Any(), model.FeedRequest{
			User:                testClientID,
			ExcludeApplyDomains: []string{"blockedats.test"},
			PageSize:            30,
		}).
		Return(items, nil)

	f.jobs.EXPECT().GetByFeedID(gomock.Any(), testClientID, "lookup-fails").
		Return(nil, errors.New("connection reset"))
	for _, id := range []string{"a", "race", "broken", "b"} {
		f.jobs.EXPECT().GetByFeedID(gomock.Any(), testClientID, id).Return(nil, notFound())
	}

	f.jobs.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.CreateJobRequest) (*model.Job, error) {
			switch req.FeedJobID {
			case "race":
				return nil, apperrors.Conflict("duplicate feed job")
			case "broken":
				return nil, errors.New("disk full")
			default:
				return &model.Job{ID: "id-" + req.FeedJobID}, nil
			}
		}).Times(4)

	res, err := f.svc.SyncClient(context.Background(), testClientID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	// duplicate, missing title, excluded domain, missing id, conflict
	assert.Equal(t, 5, res.Skipped)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "broken")
	assert.Contains(t, res.Errors[1], "lookup-fails")
	assert.Equal(t, 92, res.QueueSize)
}

func TestQueueSync_RejectedCopyDoesNotShadowValidOne(t *testing.T) {
	t.Parallel()
	f := newQueueSyncFixture(t)
	f.expectQueue(testClientID, 99, nil, nil)

	broken := feedItem("dup")
	broken.ApplyURL = ""
	f.feed.EXPECT().FetchJobs(gomock.Any(), gomock.Any()).
		Return([]model.FeedItem{{}, broken, feedItem("dup")}, nil)
	f.jobs.EXPECT().GetByFeedID(gomock.Any(), testClientID, "dup").Return(nil, notFound())
	f.jobs.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.CreateJobRequest) (*model.Job, error) {
			assert.Equal(t, "dup", req.FeedJobID)
			return &model.Job{ID: "id-dup"}, nil
		})

	res, err := f.svc.SyncClient(context.Background(), testClientID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 100, res.QueueSize)
}

func TestQueueSync_FeedFailureIsReturned(t *testing.T) {
	t.Parallel()
	f := newQueueSyncFixture(t)
	f.expectQueue(testClientID, 10, nil, nil)
	f.feed.EXPECT().FetchJobs(gomock.Any(), gomock.Any()).
		Return(nil, apperrors.Upstream(errors.New("HTTP 502"), "fetch job feed"))

	res, err := f.svc.SyncClient(context.Background(), testClientID)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, apperrors.IsUpstream(err))
	assert.Equal(t, "error", f.metrics.Named("queue_sync.result")[0].Tags["result"])
}

func TestQueueSync_StorageFailureIsReturned(t *testing.T) {
	t.Parallel()
	f := newQueueSyncFixture(t)
	f.jobs.EXPECT().ListByClient(gomock.Any(), testClientID).Return(nil, errors.New("db down"))

	_, err := f.svc.SyncClient(context.Background(), testClientID)
	require.ErrorContains(t, err, "db down")
}

func TestQueueSync_RequiresClientID(t *testing.T) {
	t.Parallel()
	f := newQueueSyncFixture(t)
	_, err := f.svc.SyncClient(context.Background(), "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestQueueSync_SyncAllClients(t *testing.T) {
	t.Parallel()
	f := newQueueSyncFixture(t)

	f.clients.EXPECT().List(gomock.Any()).Return([]*model.Client{
		{ID: "active-broken", Status: model.ClientStatusActive},
		{ID: "paused", Status: model.ClientStatusPaused},
		{ID: "placed", Status: model.ClientStatusPlaced},
		{ID: "churned", Status: model.ClientStatusChurned},
	}, nil)

	gomock.InOrder(
		f.jobs.EXPECT().ListByClient(gomock.Any(), "active-broken").Return(makeJobs("active-broken", 50), nil),
		f.jobs.EXPECT().ListByClient(gomock.Any(), "placed").Return(makeJobs("placed", 100), nil),
	)
	f.apps.EXPECT().ListByClient(gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)
	f.sessions.EXPECT().ListFlaggedJobIDs(gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)
	f.feed.EXPECT().FetchJobs(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req model.FeedRequest) ([]model.FeedItem, error) {
			assert.Equal(t, "active-broken", req.User)
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return nil, errors.New("feed unavailable")
		})

	results, err := f.svc.SyncAllClients(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "active-broken", results[0].ClientID)
	assert.Contains(t, results[0].Error, "feed unavailable")

	assert.Equal(t, "placed", results[1].ClientID)
	assert.Empty(t, results[1].Error)
	assert.Equal(t, 100, results[1].QueueSize)
}

func TestQueueSync_SyncAllClientsListFailure(t *testing.T) {
	t.Parallel()
	f := newQueueSyncFixture(t)
	f.clients.EXPECT().List(gomock.Any()).Return(nil, errors.New("db down"))

	results, err := f.svc.SyncAllClients(context.Background())
	require.Error(t, err)
	assert.Nil(t, results)
}

func TestQueueSync_MarkJobApplied(t *testing.T) {
	t.Parallel()

	t.Run("registers once", func(t *testing.T) {
		t.Parallel()
		f := newQueueSyncFixture(t)
		f.feed.EXPECT().
			RegisterApplication(gomock.Any(), model.FeedApplicationRequest{User: testClientID, Job: "feed-7"}).
			Return(nil).Times(1)
		require.NoError(t, f.svc.MarkJobApplied(context.Background(), testClientID, "feed-7"))
	})

	t.Run("failure is returned without retry", func(t *testing.T) {
		t.Parallel()
		f := newQueueSyncFixture(t)
		f.feed.EXPECT().RegisterApplication(gomock.Any(), gomock.Any()).
			Return(apperrors.Upstream(errors.New("HTTP 500"), "register feed application")).Times(1)

		err := f.svc.MarkJobApplied(context.Background(), testClientID, "feed-7")
		require.Error(t, err)
		assert.True(t, apperrors.IsUpstream(err))
	})

	t.Run("validates input", func(t *testing.T) {
		t.Parallel()
		f := newQueueSyncFixture(t)
		err := f.svc.MarkJobApplied(context.Background(), testClientID, "")
		assert.True(t, apperrors.IsValidation(err))
		assert.Equal(t, "feed_job_id", apperrors.GetField(err))
	})
}

func TestNewQueueSyncService_RequiresDependencies(t *testing.T) {
	t.Parallel()
	_, err := NewQueueSyncService(QueueSyncServiceOptions{})
	require.ErrorContains(t, err, "JobRepository is required")
}
