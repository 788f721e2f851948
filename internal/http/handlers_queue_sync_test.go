package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jumpseat/jumpseat-api/config"
	"github.com/jumpseat/jumpseat-api/internal/domain/model"
	apperrors "github.com/jumpseat/jumpseat-api/internal/errors"
	"github.com/jumpseat/jumpseat-api/internal/mocks"
	"github.com/jumpseat/jumpseat-api/internal/service"
)

type queueSyncFixture struct {
	handler  http.Handler
	jobs     *mocks.MockJobRepository
	apps     *mocks.MockApplicationRepository
	sessions *mocks.MockSessionRepository
	clients  *mocks.MockClientRepository
	feed     *mocks.MockFeedClient
}

func newQueueSyncFixture(t *testing.T) *queueSyncFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &queueSyncFixture{
		jobs:     mocks.NewMockJobRepository(ctrl),
		apps:     mocks.NewMockApplicationRepository(ctrl),
		sessions: mocks.NewMockSessionRepository(ctrl),
		clients:  mocks.NewMockClientRepository(ctrl),
		feed:     mocks.NewMockFeedClient(ctrl),
	}
	svc, err := service.NewQueueSyncService(service.QueueSyncServiceOptions{
		Repos: service.QueueSyncRepositories{
			Jobs:         f.jobs,
			Applications: f.apps,
			Sessions:     f.sessions,
			Clients:      f.clients,
		},
		Feed:   f.feed,
		Config: config.QueueSyncConfig{TargetSize: 2, FetchPad: 1, MaxPageSize: 10},
	})
	require.NoError(t, err)
	f.handler = NewRouter(RouterServices{QueueSync: svc})
	return f
}

func (f *queueSyncFixture) expectQueue(clientID string, jobs ...string) {
	list := make([]*model.Job, 0, len(jobs))
	for _, id := range jobs {
		list = append(list, &model.Job{ID: id, ClientID: clientID})
	}
	f.jobs.EXPECT().ListByClient(gomock.Any(), clientID).Return(list, nil)
	f.apps.EXPECT().ListByClient(gomock.Any(), clientID).Return(nil, nil)
	f.sessions.EXPECT().ListFlaggedJobIDs(gomock.Any(), clientID).Return(nil, nil)
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestSyncClientHandler_AtTarget(t *testing.T) {
	t.Parallel()
	f := newQueueSyncFixture(t)
	f.expectQueue("client-1", "job-1", "job-2")

	rec := serve(t, f.handler, http.MethodPost, "/api/clients/client-1/queue-sync", "")

	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeBody[model.SyncResult](t, rec)
	assert.Equal(t, "client-1", res.ClientID)
	assert.Equal(t, 2, res.QueueSize)
	assert.Zero(t, res.Added)
	assert.Equal(t, []string{}, res.Errors)
}

func TestSyncClientHandler_AddsFromFeed(t *testing.T) {
	t.Parallel()
	f := newQueueSyncFixture(t)
	f.expectQueue("client-1", "job-1")
	f.feed.EXPECT().FetchJobs(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req model.FeedRequest) ([]model.FeedItem, error) {
			assert.Equal(t, 2, req.PageSize)
			return []model.FeedItem{{
				CanonicalJobID: "feed-1",
				Title:          "Platform Engineer",
				Company:        "Acme",
				ApplyURL:       "https://jobs.acme.test/1",
			}}, nil
		})
	f.jobs.EXPECT().GetByFeedID(gomock.Any(), "client-1", "feed-1").Return(nil, apperrors.NotFound("job not found"))
	f.jobs.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&model.Job{ID: "job-2"}, nil)

	rec := serve(t, f.handler, http.MethodPost, "/api/clients/client-1/queue-sync", "")

	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeBody[model.SyncResult](t, rec)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 2, res.QueueSize)
}

func TestSyncClientHandler_ErrorMapping(t *testing.T) {
	t.Parallel()

	t.Run("feed failure is 502", func(t *testing.T) {
		t.Parallel()
		f := newQueueSyncFixture(t)
		f.expectQueue("client-1")
		f.feed.EXPECT().FetchJobs(gomock.Any(), gomock.Any()).
			Return(nil, apperrors.Upstream(errors.New("status 503"), "fetch feed jobs"))

		rec := serve(t, f.handler, http.MethodPost, "/api/clients/client-1/queue-sync", "")

		require.Equal(t, http.StatusBadGateway, rec.Code)
		body := decodeBody[errorBody](t, rec)
		assert.Equal(t, "feed_unavailable", body.Error)
	})

	t.Run("storage failure is 500 without detail", func(t *testing.T) {
		t.Parallel()
		f := newQueueSyncFixture(t)
		f.jobs.EXPECT().ListByClient(gomock.Any(), "client-1").Return(nil, errors.New("connection refused"))

		rec := serve(t, f.handler, http.MethodPost, "/api/clients/client-1/queue-sync", "")

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeBody[errorBody](t, rec)
		assert.Equal(t, "internal_error", body.Error)
		assert.NotContains(t, body.Message, "connection refused")
	})
}

func TestSyncAllHandler(t *testing.T) {
	t.Parallel()

	t.Run("skips unsyncable clients", func(t *testing.T) {
		t.Parallel()
		f := newQueueSyncFixture(t)
		f.clients.EXPECT().List(gomock.Any()).Return([]*model.Client{
			{ID: "client-1", Status: model.ClientStatusActive},
			{ID: "client-2", Status: model.ClientStatusPaused},
		}, nil)
		f.expectQueue("client-1", "job-1", "job-2")

		rec := serve(t, f.handler, http.MethodPost, "/api/queue-sync", "")

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody[syncAllResponse](t, rec)
		require.Len(t, body.Results, 1)
		assert.Equal(t, "client-1", body.Results[0].ClientID)
	})

	t.Run("empty results encode as array", func(t *testing.T) {
		t.Parallel()
		f := newQueueSyncFixture(t)
		f.clients.EXPECT().List(gomock.Any()).Return(nil, nil)

		rec := serve(t, f.handler, http.MethodPost, "/api/queue-sync", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"results":[]}`, rec.Body.String())
	})

	t.Run("GET is not routed", func(t *testing.T) {
		t.Parallel()
		f := newQueueSyncFixture(t)

		rec := serve(t, f.handler, http.MethodGet, "/api/queue-sync", "")

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestMarkAppliedHandler(t *testing.T) {
	t.Parallel()

	t.Run("registers with the feed", func(t *testing.T) {
		t.Parallel()
		f := newQueueSyncFixture(t)
		f.feed.EXPECT().RegisterApplication(gomock.Any(),
			model.FeedApplicationRequest{User: "client-1", Job: "feed-9"}).Return(nil)

		rec := serve(t, f.handler, http.MethodPost, "/api/clients/client-1/feed-applications",
			`{"feed_job_id":" feed-9 "}`)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("missing feed job id", func(t *testing.T) {
		t.Parallel()
		f := newQueueSyncFixture(t)

		rec := serve(t, f.handler, http.MethodPost, "/api/clients/client-1/feed-applications", `{}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody[errorBody](t, rec)
		assert.Equal(t, "validation_failed", body.Error)
		assert.Equal(t, "feed_job_id", body.Field)
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		t.Parallel()
		f := newQueueSyncFixture(t)

		rec := serve(t, f.handler, http.MethodPost, "/api/clients/client-1/feed-applications",
			`{"feed_job_id":"feed-9","job":"x"}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_json", decodeBody[errorBody](t, rec).Error)
	})

	t.Run("feed rejection is 502", func(t *testing.T) {
		t.Parallel()
		f := newQueueSyncFixture(t)
		f.feed.EXPECT().RegisterApplication(gomock.Any(), gomock.Any()).
			Return(apperrors.Upstream(errors.New("status 500"), "register application"))

		rec := serve(t, f.handler, http.MethodPost, "/api/clients/client-1/feed-applications",
			`{"feed_job_id":"feed-9"}`)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}
