package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jumpseat/jumpseat-api/internal/domain/model"
	apperrors "github.com/jumpseat/jumpseat-api/internal/errors"
)

func newTestClient(t *testing.T, srv *httptest.Server, mutate func(*ClientOptions)) *Client {
	t.Helper()
	opts := ClientOptions{
		BaseURL:       srv.URL + "/",
		Token:         "feed-secret",
		Timeout:       2 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	}
	if mutate != nil {
		mutate(&opts)
	}
	c, err := NewClient(opts)
	require.NoError(t, err)
	return c
}

func TestFetchJobs_RequestShape(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, feedPath, r.URL.Path)
		assert.Equal(t, "Bearer feed-secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"canonical_job_id":"f-1","title":"SRE","company":"Acme","apply_url":"https://acme.test/1","job_location":"Remote"}]`)
	}))
	defer srv.Close()

	items, err := newTestClient(t, srv, nil).FetchJobs(context.Background(), model.FeedRequest{User: "client-1", PageSize: 25})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "f-1", items[0].CanonicalJobID)
	assert.Equal(t, "Remote", items[0].JobLocation)

	assert.Equal(t, "client-1", gotBody["user"])
	assert.Equal(t, float64(25), gotBody["page_size"])
	assert.Equal(t, []any{}, gotBody["exclude_apply_domains"])
}

func TestFetchJobs_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	items, err := newTestClient(t, srv, nil).FetchJobs(context.Background(), model.FeedRequest{User: "c", PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchJobs_GivesUpAfterAttempts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, nil).FetchJobs(context.Background(), model.FeedRequest{User: "c", PageSize: 10})
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchJobs_ClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "unknown user", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, nil).FetchJobs(context.Background(), model.FeedRequest{User: "c", PageSize: 10})
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
	assert.Equal(t, int32(1), calls.Load())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "unknown user", statusErr.Body)
}

func TestFetchJobs_MalformedBodyNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"not":"an array"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, nil).FetchJobs(context.Background(), model.FeedRequest{User: "c", PageSize: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode feed items")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchJobs_MalformedItemsBecomeEmpty(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[
			{"canonical_job_id":"f-1","title":"SRE","company":"Acme","apply_url":"https://acme.test/1"},
			{"canonical_job_id":"f-2","title":42,"company":"Acme","apply_url":"https://acme.test/2"},
			{"canonical_job_id":"f-3","title":"QA","company":"Acme","apply_url":"https://acme.test/3","cursor_time":"2024-05-01 10:00:00"},
			"not an object"
		]`)
	}))
	defer srv.Close()

	items, err := newTestClient(t, srv, nil).FetchJobs(context.Background(), model.FeedRequest{User: "c", PageSize: 10})
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, "f-1", items[0].CanonicalJobID)
	assert.Equal(t, model.FeedItem{}, items[1])
	assert.Equal(t, "f-3", items[2].CanonicalJobID)
	assert.JSONEq(t, `"2024-05-01 10:00:00"`, string(items[2].CursorTime))
	assert.Equal(t, model.FeedItem{}, items[3])
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate([]byte("  short \n")))

	long := strings.Repeat("a", maxErrorBodyLen-1) + "é" + "tail"
	got := truncate([]byte(long))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", maxErrorBodyLen-1)+"...", got)

	exact := strings.Repeat("b", maxErrorBodyLen+10)
	assert.Equal(t, strings.Repeat("b", maxErrorBodyLen)+"...", truncate([]byte(exact)))
}

func TestFetchJobs_ItemsPath(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"jobs":[{"canonical_job_id":"a"},{"canonical_job_id":"b"}]},"next":null}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, func(o *ClientOptions) { o.ItemsPath = "data.jobs" })
	items, err := c.FetchJobs(context.Background(), model.FeedRequest{User: "c", PageSize: 10})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[1].CanonicalJobID)

	missing := newTestClient(t, srv, func(o *ClientOptions) { o.ItemsPath = "data.other" })
	items, err = missing.FetchJobs(context.Background(), model.FeedRequest{User: "c", PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFetchJobs_OversizeResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat(" ", maxResponseBytes+10))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, nil).FetchJobs(context.Background(), model.FeedRequest{User: "c", PageSize: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestNewClient_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(ClientOptions{})
	require.Error(t, err)

	_, err = NewClient(ClientOptions{BaseURL: "http://feed.test", ItemsPath: "data.["})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid feed items path")
}

func TestNewClient_NoTokenSendsNoAuthorization(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, func(o *ClientOptions) { o.Token = "" })
	_, err := c.FetchJobs(context.Background(), model.FeedRequest{User: "c", PageSize: 1})
	require.NoError(t, err)
}

func TestRegisterApplication(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		var body model.FeedApplicationRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, registerPath, r.URL.Path)
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		err := newTestClient(t, srv, nil).RegisterApplication(context.Background(),
			model.FeedApplicationRequest{User: "client-1", Job: "feed-9"})
		require.NoError(t, err)
		assert.Equal(t, model.FeedApplicationRequest{User: "client-1", Job: "feed-9"}, body)
	})

	t.Run("single attempt on failure", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		err := newTestClient(t, srv, nil).RegisterApplication(context.Background(),
			model.FeedApplicationRequest{User: "client-1", Job: "feed-9"})
		require.Error(t, err)
		assert.True(t, apperrors.IsUpstream(err))
		assert.Equal(t, int32(1), calls.Load())
	})
}
