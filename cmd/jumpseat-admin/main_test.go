package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jumpseat/jumpseat-api/config"
	"github.com/jumpseat/jumpseat-api/internal/adapters/queuesync"
	"github.com/jumpseat/jumpseat-api/internal/domain/model"
	"github.com/jumpseat/jumpseat-api/internal/migrate"
	"github.com/jumpseat/jumpseat-api/internal/mocks"
)

type fakeSyncer struct {
	one     *model.SyncResult
	all     []model.SyncResult
	err     error
	applied [][2]string
}

func (f *fakeSyncer) SyncClient(_ context.Context, clientID string) (*model.SyncResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	res := *f.one
	res.ClientID = clientID
	return &res, nil
}

func (f *fakeSyncer) SyncAllClients(context.Context) ([]model.SyncResult, error) {
	return f.all, f.err
}

func (f *fakeSyncer) MarkJobApplied(_ context.Context, clientID, feedJobID string) error {
	if f.err != nil {
		return f.err
	}
	f.applied = append(f.applied, [2]string{clientID, feedJobID})
	return nil
}

func TestRunSync(t *testing.T) {
	t.Parallel()

	t.Run("single client table", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		svc := &fakeSyncer{one: &model.SyncResult{Added: 3, Skipped: 1, QueueSize: 100}}

		require.NoError(t, runSync(context.Background(), svc, syncOptions{ClientID: " client-1 "}, &out))

		assert.Contains(t, out.String(), "CLIENT")
		assert.Regexp(t, `client-1\s+3\s+1\s+100\s+-`, out.String())
	})

	t.Run("all clients json", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		svc := &fakeSyncer{all: []model.SyncResult{
			{ClientID: "a", Added: 2, QueueSize: 100},
			{ClientID: "b", Error: "feed unavailable"},
		}}

		require.NoError(t, runSync(context.Background(), svc, syncOptions{All: true, JSON: true}, &out))

		var got []model.SyncResult
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "feed unavailable", got[1].Error)
	})

	t.Run("no clients json is empty array", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		require.NoError(t, runSync(context.Background(), &fakeSyncer{}, syncOptions{All: true, JSON: true}, &out))
		assert.JSONEq(t, `[]`, out.String())
	})

	t.Run("blank client rejected", func(t *testing.T) {
		t.Parallel()
		err := runSync(context.Background(), &fakeSyncer{}, syncOptions{ClientID: "  "}, io.Discard)
		require.Error(t, err)
	})

	t.Run("service error wrapped", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		err := runSync(context.Background(), &fakeSyncer{err: boom}, syncOptions{ClientID: "c"}, io.Discard)
		require.ErrorIs(t, err, boom)
	})
}

func TestPrintSyncResults(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, printSyncResults(&out, nil))
	assert.Equal(t, "no active clients\n", out.String())

	out.Reset()
	require.NoError(t, printSyncResults(&out, []model.SyncResult{
		{ClientID: "a", Errors: []string{"insert job x: boom", "insert job y: boom"}},
		{ClientID: "b", Error: "context deadline exceeded"},
	}))
	assert.Contains(t, out.String(), "insert job x: boom; insert job y: boom")
	assert.Contains(t, out.String(), "failed: context deadline exceeded")
}

func TestRunMarkApplied(t *testing.T) {
	t.Parallel()

	svc := &fakeSyncer{}
	var out bytes.Buffer
	require.NoError(t, runMarkApplied(context.Background(), svc,
		markAppliedOptions{ClientID: "client-1", FeedJobID: " job-9 "}, &out))

	assert.Equal(t, [][2]string{{"client-1", "job-9"}}, svc.applied)
	assert.Contains(t, out.String(), "job-9")

	err := runMarkApplied(context.Background(), svc, markAppliedOptions{ClientID: "client-1"}, io.Discard)
	require.Error(t, err)
}

func TestSyncCmdFlagGroups(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "neither flag", args: nil, wantErr: "at least one of the flags"},
		{name: "both flags", args: []string{"--client", "c", "--all"}, wantErr: "none of the others can be"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cmd := newSyncCmd(&app{Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), Out: io.Discard})
			cmd.SetArgs(tt.args)
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReleaseLease(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)

	gomock.InOrder(
		cache.EXPECT().Delete(gomock.Any(), queuesync.LeaseKey).Return(true, nil),
		cache.EXPECT().Delete(gomock.Any(), queuesync.LeaseKey).Return(false, nil),
		cache.EXPECT().Delete(gomock.Any(), queuesync.LeaseKey).Return(false, errors.New("redis down")),
	)

	var out bytes.Buffer
	require.NoError(t, releaseLease(context.Background(), cache, &out))
	assert.Equal(t, "released queue sync lease\n", out.String())

	out.Reset()
	require.NoError(t, releaseLease(context.Background(), cache, &out))
	assert.Equal(t, "no queue sync lease held\n", out.String())

	require.Error(t, releaseLease(context.Background(), cache, io.Discard))
}

func TestPrintMigrationStatus(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	require.NoError(t, printMigrationStatus(&out, []migrate.Status{
		{Version: "001_init.sql", Applied: true},
		{Version: "002_sessions.sql"},
	}))
	assert.Regexp(t, `001_init.sql\s+yes`, out.String())
	assert.Regexp(t, `002_sessions.sql\s+no`, out.String())
}

func TestHasRedisConfig(t *testing.T) {
	t.Parallel()

	assert.False(t, hasRedisConfig(nil))
	assert.False(t, hasRedisConfig(&config.RedisConfig{}))
	assert.True(t, hasRedisConfig(&config.RedisConfig{URI: "localhost:6379"}))
	assert.False(t, hasRedisConfig(&config.RedisConfig{UseSentinel: true}))
	assert.True(t, hasRedisConfig(&config.RedisConfig{UseSentinel: true, SentinelNodes: []string{"s:26379"}}))
}
