// Package mocks provides gomock implementations of the internal/core ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	jobs := mocks.NewMockJobRepository(ctrl)
//	jobs.EXPECT().ListByClient(gomock.Any(), "client-1").Return(nil, nil)
package mocks

// Storage ports used by QueueSyncService.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_repository_mock.go github.com/jumpseat/jumpseat-api/internal/core JobRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=application_repository_mock.go github.com/jumpseat/jumpseat-api/internal/core ApplicationRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_repository_mock.go github.com/jumpseat/jumpseat-api/internal/core SessionRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=client_repository_mock.go github.com/jumpseat/jumpseat-api/internal/core ClientRepository

// Presence persistence and cross-instance fan-out.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=applier_repository_mock.go github.com/jumpseat/jumpseat-api/internal/core ApplierRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=presence_fanout_mock.go github.com/jumpseat/jumpseat-api/internal/core PresenceFanout

// External feed API.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=feed_client_mock.go github.com/jumpseat/jumpseat-api/internal/core FeedClient

// Distributed lease used by the queue sync runner.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/jumpseat/jumpseat-api/internal/core CacheRepository
