// Package core defines the ports between the jumpseat services and their adapters.
package core

import (
	"context"
	"time"

	"github.com/jumpseat/jumpseat-api/internal/domain/model"
)

// This file contains repository and adapter interface definitions (ports in hexagonal
// architecture). Services depend on these interfaces, never on concrete adapters.
// Lookups that find nothing return an error for which errors.IsNotFound reports true.

// JobRepository defines the interface for queued job data operations.
type JobRepository interface {
	Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
	// GetByFeedID returns the client's job carrying the given feed identifier.
	GetByFeedID(ctx context.Context, clientID, feedJobID string) (*model.Job, error)
	ListByClient(ctx context.Context, clientID string) ([]*model.Job, error)
}

// ApplicationRepository defines read access to submitted applications.
type ApplicationRepository interface {
	ListByClient(ctx context.Context, clientID string) ([]*model.Application, error)
}

// SessionRepository defines read access to applier job sessions.
type SessionRepository interface {
	// ListFlaggedJobIDs returns the distinct job IDs of the client that any applier flagged.
	ListFlaggedJobIDs(ctx context.Context, clientID string) ([]string, error)
}

// ClientRepository defines read access to clients.
type ClientRepository interface {
	List(ctx context.Context) ([]*model.Client, error)
	GetByID(ctx context.Context, id string) (*model.Client, error)
}

// ApplierRepository defines access to applier presence state.
type ApplierRepository interface {
	GetByID(ctx context.Context, id string) (*model.Applier, error)
	// UpdateStatus persists status together with last_activity_at.
	UpdateStatus(ctx context.Context, id string, status model.ApplierStatus, at time.Time) error
}

// FeedClient is the external job feed API.
type FeedClient interface {
	FetchJobs(ctx context.Context, req model.FeedRequest) ([]model.FeedItem, error)
	RegisterApplication(ctx context.Context, req model.FeedApplicationRequest) error
}

// PresenceFanout distributes presence events between server instances.
type PresenceFanout interface {
	Publish(ctx context.Context, evt model.PresenceEvent) error
	// Subscribe delivers every published event (including this instance's own) to handler
	// and blocks until ctx is canceled or the subscription fails.
	Subscribe(ctx context.Context, handler func(model.PresenceEvent)) error
}
