package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jumpseat/jumpseat-api/internal/data/pgxutil"
	"github.com/jumpseat/jumpseat-api/internal/domain/model"
)

const jobColumns = `id, client_id, feed_job_id, title, company, company_logo, location, apply_url, source, created_at`

const (
	jobInsertQuery = `
		INSERT INTO jobs (id, client_id, feed_job_id, title, company, company_logo, location, apply_url, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + jobColumns

	jobGetByFeedIDQuery = `SELECT ` + jobColumns + ` FROM jobs WHERE client_id = $1 AND feed_job_id = $2`

	jobListByClientQuery = `SELECT ` + jobColumns + ` FROM jobs WHERE client_id = $1 ORDER BY created_at ASC, id ASC`
)

// JobRepo provides database operations for client job queues.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewJobRepo creates a new JobRepo instance with the given database connection.
func NewJobRepo(db *sql.DB) *JobRepo {
	return &JobRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewJobRepoWithTimeProvider creates a JobRepo with a custom TimeProvider (useful for testing).
func NewJobRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *JobRepo {
	return &JobRepo{DB: db, timeProvider: tp}
}

// Create inserts a job. A duplicate (client_id, feed_job_id) returns an
// apperrors.ErrCodeConflict error.
func (r *JobRepo) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if req == nil {
		return nil, errors.New("create job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = model.JobSourceFeed
	}

	job, err := pgxutil.CollectOneStruct[model.Job](ctx, r.DB, jobInsertQuery,
		uuid.NewString(), req.ClientID, req.FeedJobID, req.Title, req.Company,
		req.CompanyLogo, req.Location, req.ApplyURL, source, r.timeProvider.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", mapRepoErr(err, nil))
	}
	return job, nil
}

// GetByFeedID returns the client's job carrying feedJobID, or ErrJobNotFound.
func (r *JobRepo) GetByFeedID(ctx context.Context, clientID, feedJobID string) (*model.Job, error) {
	if clientID == "" {
		return nil, ErrClientIDRequired
	}
	job, err := pgxutil.CollectOneStruct[model.Job](ctx, r.DB, jobGetByFeedIDQuery, clientID, feedJobID)
	if err != nil {
		return nil, mapRepoErr(err, ErrJobNotFound)
	}
	return job, nil
}

// ListByClient returns every job queued for the client in insertion order.
func (r *JobRepo) ListByClient(ctx context.Context, clientID string) ([]*model.Job, error) {
	if clientID == "" {
		return nil, ErrClientIDRequired
	}
	jobs, err := pgxutil.CollectStructs[model.Job](ctx, r.DB, jobListByClientQuery, clientID)
	if err != nil {
		return nil, fmt.Errorf("list jobs for client: %w", mapRepoErr(err, nil))
	}
	return jobs, nil
}
