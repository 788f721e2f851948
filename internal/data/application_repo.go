package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jumpseat/jumpseat-api/internal/data/pgxutil"
	"github.com/jumpseat/jumpseat-api/internal/domain/model"
)

// ApplicationRepo provides read access to submitted applications.
type ApplicationRepo struct {
	DB *sql.DB
}

// NewApplicationRepo creates a new ApplicationRepo instance with the given database connection.
func NewApplicationRepo(db *sql.DB) *ApplicationRepo {
	return &ApplicationRepo{DB: db}
}

// ListByClient returns every application submitted for the client.
func (r *ApplicationRepo) ListByClient(ctx context.Context, clientID string) ([]*model.Application, error) {
	if clientID == "" {
		return nil, ErrClientIDRequired
	}
	apps, err := pgxutil.CollectStructs[model.Application](ctx, r.DB, `
		SELECT id, job_id, applier_id, client_id, created_at
		FROM applications
		WHERE client_id = $1
		ORDER BY created_at ASC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list applications for client: %w", mapRepoErr(err, nil))
	}
	return apps, nil
}

// SessionRepo provides read access to applier job sessions.
type SessionRepo struct {
	DB *sql.DB
}

// NewSessionRepo creates a new SessionRepo instance with the given database connection.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{DB: db}
}

type flaggedJobRow struct {
	JobID string `db:"job_id"`
}

// ListFlaggedJobIDs returns the client's job IDs that have a flagged session from any applier.
func (r *SessionRepo) ListFlaggedJobIDs(ctx context.Context, clientID string) ([]string, error) {
	if clientID == "" {
		return nil, ErrClientIDRequired
	}
	rows, err := pgxutil.CollectStructs[flaggedJobRow](ctx, r.DB, `
		SELECT DISTINCT s.job_id
		FROM applier_job_sessions s
		JOIN jobs j ON j.id = s.job_id
		WHERE j.client_id = $1 AND s.status = $2`, clientID, string(model.SessionStatusFlagged))
	if err != nil {
		return nil, fmt.Errorf("list flagged jobs for client: %w", mapRepoErr(err, nil))
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.JobID)
	}
	return ids, nil
}
