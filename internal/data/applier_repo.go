package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jumpseat/jumpseat-api/internal/data/pgxutil"
	"github.com/jumpseat/jumpseat-api/internal/domain/model"
	apperrors "github.com/jumpseat/jumpseat-api/internal/errors"
)

const applierColumns = `id, name, email, status, last_activity_at, created_at, updated_at`

// ApplierRepo provides access to applier presence state.
type ApplierRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewApplierRepo creates a new ApplierRepo instance with the given database connection.
func NewApplierRepo(db *sql.DB) *ApplierRepo {
	return &ApplierRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewApplierRepoWithTimeProvider creates an ApplierRepo with a custom TimeProvider.
func NewApplierRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ApplierRepo {
	return &ApplierRepo{DB: db, timeProvider: tp}
}

// GetByID retrieves an applier by ID, or ErrApplierNotFound.
func (r *ApplierRepo) GetByID(ctx context.Context, id string) (*model.Applier, error) {
	if id == "" {
		return nil, ErrApplierIDRequired
	}
	applier, err := pgxutil.CollectOneStruct[model.Applier](ctx, r.DB,
		`SELECT `+applierColumns+` FROM appliers WHERE id = $1`, id)
	if err != nil {
		return nil, mapRepoErr(err, ErrApplierNotFound)
	}
	return applier, nil
}

// UpdateStatus sets status and last_activity_at. Returns ErrApplierNotFound when no row matched.
func (r *ApplierRepo) UpdateStatus(ctx context.Context, id string, status model.ApplierStatus, at time.Time) error {
	if id == "" {
		return ErrApplierIDRequired
	}
	if !status.Valid() {
		return apperrors.ValidationField("status", fmt.Sprintf("invalid applier status %q", status))
	}

	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx,
			`UPDATE appliers SET status = $2, last_activity_at = $3, updated_at = $4 WHERE id = $1`,
			id, string(status), at.UTC(), r.timeProvider.Now().UTC())
		affected = tag.RowsAffected()
		return execErr
	})
	if err != nil {
		return fmt.Errorf("update applier status: %w", mapRepoErr(err, nil))
	}
	if affected == 0 {
		return apperrors.Tag(ErrApplierNotFound, apperrors.ErrCodeNotFound)
	}
	return nil
}
