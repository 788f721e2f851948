package data

import (
	"errors"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/jumpseat/jumpseat-api/internal/errors"
)

// Shared sentinel errors for data-layer repositories. Repositories return them tagged
// with apperrors.ErrCodeNotFound, so both errors.Is and apperrors.IsNotFound match.
var (
	ErrJobNotFound     = errors.New("job not found")
	ErrClientNotFound  = errors.New("client not found")
	ErrApplierNotFound = errors.New("applier not found")

	ErrClientIDRequired  = errors.New("client_id is required")
	ErrApplierIDRequired = errors.New("applier_id is required")
)

// mapRepoErr converts pgx.ErrNoRows into the tagged sentinel and everything else
// through apperrors.MapDBError.
func mapRepoErr(err, notFound error) error {
	if err == nil {
		return nil
	}
	if notFound != nil && errors.Is(err, pgx.ErrNoRows) {
		return apperrors.Tag(notFound, apperrors.ErrCodeNotFound)
	}
	return apperrors.MapDBError(err)
}
