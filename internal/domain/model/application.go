package model

import "time"

// Application is a completed submission of a job on behalf of a client.
type Application struct {
	ID        string    `json:"id"         db:"id"`
	JobID     string    `json:"job_id"     db:"job_id"`
	ApplierID string    `json:"applier_id" db:"applier_id"`
	ClientID  string    `json:"client_id"  db:"client_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SessionStatus tracks an applier's progress on a job:
// pending → in_progress → {applied, flagged}.
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "pending"
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusApplied    SessionStatus = "applied"
	SessionStatusFlagged    SessionStatus = "flagged"
)

// Valid reports whether the status is supported.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusPending, SessionStatusInProgress, SessionStatusApplied, SessionStatusFlagged:
		return true
	default:
		return false
	}
}

// ApplierJobSession is an applier's interaction with a queued job.
type ApplierJobSession struct {
	ID        string        `json:"id"         db:"id"`
	ApplierID string        `json:"applier_id" db:"applier_id"`
	JobID     string        `json:"job_id"     db:"job_id"`
	Status    SessionStatus `json:"status"     db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}
