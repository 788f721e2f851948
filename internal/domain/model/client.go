package model

import "time"

// ClientStatus is the lifecycle state of a client (job seeker).
type ClientStatus string

const (
	ClientStatusActive  ClientStatus = "active"
	ClientStatusPlaced  ClientStatus = "placed"
	ClientStatusPaused  ClientStatus = "paused"
	ClientStatusChurned ClientStatus = "churned"
)

// Valid reports whether the status is supported.
func (s ClientStatus) Valid() bool {
	switch s {
	case ClientStatusActive, ClientStatusPlaced, ClientStatusPaused, ClientStatusChurned:
		return true
	default:
		return false
	}
}

// Syncable reports whether clients in this status get their job queue topped up.
func (s ClientStatus) Syncable() bool {
	return s == ClientStatusActive || s == ClientStatusPlaced
}

// Client is a job seeker whose applications are outsourced.
type Client struct {
	ID        string       `json:"id"         db:"id"`
	Name      string       `json:"name"       db:"name"`
	Email     string       `json:"email"      db:"email"`
	Status    ClientStatus `json:"status"     db:"status"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}
