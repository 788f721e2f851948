package model

import "time"

// ApplierStatus is the presence state of an applier.
type ApplierStatus string

const (
	ApplierStatusActive ApplierStatus = "active"
	ApplierStatusIdle   ApplierStatus = "idle"
	// ApplierStatusInactive is set by admins and is never overwritten on disconnect.
	ApplierStatusInactive ApplierStatus = "inactive"
	ApplierStatusOffline  ApplierStatus = "offline"
)

// Valid reports whether the status is supported.
func (s ApplierStatus) Valid() bool {
	switch s {
	case ApplierStatusActive, ApplierStatusIdle, ApplierStatusInactive, ApplierStatusOffline:
		return true
	default:
		return false
	}
}

// Applier is a staff account that submits applications on clients' behalf.
type Applier struct {
	ID             string        `json:"id"                         db:"id"`
	Name           string        `json:"name"                       db:"name"`
	Email          string        `json:"email"                      db:"email"`
	Status         ApplierStatus `json:"status"                     db:"status"`
	LastActivityAt *time.Time    `json:"last_activity_at,omitempty" db:"last_activity_at"`
	CreatedAt      time.Time     `json:"created_at"                 db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"                 db:"updated_at"`
}
