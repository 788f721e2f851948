// Package model defines the core data types shared by the jumpseat queue and presence services.
package model

import (
	"errors"
	"strings"
	"time"
)

// JobSourceFeed tags jobs created from the external job feed.
const JobSourceFeed = "feed"

// Job is a posting queued for exactly one client. Jobs are immutable once inserted.
type Job struct {
	ID          string    `json:"id"                     db:"id"`
	ClientID    string    `json:"client_id"              db:"client_id"`
	FeedJobID   string    `json:"feed_job_id"            db:"feed_job_id"`
	Title       string    `json:"title"                  db:"title"`
	Company     string    `json:"company"                db:"company"`
	CompanyLogo *string   `json:"company_logo,omitempty" db:"company_logo"`
	Location    *string   `json:"location,omitempty"     db:"location"`
	ApplyURL    string    `json:"apply_url"              db:"apply_url"`
	Source      string    `json:"source"                 db:"source"`
	CreatedAt   time.Time `json:"created_at"             db:"created_at"`
}

// CreateJobRequest represents a request to queue a new job for a client.
type CreateJobRequest struct {
	ClientID    string  `json:"client_id"`
	FeedJobID   string  `json:"feed_job_id"`
	Title       string  `json:"title"`
	Company     string  `json:"company"`
	CompanyLogo *string `json:"company_logo,omitempty"`
	Location    *string `json:"location,omitempty"`
	ApplyURL    string  `json:"apply_url"`
	Source      string  `json:"source"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.ClientID) == "":
		return errors.New("client_id is required")
	case strings.TrimSpace(r.FeedJobID) == "":
		return errors.New("feed_job_id is required")
	case strings.TrimSpace(r.Title) == "":
		return errors.New("title is required")
	case strings.TrimSpace(r.Company) == "":
		return errors.New("company is required")
	case strings.TrimSpace(r.ApplyURL) == "":
		return errors.New("apply_url is required")
	}
	return nil
}

// NewCreateJobRequest builds an insert request from an accepted feed item.
func NewCreateJobRequest(clientID string, item FeedItem) CreateJobRequest {
	return CreateJobRequest{
		ClientID:    clientID,
		FeedJobID:   item.CanonicalJobID,
		Title:       strings.TrimSpace(item.Title),
		Company:     strings.TrimSpace(item.Company),
		CompanyLogo: nonEmpty(item.CompanyLogo),
		Location:    nonEmpty(item.JobLocation),
		ApplyURL:    strings.TrimSpace(item.ApplyURL),
		Source:      JobSourceFeed,
	}
}

func nonEmpty(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}
