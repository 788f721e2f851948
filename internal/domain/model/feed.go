package model

import (
	"encoding/json"
	"strings"
)

// FeedItem is one job returned by the external feed API.
// Items failing validation are skipped by queue sync, never inserted.
type FeedItem struct {
	CanonicalJobID string `json:"canonical_job_id" validate:"required"`
	Title          string `json:"title"            validate:"required"`
	Company        string `json:"company"          validate:"required"`
	CompanyLogo    string `json:"company_logo"`
	JobLocation    string `json:"job_location"`
	ApplyURL       string `json:"apply_url"        validate:"required"`

	// Cursor fields are opaque pagination hints and are passed through untouched.
	CursorTime json.RawMessage `json:"cursor_time,omitempty"`
	CursorID   string          `json:"cursor_id,omitempty"`
}

// Normalize trims whitespace from the fields used for validation and dedup.
func (i *FeedItem) Normalize() {
	i.CanonicalJobID = strings.TrimSpace(i.CanonicalJobID)
	i.Title = strings.TrimSpace(i.Title)
	i.Company = strings.TrimSpace(i.Company)
	i.ApplyURL = strings.TrimSpace(i.ApplyURL)
}

// FeedRequest is the body of a job feed fetch.
type FeedRequest struct {
	User                string   `json:"user"`
	ExcludeApplyDomains []string `json:"exclude_apply_domains"`
	PageSize            int      `json:"page_size"`
}

// FeedApplicationRequest is the body sent when registering a consumed job with the feed.
type FeedApplicationRequest struct {
	User string `json:"user"`
	Job  string `json:"job"`
}
