package config

import (
	"strings"
	"time"
)

// FeedConfig configures the client for the external job feed API.
type FeedConfig struct {
	// APIURL is the base URL of the feed API (FEED_API_URL).
	APIURL string `env:"API_URL"`

	// APIToken is the bearer token sent with every feed request (FEED_API_TOKEN).
	APIToken string `env:"API_TOKEN"`

	// Timeout bounds a single HTTP round-trip to the feed.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"20s"`

	// RetryAttempts is the number of attempts for feed fetches. Registration calls are never retried.
	RetryAttempts uint `env:"RETRY_ATTEMPTS" envDefault:"3"`

	// RetryDelay is the base backoff between fetch attempts.
	RetryDelay time.Duration `env:"RETRY_DELAY" envDefault:"500ms"`

	// ExcludeApplyDomains is sent as exclude_apply_domains and also enforced locally.
	ExcludeApplyDomains []string `env:"EXCLUDE_APPLY_DOMAINS" envDefault:""`

	// ItemsPath is an optional JMESPath expression selecting the item array when
	// the feed wraps its response in an envelope (e.g. "data.jobs").
	ItemsPath string `env:"ITEMS_PATH" envDefault:""`
}

// Sanitize applies guardrails to feed configuration values.
func (f *FeedConfig) Sanitize() {
	f.APIURL = strings.TrimRight(strings.TrimSpace(f.APIURL), "/")
	f.APIToken = strings.TrimSpace(f.APIToken)
	f.ItemsPath = strings.TrimSpace(f.ItemsPath)
	if f.Timeout <= 0 {
		f.Timeout = 20 * time.Second
	}
	if f.RetryAttempts < 1 {
		f.RetryAttempts = 1
	}
	if f.RetryDelay <= 0 {
		f.RetryDelay = 500 * time.Millisecond
	}

	domains := make([]string, 0, len(f.ExcludeApplyDomains))
	for _, d := range f.ExcludeApplyDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			domains = append(domains, d)
		}
	}
	f.ExcludeApplyDomains = domains
}

// IsConfigured reports whether the feed API URL has been provided.
func (f *FeedConfig) IsConfigured() bool {
	return f.APIURL != ""
}
