package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server, including the presence WebSocket endpoint.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeQueueSync runs the periodic client queue top-up loop.
	ServiceModeQueueSync ServiceMode = "queue-sync"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeQueueSync,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeQueueSync:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, queue-sync)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// QueueSyncConfig contains queue top-up configuration.
type QueueSyncConfig struct {
	// TargetSize is the number of reviewable jobs each client queue is topped up to.
	TargetSize int `env:"TARGET_SIZE" envDefault:"100"`

	// FetchPad is added to the deficit when requesting feed items, absorbing
	// duplicates and malformed entries without a second round-trip.
	FetchPad int `env:"FETCH_PAD" envDefault:"20"`

	// MaxPageSize caps the page_size sent to the feed.
	MaxPageSize int `env:"MAX_PAGE_SIZE" envDefault:"100"`

	// Interval is the periodic sync tick interval.
	Interval time.Duration `env:"INTERVAL" envDefault:"15m"`

	// ClientTimeout bounds a single client's sync (feed round-trip plus inserts).
	ClientTimeout time.Duration `env:"CLIENT_TIMEOUT" envDefault:"2m"`

	// DistributedLock takes a Redis lease per tick so only one instance runs the sweep.
	DistributedLock bool `env:"DISTRIBUTED_LOCK" envDefault:"false"`
}

// Sanitize applies guardrails to queue sync configuration values.
func (q *QueueSyncConfig) Sanitize() {
	if q.TargetSize < 1 {
		q.TargetSize = 100
	}
	if q.FetchPad < 0 {
		q.FetchPad = 0
	}
	if q.MaxPageSize < 1 {
		q.MaxPageSize = 100
	}
	// Enforce a minimum interval to keep feed rate limits intact
	if q.Interval < time.Minute {
		q.Interval = time.Minute
	}
	if q.ClientTimeout <= 0 {
		q.ClientTimeout = 2 * time.Minute
	}
}
