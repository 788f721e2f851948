package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - database.go: Database and Redis configuration
//   - http.go: HTTP server configuration
//   - feed.go: External job feed client configuration
//   - services.go: Service mode and queue sync configuration
//   - presence.go: Applier presence tracking configuration
type AppConfig struct {
	// IsDev controls development mode behavior (text logs, verbose output).
	// Set DEV=true or APP_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel is the minimum slog level (debug, info, warn, error).
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Service mode configuration
	Services string `env:"SERVICES" envDefault:"http"`

	// External job feed configuration
	Feed FeedConfig `envPrefix:"FEED_"`

	// Queue sync configuration
	QueueSync QueueSyncConfig `envPrefix:"QUEUE_SYNC_"`

	// Presence tracker configuration
	Presence PresenceConfig `envPrefix:"PRESENCE_"`

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Feed.Sanitize()
	c.QueueSync.Sanitize()
	c.Presence.Sanitize()
	c.Observability.Sanitize()

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.detectDevMode()
}

// detectDevMode checks both DEV and APP_ENV environment variables.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		appEnv := strings.ToLower(os.Getenv("APP_ENV"))
		c.IsDev = appEnv == "development" || appEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeHTTP]
}

// IsQueueSyncEnabled returns true if the periodic queue sync service is enabled.
func (c *AppConfig) IsQueueSyncEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeQueueSync]
}

// NeedsRedis reports whether any enabled component requires a Redis connection.
func (c *AppConfig) NeedsRedis() bool {
	if c.IsHTTPServerEnabled() && c.Presence.Backend == PresenceBackendRedis {
		return true
	}
	return c.IsQueueSyncEnabled() && c.QueueSync.DistributedLock
}
