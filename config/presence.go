package config

import (
	"strings"
	"time"
)

// PresenceBackend selects how presence events reach other server instances.
type PresenceBackend string

const (
	// PresenceBackendMemory keeps registry and broadcast within a single process.
	PresenceBackendMemory PresenceBackend = "memory"
	// PresenceBackendRedis fans status changes and supersede notices out over Redis pub/sub.
	PresenceBackendRedis PresenceBackend = "redis"
)

// PresenceConfig contains applier presence tracking configuration.
type PresenceConfig struct {
	// IdleTimeout is the silence window after which an applier becomes idle.
	IdleTimeout time.Duration `env:"IDLE_TIMEOUT" envDefault:"2m"`

	// SweepInterval is how often every open socket is pinged and dead entries pruned.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"30s"`

	// WriteTimeout bounds a single socket write (ack, broadcast, ping, close).
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`

	// PersistTimeout bounds status reads and writes issued from socket callbacks.
	PersistTimeout time.Duration `env:"PERSIST_TIMEOUT" envDefault:"5s"`

	// Backend is memory (single instance) or redis (multi-instance fan-out).
	Backend PresenceBackend `env:"BACKEND" envDefault:"memory"`

	// RedisChannel is the pub/sub channel used by the redis backend.
	RedisChannel string `env:"REDIS_CHANNEL" envDefault:"jumpseat:presence"`
}

// Sanitize applies guardrails to presence configuration values.
func (p *PresenceConfig) Sanitize() {
	if p.IdleTimeout <= 0 {
		p.IdleTimeout = 2 * time.Minute
	}
	if p.SweepInterval <= 0 {
		p.SweepInterval = 30 * time.Second
	}
	if p.WriteTimeout <= 0 {
		p.WriteTimeout = 10 * time.Second
	}
	if p.PersistTimeout <= 0 {
		p.PersistTimeout = 5 * time.Second
	}

	switch PresenceBackend(strings.ToLower(strings.TrimSpace(string(p.Backend)))) {
	case PresenceBackendRedis:
		p.Backend = PresenceBackendRedis
	default:
		p.Backend = PresenceBackendMemory
	}

	if p.RedisChannel = strings.TrimSpace(p.RedisChannel); p.RedisChannel == "" {
		p.RedisChannel = "jumpseat:presence"
	}
}
