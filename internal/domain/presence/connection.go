// Package presence holds the in-memory connection records behind applier presence
// tracking: one canonical WebSocket per applier, its last activity, and its idle timer.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/jumpseat/jumpseat-api/internal/domain/model"
)

// Socket is the server side of one presence WebSocket. Implementations need not be
// safe for concurrent writes; Connection serialises them.
type Socket interface {
	WriteJSON(ctx context.Context, v any) error
	Ping(ctx context.Context) error
	Close(code int, reason string) error
	// Open reports whether the socket can still be written to.
	Open() bool
}

// Connection is the record kept for a single applier socket.
type Connection struct {
	ID          string
	ApplierID   string
	ConnectedAt time.Time

	socket  Socket
	writeMu sync.Mutex

	mu           sync.Mutex
	lastActivity time.Time
	idleTimer    *time.Timer
	generation   uint64
	superseded   bool
}

// NewConnection creates a record for socket opened at now.
func NewConnection(id, applierID string, socket Socket, now time.Time) *Connection {
	return &Connection{
		ID:           id,
		ApplierID:    applierID,
		ConnectedAt:  now,
		socket:       socket,
		lastActivity: now,
	}
}

// Touch records inbound activity at t.
func (c *Connection) Touch(t time.Time) {
	c.mu.Lock()
	if t.After(c.lastActivity) {
		c.lastActivity = t
	}
	c.mu.Unlock()
}

// LastActivity returns the time of the most recent inbound activity.
func (c *Connection) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// ArmIdle cancels any pending idle timer and schedules fire after d. fire receives the
// generation it was armed with; callers check IdleCurrent before acting on it.
func (c *Connection) ArmIdle(d time.Duration, fire func(generation uint64)) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}
	c.generation++
	if c.superseded {
		c.idleTimer = nil
		return c.generation
	}
	gen := c.generation
	c.idleTimer = time.AfterFunc(d, func() { fire(gen) })
	return gen
}

// StopIdle cancels the pending idle timer. A callback already running observes a
// stale generation.
func (c *Connection) StopIdle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}
	c.generation++
}

// IdleCurrent reports whether generation is still the armed idle timer.
func (c *Connection) IdleCurrent(generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.superseded && c.generation == generation
}

// Supersede marks the record as replaced, cancels its idle timer, and closes the socket
// with code and reason. Later calls are no-ops.
func (c *Connection) Supersede(code int, reason string) error {
	c.mu.Lock()
	if c.superseded {
		c.mu.Unlock()
		return nil
	}
	c.superseded = true
	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}
	c.generation++
	c.mu.Unlock()

	return c.Close(code, reason)
}

// Superseded reports whether a newer connection replaced this one.
func (c *Connection) Superseded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.superseded
}

// Send writes v as JSON. Writes are serialised per connection.
func (c *Connection) Send(ctx context.Context, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.socket.WriteJSON(ctx, v)
}

// Ping sends a WebSocket ping.
func (c *Connection) Ping(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.socket.Ping(ctx)
}

// Close closes the socket with code and reason.
func (c *Connection) Close(code int, reason string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.socket.Close(code, reason)
}

// Open reports whether the underlying socket is still open.
func (c *Connection) Open() bool {
	return c.socket.Open()
}

// Info returns a snapshot suitable for the operator API.
func (c *Connection) Info() model.PresenceConnectionInfo {
	return model.PresenceConnectionInfo{
		ConnectionID:   c.ID,
		ApplierID:      c.ApplierID,
		ConnectedAt:    c.ConnectedAt,
		LastActivityAt: c.LastActivity(),
	}
}
