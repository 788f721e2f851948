package presence

import (
	"sort"
	"sync"
)

// Registry maps each applier to its canonical connection.
type Registry interface {
	// Register installs conn as canonical for conn.ApplierID and returns the
	// connection it displaced, if any.
	Register(conn *Connection) (previous *Connection)
	// Remove deletes conn only while it is still canonical and reports whether it did.
	Remove(conn *Connection) bool
	// Get returns the canonical connection for applierID.
	Get(applierID string) (*Connection, bool)
	// IsCanonical reports whether conn is the registered connection for its applier.
	IsCanonical(conn *Connection) bool
	// Snapshot returns the registered connections ordered by applier ID.
	Snapshot() []*Connection
	Len() int
}

// MemoryRegistry is an in-process Registry. It is safe for concurrent use.
type MemoryRegistry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

var _ Registry = (*MemoryRegistry)(nil)

// NewMemoryRegistry returns an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{conns: make(map[string]*Connection)}
}

func (r *MemoryRegistry) Register(conn *Connection) *Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.conns[conn.ApplierID]
	r.conns[conn.ApplierID] = conn
	if prev == conn {
		return nil
	}
	return prev
}

func (r *MemoryRegistry) Remove(conn *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.conns[conn.ApplierID]; !ok || cur != conn {
		return false
	}
	delete(r.conns, conn.ApplierID)
	return true
}

func (r *MemoryRegistry) Get(applierID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[applierID]
	return conn, ok
}

func (r *MemoryRegistry) IsCanonical(conn *Connection) bool {
	if conn == nil {
		return false
	}
	cur, ok := r.Get(conn.ApplierID)
	return ok && cur == conn
}

func (r *MemoryRegistry) Snapshot() []*Connection {
	r.mu.RLock()
	out := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ApplierID < out[j].ApplierID })
	return out
}

func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
