package presence

import "sync"

// ApplierLocks serialises status read-then-write sequences per applier, across every
// connection that applier opens. Entries are dropped once no holder or waiter remains.
type ApplierLocks struct {
	mu    sync.Mutex
	locks map[string]*applierLock
}

type applierLock struct {
	mu   sync.Mutex
	refs int
}

// NewApplierLocks returns an empty lock table.
func NewApplierLocks() *ApplierLocks {
	return &ApplierLocks{locks: make(map[string]*applierLock)}
}

// Lock blocks until the lock for applierID is held and returns its release.
func (l *ApplierLocks) Lock(applierID string) func() {
	l.mu.Lock()
	al, ok := l.locks[applierID]
	if !ok {
		al = &applierLock{}
		l.locks[applierID] = al
	}
	al.refs++
	l.mu.Unlock()

	al.mu.Lock()
	return func() {
		al.mu.Unlock()
		l.mu.Lock()
		al.refs--
		if al.refs == 0 {
			delete(l.locks, applierID)
		}
		l.mu.Unlock()
	}
}

// Len reports how many appliers currently have a holder or waiter.
func (l *ApplierLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
