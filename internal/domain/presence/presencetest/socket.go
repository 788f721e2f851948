package presencetest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/jumpseat/jumpseat-api/internal/domain/presence"
)

// ErrSocketClosed is returned by SocketStub writes after Close.
var ErrSocketClosed = errors.New("presencetest: socket closed")

// SocketStub is a reusable in-memory presence.Socket for tests. Written values are
// stored as raw JSON so assertions see exactly what a client would receive.
type SocketStub struct {
	mu          sync.Mutex
	messages    []json.RawMessage
	pings       int
	closeCode   int
	closeReason string
	closed      bool

	// WriteErr and PingErr, when set, are returned by the corresponding call.
	WriteErr error
	PingErr  error

	notify chan struct{}
}

var _ presence.Socket = (*SocketStub)(nil)

// NewSocketStub returns an open socket.
func NewSocketStub() *SocketStub {
	return &SocketStub{notify: make(chan struct{}, 64)}
}

func (s *SocketStub) WriteJSON(_ context.Context, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSocketClosed
	}
	if s.WriteErr != nil {
		return s.WriteErr
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.messages = append(s.messages, raw)
	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

func (s *SocketStub) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSocketClosed
	}
	s.pings++
	return s.PingErr
}

func (s *SocketStub) Close(code int, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.closeCode = code
	s.closeReason = reason
	return nil
}

func (s *SocketStub) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Drop marks the socket closed without recording a close code, as when the peer vanishes.
func (s *SocketStub) Drop() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// CloseCode returns the code passed to Close, or 0.
func (s *SocketStub) CloseCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCode
}

// Pings returns the number of successful pings.
func (s *SocketStub) Pings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pings
}

// Messages returns copies of every JSON message written so far.
func (s *SocketStub) Messages() []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]json.RawMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// MessagesOfType decodes written messages whose "type" equals typ.
func (s *SocketStub) MessagesOfType(typ string) []map[string]any {
	var out []map[string]any
	for _, raw := range s.Messages() {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

// Written is signalled after every successful write.
func (s *SocketStub) Written() <-chan struct{} {
	return s.notify
}
