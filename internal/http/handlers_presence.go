package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jumpseat/jumpseat-api/internal/domain/model"
	"github.com/jumpseat/jumpseat-api/internal/domain/presence"
)

const (
	presenceReadLimit      = 4 << 10
	defaultPresenceTimeout = 10 * time.Second
	defaultPresenceReadTTL = 90 * time.Second
)

// PresenceTracker is the presence surface the WebSocket endpoint drives.
type PresenceTracker interface {
	Connect(ctx context.Context, applierID string, socket presence.Socket) (*presence.Connection, error)
	HandleMessage(ctx context.Context, conn *presence.Connection, raw []byte)
	Disconnect(ctx context.Context, conn *presence.Connection)
	Connections() []model.PresenceConnectionInfo
}

// PresenceHandlersOptions configures PresenceHandlers.
type PresenceHandlersOptions struct {
	Svc PresenceTracker
	// AllowedOrigins lists accepted Origin values. Empty means same-origin only; "*" accepts any.
	AllowedOrigins []string
	// WriteTimeout bounds close frames written outside a caller deadline.
	WriteTimeout time.Duration
	// ReadTimeout is how long a socket may stay silent (no frame, no pong) before it is dropped.
	ReadTimeout time.Duration
	Logger      *slog.Logger
}

// PresenceHandlers serves the applier presence WebSocket.
type PresenceHandlers struct {
	svc          PresenceTracker
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	readTimeout  time.Duration
	logger       *slog.Logger
}

// NewPresenceHandlers builds the presence endpoint handlers.
func NewPresenceHandlers(opts PresenceHandlersOptions) *PresenceHandlers {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &PresenceHandlers{
		svc:          opts.Svc,
		writeTimeout: opts.WriteTimeout,
		readTimeout:  opts.ReadTimeout,
		logger:       logger.With("component", "presence_ws"),
	}
	if h.writeTimeout <= 0 {
		h.writeTimeout = defaultPresenceTimeout
	}
	if h.readTimeout <= 0 {
		h.readTimeout = defaultPresenceReadTTL
	}
	h.upgrader = websocket.Upgrader{
		HandshakeTimeout: h.writeTimeout,
		CheckOrigin:      originChecker(opts.AllowedOrigins),
	}
	return h
}

// originChecker returns nil for an empty list so the upgrader applies its same-origin check.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[o] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}

// Serve handles GET /ws/presence?applierId=<id>. The request blocks for the life of the
// socket: frames go to HandleMessage and the close goes to Disconnect.
func (h *PresenceHandlers) Serve(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.DebugContext(r.Context(), "presence upgrade failed", "error", err)
		return
	}

	// Persistence from the read loop must outlive server shutdown of the request.
	ctx := context.WithoutCancel(r.Context())
	sock := newWSSocket(ws, h.writeTimeout)
	defer sock.release()

	conn, err := h.svc.Connect(ctx, strings.TrimSpace(r.URL.Query().Get("applierId")), sock)
	if err != nil {
		return
	}
	defer h.svc.Disconnect(ctx, conn)

	ws.SetReadLimit(presenceReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(h.readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) && !sock.closedLocally() {
				h.logger.DebugContext(ctx, "presence read ended", "applier_id", conn.ApplierID, "error", err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(h.readTimeout))
		if msgType != websocket.TextMessage {
			continue
		}
		h.svc.HandleMessage(ctx, conn, data)
	}
}

// Snapshot handles GET /api/presence.
func (h *PresenceHandlers) Snapshot(w http.ResponseWriter, _ *http.Request) {
	conns := h.svc.Connections()
	if conns == nil {
		conns = []model.PresenceConnectionInfo{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"connections": conns})
}

// wsSocket adapts a gorilla connection to presence.Socket. presence.Connection
// serialises data writes; control frames are safe alongside them.
type wsSocket struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	closed       atomic.Bool
	local        atomic.Bool
}

func newWSSocket(conn *websocket.Conn, writeTimeout time.Duration) *wsSocket {
	return &wsSocket{conn: conn, writeTimeout: writeTimeout}
}

func (s *wsSocket) deadline(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(s.writeTimeout)
}

func (s *wsSocket) WriteJSON(ctx context.Context, v any) error {
	if s.closed.Load() {
		return websocket.ErrCloseSent
	}
	if err := s.conn.SetWriteDeadline(s.deadline(ctx)); err != nil {
		return err
	}
	return s.conn.WriteJSON(v)
}

func (s *wsSocket) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return websocket.ErrCloseSent
	}
	return s.conn.WriteControl(websocket.PingMessage, nil, s.deadline(ctx))
}

// Close sends a close frame with code and reason, then closes the connection. Only
// the first call has an effect.
func (s *wsSocket) Close(code int, reason string) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.local.Store(true)
	msg := websocket.FormatCloseMessage(code, reason)
	werr := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.writeTimeout))
	if errors.Is(werr, websocket.ErrCloseSent) {
		werr = nil
	}
	return errors.Join(werr, s.conn.Close())
}

func (s *wsSocket) Open() bool {
	return !s.closed.Load()
}

func (s *wsSocket) closedLocally() bool {
	return s.local.Load()
}

// release drops the connection once the read loop is done with it.
func (s *wsSocket) release() {
	if s.closed.CompareAndSwap(false, true) {
		_ = s.conn.Close()
	}
}
