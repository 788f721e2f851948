package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jumpseat/jumpseat-api/config"
	"github.com/jumpseat/jumpseat-api/internal/core"
	"github.com/jumpseat/jumpseat-api/internal/domain/model"
	"github.com/jumpseat/jumpseat-api/internal/domain/presence"
	"github.com/jumpseat/jumpseat-api/internal/observability/metrics"
	"github.com/jumpseat/jumpseat-api/internal/observability/statsd"
)

// ErrMissingApplierID is returned by Connect when the socket carried no applier id.
var ErrMissingApplierID = errors.New("applierId is required")

const (
	closeGoingAway    = 1001
	broadcastParallel = 16
	subscribeBackoff  = time.Second
)

// PresenceServiceOptions groups dependencies for PresenceService.
type PresenceServiceOptions struct {
	Appliers core.ApplierRepository // Required
	Registry presence.Registry      // Optional: defaults to an in-memory registry
	// Fanout distributes status changes and supersede notices between instances.
	// When nil, broadcasts go straight to local sockets.
	Fanout     core.PresenceFanout
	InstanceID string // Optional: identifies this process on the fan-out
	Config     config.PresenceConfig
	Logger     *slog.Logger     // Optional
	Metrics    statsd.Sink      // Optional
	Now        func() time.Time // Optional: clock override for tests
}

// PresenceService tracks applier presence over WebSocket connections. Persistence and
// socket failures are logged and swallowed; none of its callbacks return them.
type PresenceService struct {
	appliers   core.ApplierRepository
	registry   presence.Registry
	locks      *presence.ApplierLocks
	fanout     core.PresenceFanout
	instanceID string
	cfg        config.PresenceConfig
	logger     *slog.Logger
	metrics    statsd.Sink
	now        func() time.Time
}

// NewPresenceService constructs a PresenceService.
func NewPresenceService(opts PresenceServiceOptions) (*PresenceService, error) {
	if opts.Appliers == nil {
		return nil, errors.New("ApplierRepository is required")
	}

	cfg := opts.Config
	cfg.Sanitize()

	registry := opts.Registry
	if registry == nil {
		registry = presence.NewMemoryRegistry()
	}
	instanceID := opts.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "presence_service", "instance_id", instanceID)

	return &PresenceService{
		appliers:   opts.Appliers,
		registry:   registry,
		locks:      presence.NewApplierLocks(),
		fanout:     opts.Fanout,
		instanceID: instanceID,
		cfg:        cfg,
		logger:     logger,
		metrics:    opts.Metrics,
		now:        now,
	}, nil
}

// Connect registers socket as the canonical connection for applierID. A missing id
// closes the socket with 4001 and changes no state. Any previous connection for the
// applier is closed with 4002 before the new one is registered.
func (s *PresenceService) Connect(ctx context.Context, applierID string, socket presence.Socket) (*presence.Connection, error) {
	if applierID == "" {
		if err := socket.Close(model.CloseMissingApplierID, ErrMissingApplierID.Error()); err != nil {
			s.logger.DebugContext(ctx, "close rejected socket", "error", err)
		}
		metrics.EmitPresenceClose(s.metrics, model.CloseMissingApplierID)
		return nil, ErrMissingApplierID
	}

	conn := presence.NewConnection(uuid.NewString(), applierID, socket, s.now())
	if prev := s.registry.Register(conn); prev != nil {
		s.supersede(ctx, prev)
	}
	s.armIdle(conn)
	metrics.EmitPresenceConnections(s.metrics, s.registry.Len())

	s.publish(ctx, model.PresenceEvent{
		Kind:         model.PresenceEventSupersede,
		InstanceID:   s.instanceID,
		ApplierID:    applierID,
		ConnectionID: conn.ID,
	})

	release := s.locks.Lock(applierID)
	s.transition(ctx, applierID, model.ApplierStatusActive)
	release()

	s.logger.InfoContext(ctx, "applier connected", "applier_id", applierID, "connection_id", conn.ID)
	return conn, nil
}

// HandleMessage processes one inbound frame. Only activity and heartbeat messages have
// effects; malformed frames are logged and the socket stays open.
func (s *PresenceService) HandleMessage(ctx context.Context, conn *presence.Connection, raw []byte) {
	var msg model.PresenceInbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.logger.WarnContext(ctx, "malformed presence message",
			"applier_id", conn.ApplierID, "error", err)
		return
	}
	if msg.Type != model.PresenceMessageActivity && msg.Type != model.PresenceMessageHeartbeat {
		s.logger.DebugContext(ctx, "ignoring presence message", "applier_id", conn.ApplierID, "type", msg.Type)
		return
	}

	now := s.now()
	conn.Touch(now)
	// Reset before any persistence so a close racing the write cancels the right timer.
	s.armIdle(conn)

	if s.registry.IsCanonical(conn) {
		release := s.locks.Lock(conn.ApplierID)
		if s.registry.IsCanonical(conn) {
			if status, ok := s.persistedStatus(ctx, conn.ApplierID); ok && status == model.ApplierStatusIdle {
				s.transition(ctx, conn.ApplierID, model.ApplierStatusActive)
			}
		}
		release()
	}

	s.send(ctx, conn, model.PresenceAck{Type: model.PresenceMessageAck, Timestamp: now})
}

// Disconnect handles a closed socket. Only the canonical connection for an applier
// causes an offline transition, and never over an admin-set inactive status or a
// newer connection registered while the close was in flight.
func (s *PresenceService) Disconnect(ctx context.Context, conn *presence.Connection) {
	conn.StopIdle()
	if !s.registry.Remove(conn) {
		return
	}
	metrics.EmitPresenceConnections(s.metrics, s.registry.Len())

	release := s.locks.Lock(conn.ApplierID)
	defer release()

	if _, reconnected := s.registry.Get(conn.ApplierID); reconnected {
		s.logger.DebugContext(ctx, "applier reconnected, keeping status on disconnect",
			"applier_id", conn.ApplierID, "connection_id", conn.ID)
		return
	}
	status, ok := s.persistedStatus(ctx, conn.ApplierID)
	if ok && status == model.ApplierStatusInactive {
		s.logger.DebugContext(ctx, "applier inactive, keeping status on disconnect", "applier_id", conn.ApplierID)
	} else {
		s.transition(ctx, conn.ApplierID, model.ApplierStatusOffline)
	}
	s.logger.InfoContext(ctx, "applier disconnected", "applier_id", conn.ApplierID, "connection_id", conn.ID)
}

// Sweep pings every registered socket and prunes connections that are no longer open
// or fail the ping. Pruned connections go through Disconnect.
func (s *PresenceService) Sweep(ctx context.Context) {
	conns := s.registry.Snapshot()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(broadcastParallel)
	for _, conn := range conns {
		g.Go(func() error {
			if conn.Open() {
				pctx, cancel := context.WithTimeout(gctx, s.cfg.WriteTimeout)
				err := conn.Ping(pctx)
				cancel()
				if err == nil {
					return nil
				}
				s.logger.DebugContext(ctx, "presence ping failed", "applier_id", conn.ApplierID, "error", err)
				_ = conn.Close(closeGoingAway, "ping failed")
			}
			s.Disconnect(ctx, conn)
			return nil
		})
	}
	_ = g.Wait()
}

// Connections returns a snapshot of the locally registered connections.
func (s *PresenceService) Connections() []model.PresenceConnectionInfo {
	conns := s.registry.Snapshot()
	out := make([]model.PresenceConnectionInfo, 0, len(conns))
	for _, c := range conns {
		out = append(out, c.Info())
	}
	return out
}

// Run drives the periodic sweep and, when a fan-out is configured, the event
// subscription. It blocks until ctx is cancelled, then closes every local socket.
func (s *PresenceService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting presence service",
		"idle_timeout", s.cfg.IdleTimeout,
		"sweep_interval", s.cfg.SweepInterval,
		"fanout", s.fanout != nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.sweepLoop(gctx)
		return nil
	})
	if s.fanout != nil {
		g.Go(func() error {
			s.subscribeLoop(gctx)
			return nil
		})
	}
	err := g.Wait()

	s.closeAll()
	s.logger.InfoContext(ctx, "presence service stopped", "reason", ctx.Err())
	return err
}

func (s *PresenceService) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// subscribeLoop keeps a fan-out subscription alive, backing off between failures.
func (s *PresenceService) subscribeLoop(ctx context.Context) {
	for ctx.Err() == nil {
		err := s.fanout.Subscribe(ctx, func(evt model.PresenceEvent) { s.HandleEvent(ctx, evt) })
		if ctx.Err() != nil {
			return
		}
		s.logger.WarnContext(ctx, "presence subscription ended, resubscribing", "error", err)

		timer := time.NewTimer(subscribeBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// HandleEvent applies a fan-out event to the local registry and sockets.
func (s *PresenceService) HandleEvent(ctx context.Context, evt model.PresenceEvent) {
	switch evt.Kind {
	case model.PresenceEventStatusChange:
		if evt.Change != nil {
			s.deliver(ctx, *evt.Change)
		}
	case model.PresenceEventSupersede:
		if evt.InstanceID == s.instanceID {
			return
		}
		conn, ok := s.registry.Get(evt.ApplierID)
		if !ok || conn.ID == evt.ConnectionID {
			return
		}
		if s.registry.Remove(conn) {
			s.supersede(ctx, conn)
			metrics.EmitPresenceConnections(s.metrics, s.registry.Len())
		}
	default:
		s.logger.DebugContext(ctx, "ignoring presence event", "kind", string(evt.Kind))
	}
}

func (s *PresenceService) closeAll() {
	for _, conn := range s.registry.Snapshot() {
		conn.StopIdle()
		if err := conn.Close(closeGoingAway, "server shutting down"); err != nil {
			s.logger.Debug("close presence socket on shutdown", "applier_id", conn.ApplierID, "error", err)
		}
	}
}

func (s *PresenceService) supersede(ctx context.Context, prev *presence.Connection) {
	if err := prev.Supersede(model.CloseSuperseded, "superseded by a newer connection"); err != nil {
		s.logger.DebugContext(ctx, "close superseded socket", "applier_id", prev.ApplierID, "error", err)
	}
	metrics.EmitPresenceClose(s.metrics, model.CloseSuperseded)
	s.logger.InfoContext(ctx, "presence connection superseded",
		"applier_id", prev.ApplierID, "connection_id", prev.ID)
}

func (s *PresenceService) armIdle(conn *presence.Connection) {
	conn.ArmIdle(s.cfg.IdleTimeout, func(gen uint64) { s.onIdle(conn, gen) })
}

// onIdle runs on the timer goroutine once the idle window elapses without activity.
func (s *PresenceService) onIdle(conn *presence.Connection, gen uint64) {
	release := s.locks.Lock(conn.ApplierID)
	defer release()

	if !conn.IdleCurrent(gen) || !s.registry.IsCanonical(conn) {
		return
	}

	ctx := context.Background()
	status, ok := s.persistedStatus(ctx, conn.ApplierID)
	if ok && (status == model.ApplierStatusIdle || status == model.ApplierStatusInactive) {
		return
	}
	s.transition(ctx, conn.ApplierID, model.ApplierStatusIdle)
}

func (s *PresenceService) persistedStatus(ctx context.Context, applierID string) (model.ApplierStatus, bool) {
	pctx, cancel := context.WithTimeout(ctx, s.cfg.PersistTimeout)
	defer cancel()

	a, err := s.appliers.GetByID(pctx, applierID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to read applier status", "applier_id", applierID, "error", err)
		return "", false
	}
	return a.Status, true
}

// transition persists status with a fresh last_activity_at, then broadcasts it.
func (s *PresenceService) transition(ctx context.Context, applierID string, status model.ApplierStatus) {
	at := s.now()

	pctx, cancel := context.WithTimeout(ctx, s.cfg.PersistTimeout)
	err := s.appliers.UpdateStatus(pctx, applierID, status, at)
	cancel()
	metrics.EmitPresenceTransition(s.metrics, status, err)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to persist applier status",
			"applier_id", applierID, "status", string(status), "error", err)
	} else {
		s.logger.DebugContext(ctx, "applier status changed", "applier_id", applierID, "status", string(status))
	}

	s.broadcast(ctx, model.StatusChange{
		Type:      model.PresenceMessageStatusChange,
		ApplierID: applierID,
		Status:    status,
		Timestamp: at,
	})
}

// broadcast publishes change on the fan-out, or delivers it locally without one.
func (s *PresenceService) broadcast(ctx context.Context, change model.StatusChange) {
	if s.fanout == nil {
		s.deliver(ctx, change)
		return
	}
	if !s.publish(ctx, model.PresenceEvent{
		Kind:       model.PresenceEventStatusChange,
		InstanceID: s.instanceID,
		ApplierID:  change.ApplierID,
		Change:     &change,
	}) {
		// Local sockets still hear about it when the bus is down.
		s.deliver(ctx, change)
	}
}

func (s *PresenceService) publish(ctx context.Context, evt model.PresenceEvent) bool {
	if s.fanout == nil {
		return true
	}
	pctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()
	if err := s.fanout.Publish(pctx, evt); err != nil {
		s.logger.WarnContext(ctx, "failed to publish presence event",
			"kind", string(evt.Kind), "applier_id", evt.ApplierID, "error", err)
		return false
	}
	return true
}

// deliver writes change to every open local socket.
func (s *PresenceService) deliver(ctx context.Context, change model.StatusChange) {
	var g errgroup.Group
	g.SetLimit(broadcastParallel)
	for _, conn := range s.registry.Snapshot() {
		if !conn.Open() {
			continue
		}
		g.Go(func() error {
			s.send(ctx, conn, change)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *PresenceService) send(ctx context.Context, conn *presence.Connection, v any) {
	wctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()
	if err := conn.Send(wctx, v); err != nil {
		s.logger.DebugContext(ctx, "presence send failed",
			"applier_id", conn.ApplierID, "error", fmt.Errorf("send %T: %w", v, err))
	}
}
