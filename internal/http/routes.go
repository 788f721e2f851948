// Package httpx provides the HTTP surface of jumpseat: the applier presence WebSocket,
// the operator queue-sync API and health checks.
package httpx

import (
	"log/slog"
	"net/http"
	"time"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	QueueSync QueueSyncer     // Optional: operator queue-sync endpoints are mounted when set
	Presence  PresenceTracker // Optional: presence WebSocket and snapshot are mounted when set
	DB        Pinger          // Optional: pinged by /healthz

	AllowedOrigins []string
	// PresenceWriteTimeout bounds close frames on the presence socket.
	PresenceWriteTimeout time.Duration
	// PresenceReadTimeout drops presence sockets silent for longer than this.
	PresenceReadTimeout time.Duration

	Logger *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	health := healthHandler(services.DB, logger)
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)

	if services.Presence != nil {
		registerPresenceRoutes(mux, NewPresenceHandlers(PresenceHandlersOptions{
			Svc:            services.Presence,
			AllowedOrigins: services.AllowedOrigins,
			WriteTimeout:   services.PresenceWriteTimeout,
			ReadTimeout:    services.PresenceReadTimeout,
			Logger:         logger,
		}))
	}
	if services.QueueSync != nil {
		registerQueueSyncRoutes(mux, &QueueSyncHandlers{Svc: services.QueueSync})
	}

	return mux
}

func registerPresenceRoutes(mux *http.ServeMux, h *PresenceHandlers) {
	mux.HandleFunc("GET /ws/presence", h.Serve)
	mux.HandleFunc("GET /api/presence", h.Snapshot)
}

func registerQueueSyncRoutes(mux *http.ServeMux, h *QueueSyncHandlers) {
	mux.HandleFunc("POST /api/queue-sync", h.SyncAll)
	mux.HandleFunc("POST /api/clients/{id}/queue-sync", h.SyncClient)
	mux.HandleFunc("POST /api/clients/{id}/feed-applications", h.MarkApplied)
}
