package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jumpseat/jumpseat-api/config"
	"github.com/jumpseat/jumpseat-api/internal/adapters/feed"
	redisadapter "github.com/jumpseat/jumpseat-api/internal/adapters/redis"
	"github.com/jumpseat/jumpseat-api/internal/core"
	"github.com/jumpseat/jumpseat-api/internal/data"
	"github.com/jumpseat/jumpseat-api/internal/observability/statsd"
	"github.com/jumpseat/jumpseat-api/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	// QueueSync is nil when no feed is configured.
	QueueSync *service.QueueSyncService
	// Presence is nil unless the HTTP service is enabled.
	Presence *service.PresenceService
	// Lease guards periodic sweeps across instances; nil when the lock is disabled.
	Lease         core.CacheRepository
	InstanceID    string
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   statsd.Sink
	MetricsConfig config.ObservabilityMetricsConfig
	closer        func() error
}

// Close releases the metrics transport, if any.
func (o ObservabilityContainer) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Jobs         *data.JobRepo
	Applications *data.ApplicationRepo
	Sessions     *data.SessionRepo
	Clients      *data.ClientRepo
	Appliers     *data.ApplierRepo
}

// buildObservability configures the metrics sink.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	out := ObservabilityContainer{MetricsConfig: cfg.Metrics}
	if !cfg.Metrics.IsEnabled() {
		return out
	}

	client, err := statsd.NewClient(statsd.Config{
		Address: cfg.Metrics.StatsdAddress,
		Prefix:  cfg.Metrics.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return out
	}
	out.MetricsSink = client
	out.closer = client.Close
	return out
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB) *serviceRepositories {
	return &serviceRepositories{
		Jobs:         data.NewJobRepo(db),
		Applications: data.NewApplicationRepo(db),
		Sessions:     data.NewSessionRepo(db),
		Clients:      data.NewClientRepo(db),
		Appliers:     data.NewApplierRepo(db),
	}
}

// NewFeedClient builds the job feed client from configuration.
func NewFeedClient(cfg config.FeedConfig, logger *slog.Logger) (*feed.Client, error) {
	if !cfg.IsConfigured() {
		return nil, errors.New("feed API URL is not configured")
	}
	return feed.NewClient(feed.ClientOptions{
		BaseURL:       cfg.APIURL,
		Token:         cfg.APIToken,
		Timeout:       cfg.Timeout,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay,
		ItemsPath:     cfg.ItemsPath,
		Logger:        logger,
	})
}

func newQueueSyncService(
	repos *serviceRepositories,
	cfg *config.AppConfig,
	obs ObservabilityContainer,
	logger *slog.Logger,
) (*service.QueueSyncService, error) {
	feedClient, err := NewFeedClient(cfg.Feed, logger)
	if err != nil {
		return nil, fmt.Errorf("create feed client: %w", err)
	}
	return service.NewQueueSyncService(service.QueueSyncServiceOptions{
		Repos: service.QueueSyncRepositories{
			Jobs:         repos.Jobs,
			Applications: repos.Applications,
			Sessions:     repos.Sessions,
			Clients:      repos.Clients,
		},
		Feed:                feedClient,
		Config:              cfg.QueueSync,
		ExcludeApplyDomains: cfg.Feed.ExcludeApplyDomains,
		Logger:              logger,
		Metrics:             obs.MetricsSink,
	})
}

func newPresenceService(
	repos *serviceRepositories,
	deps *ServiceDeps,
	instanceID string,
	obs ObservabilityContainer,
) (*service.PresenceService, error) {
	opts := service.PresenceServiceOptions{
		Appliers:   repos.Appliers,
		InstanceID: instanceID,
		Config:     deps.Config.Presence,
		Logger:     deps.Logger,
		Metrics:    obs.MetricsSink,
	}
	if deps.Config.Presence.Backend == config.PresenceBackendRedis {
		if deps.RedisClient == nil {
			return nil, errors.New("presence redis backend requires a redis connection")
		}
		opts.Fanout = redisadapter.NewPresenceBus(deps.RedisClient, deps.Config.Presence.RedisChannel, deps.Logger)
	}
	return service.NewPresenceService(opts)
}

// NewServices wires every service the enabled modes need.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	if deps.DB == nil {
		return ServiceContainer{}, errors.New("database connection is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	cfg := deps.Config
	obs := buildObservability(deps.Logger, cfg.Observability)
	repos := buildRepositories(deps.DB)
	container := ServiceContainer{
		InstanceID:    uuid.NewString(),
		Observability: obs,
	}

	if cfg.Feed.IsConfigured() {
		svc, err := newQueueSyncService(repos, cfg, obs, deps.Logger)
		if err != nil {
			return ServiceContainer{}, err
		}
		container.QueueSync = svc
	} else {
		deps.Logger.Warn("feed API URL not set; queue sync endpoints disabled")
	}

	if cfg.IsHTTPServerEnabled() {
		svc, err := newPresenceService(repos, deps, container.InstanceID, obs)
		if err != nil {
			return ServiceContainer{}, fmt.Errorf("create presence service: %w", err)
		}
		container.Presence = svc
	}

	if cfg.QueueSync.DistributedLock && deps.RedisClient != nil {
		container.Lease = data.NewRedisCacheRepo(deps.RedisClient)
	}

	return container, nil
}

// ServiceOrchestrationConfig contains dependencies for running all services.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	DB       *sql.DB
	Logger   *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

// startHTTPServerIfEnabled starts the HTTP server if enabled.
func startHTTPServerIfEnabled(deps *serviceStartupDeps) *http.Server {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:   deps.cfg.Config,
		Services: deps.cfg.Services,
		DB:       deps.cfg.DB,
		Logger:   deps.logger,
	})
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error",
					"service", descriptor.name, "error", errMsg)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}

		handles = append(handles, backgroundServiceHandle{
			mode: svc.mode,
			name: svc.name,
			done: done,
		})
	}

	return handles
}

// newPresenceBackgroundService runs the presence sweep and fan-out subscription
// alongside the HTTP server that accepts the sockets.
func newPresenceBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeHTTP,
		name: "presence tracker",
		start: func(ctx context.Context) error {
			if deps.cfg.Services.Presence == nil {
				return nil
			}
			return deps.cfg.Services.Presence.Run(ctx)
		},
	}
}

func newQueueSyncBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeQueueSync,
		name: "queue sync runner",
		start: func(ctx context.Context) error {
			svcs := deps.cfg.Services
			if svcs.QueueSync == nil {
				return errors.New("queue sync service is not configured")
			}
			return RunQueueSync(ctx, QueueSyncRunnerConfig{
				Syncer:     svcs.QueueSync,
				Config:     deps.cfg.Config.QueueSync,
				Lease:      svcs.Lease,
				InstanceID: svcs.InstanceID,
				Logger:     deps.logger,
				Metrics:    svcs.Observability.MetricsSink,
			})
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		newPresenceBackgroundService(deps),
		newQueueSyncBackgroundService(deps),
	}
}

// ServiceStartupResult holds the results of starting all services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// startServices starts all enabled services and returns their completion channels.
func startServices(deps *serviceStartupDeps) ServiceStartupResult {
	return ServiceStartupResult{
		HTTPServer: startHTTPServerIfEnabled(deps),
		Background: startBackgroundServices(deps, buildBackgroundServices(deps)),
	}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	result := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	return waitForShutdown(shutdownConfig{
		quit:        quit,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  result.HTTPServer,
		logger:      logger,
		backgrounds: result.Background,
	})
}

// errorChannelCapacity counts the background goroutines that may report a failure.
// The HTTP listener logs its own errors.
func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	count := 0
	if enabled[config.ServiceModeHTTP] {
		count++
	}
	if enabled[config.ServiceModeQueueSync] {
		count++
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	return errorChannelCapacity(enabled) + 1
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	quit        <-chan os.Signal
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
	waitTimeout time.Duration
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	select {
	case <-cfg.quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel() // Background services close presence sockets on cancel.
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(cfg shutdownConfig) error {
	timeout := cfg.waitTimeout
	if timeout <= 0 {
		timeout = shutdownWaitTimeout
	}

	var httpErr error
	if cfg.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		httpErr = ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Logger:  cfg.logger,
		})
		cancel()
	}

	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, timeout, cfg.logger)
	}

	return httpErr
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, timeout time.Duration, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(timeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}

// NewQueueSyncService builds a standalone queue sync service for one-off commands.
func NewQueueSyncService(db *sql.DB, cfg *config.AppConfig, logger *slog.Logger) (*service.QueueSyncService, error) {
	if db == nil || cfg == nil {
		return nil, errors.New("database and config are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return newQueueSyncService(buildRepositories(db), cfg, ObservabilityContainer{}, logger)
}
