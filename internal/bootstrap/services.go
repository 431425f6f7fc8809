package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/sescincjoi/central-sci/config"
	redisadapter "github.com/sescincjoi/central-sci/internal/adapters/redis"
	"github.com/sescincjoi/central-sci/internal/gate"
	"github.com/sescincjoi/central-sci/internal/observability/statsd"
	"github.com/sescincjoi/central-sci/internal/offline"
	"github.com/sescincjoi/central-sci/internal/service"
	"github.com/sescincjoi/central-sci/internal/session"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Auth          *service.AuthService
	Offline       *offline.CacheService
	States        *session.StateStore
	Gate          *gate.AccessGate
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// buildObservability configures the metrics sink.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "centralsci",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:   metricsSink,
		MetricsConfig: cfg.Metrics,
	}
}

// BuildOfflineService wires the offline asset cache against Redis and the
// upstream static origin. Returns nil when Redis is unavailable; the router
// then serves without offline support.
func BuildOfflineService(cfg config.OfflineConfig, redisClient redis.UniversalClient, sink *statsd.Client, logger *slog.Logger) *offline.CacheService {
	if logger == nil {
		logger = slog.Default()
	}
	if redisClient == nil {
		logger.Warn("offline cache disabled: redis client not configured")
		return nil
	}

	origin, err := offline.NewHTTPOrigin(offline.HTTPOriginConfig{
		BaseURL: cfg.UpstreamURL,
	})
	if err != nil {
		logger.Warn("offline cache disabled: invalid origin config", "error", err)
		return nil
	}

	manifest := offline.DefaultManifest()
	manifest.Version = cfg.Version

	svc, err := offline.NewCacheService(offline.CacheServiceOptions{
		Cache:    redisadapter.NewCacheRepo(redisClient),
		Origin:   origin,
		Manifest: manifest,
		Logger:   logger,
		Metrics:  sink,
	})
	if err != nil {
		logger.Warn("offline cache disabled", "error", err)
		return nil
	}
	return svc
}

// NewServices wires the full service container from shared infrastructure.
func NewServices(ctx context.Context, deps *ServiceDeps) ServiceContainer {
	if deps == nil {
		return ServiceContainer{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := deps.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	observability := buildObservability(logger, appCfg.Observability)

	states := session.NewStateStore(session.StateStoreOptions{
		Logger:  logger,
		Metrics: observability.MetricsSink,
	})

	authService := BuildAuthService(ctx, AuthDeps{
		Auth:        appCfg.Auth,
		DB:          deps.DB,
		RedisClient: deps.RedisClient,
		States:      states,
		Logger:      logger,
	})

	offlineService := BuildOfflineService(appCfg.Offline, deps.RedisClient, observability.MetricsSink, logger)

	accessGate, err := gate.NewAccessGate(gate.AccessGateOptions{
		Sessions:       states,
		Logger:         logger,
		Metrics:        observability.MetricsSink,
		ReadyTimeout:   appCfg.Gate.ReadyTimeout,
		PromptDebounce: appCfg.Gate.PromptDebounce,
	})
	if err != nil {
		logger.Warn("access gate disabled", "error", err)
	}

	return ServiceContainer{
		Auth:          authService,
		Offline:       offlineService,
		States:        states,
		Gate:          accessGate,
		Observability: observability,
	}
}

// RunConfig contains dependencies for running the application.
type RunConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunWithShutdown starts the HTTP server and blocks until a shutdown signal
// arrives or ctx is cancelled, then stops the server gracefully.
func RunWithShutdown(ctx context.Context, cfg *RunConfig) error {
	if cfg == nil {
		return errors.New("run config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := StartHTTPServer(&HTTPServerConfig{
		Config:   cfg.Config,
		Services: cfg.Services,
		Logger:   logger,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}

	if sink := cfg.Services.Observability.MetricsSink; sink != nil {
		if err := sink.Close(); err != nil {
			logger.Warn("close metrics sink failed", "error", err)
		}
	}

	return ShutdownHTTPServer(ShutdownConfig{
		Context: context.Background(),
		Server:  server,
		Logger:  logger,
	})
}
