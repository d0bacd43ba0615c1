// Package app wires configuration, infrastructure and the prediction service
// into a runnable HTTP server.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/SumFormula-Intelligence/internal/application/sumformula"
	"github.com/turtacn/SumFormula-Intelligence/internal/config"
	redisinfra "github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/monitoring/prometheus"
	grpcserver "github.com/turtacn/SumFormula-Intelligence/internal/interfaces/grpc"
	httpserver "github.com/turtacn/SumFormula-Intelligence/internal/interfaces/http"
	"github.com/turtacn/SumFormula-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/SumFormula-Intelligence/internal/interfaces/http/middleware"
	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// App holds every long-lived component of the server process.
type App struct {
	Config  *config.Config
	Logger  logging.Logger
	Service sumformula.Service
	Server  *httpserver.Server
	GRPC    *grpcserver.Server // nil unless grpc is enabled

	collector prometheus.MetricsCollector
	redis     *redisinfra.Client
	closeOnce sync.Once
}

// NewLogger builds the process logger from the log section of cfg.
func NewLogger(cfg config.LogConfig) (logging.Logger, error) {
	return logging.NewLogger(logging.LogConfig{
		Level:       cfg.Level,
		Format:      cfg.Format,
		OutputPaths: cfg.OutputPaths,
	})
}

// New connects the optional Redis cache, registers metrics and builds the
// service and HTTP server.  A Redis connection failure is fatal only when
// the cache is enabled.
func New(cfg *config.Config, logger logging.Logger, version string) (*App, error) {
	if cfg == nil {
		return nil, errors.InvalidParam("config is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	a := &App{Config: cfg, Logger: logger}

	collector, metrics, err := newMetrics(cfg.Metrics, logger)
	if err != nil {
		return nil, err
	}
	a.collector = collector

	client, cache, err := newCache(cfg.Redis, cfg.Worker.Timeout, logger)
	if err != nil {
		return nil, err
	}
	a.redis = client

	svc, err := sumformula.NewService(cfg, cache, metrics, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Service = svc

	var rateLimit *middleware.RateLimitConfig
	if rl := cfg.Server.RateLimit; rl.Enabled {
		rateLimit = &middleware.RateLimitConfig{RequestsPerSecond: rl.RequestsPerSecond, Burst: rl.Burst}
		logger.Info("rate limiting enabled",
			logging.Float64("requests_per_second", rl.RequestsPerSecond), logging.Int("burst", rl.Burst))
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		FormulaHandler:   handlers.NewFormulaHandler(svc, logger, cfg.Server.MaxBodySize),
		HealthHandler:    handlers.NewHealthHandler(version, handlers.NewCheckFunc("prediction_cache", svc.Ready)),
		Logger:           logger,
		Metrics:          metrics,
		MetricsCollector: a.collector,
		MetricsPath:      cfg.Metrics.Path,
		RateLimit:        rateLimit,
	})
	a.Server = httpserver.NewServer(cfg.Server, router, logger)

	if cfg.GRPC.Enabled {
		gs, err := grpcserver.NewServer(cfg.GRPC, svc,
			grpcserver.WithLogger(logger),
			grpcserver.WithMetrics(metrics),
			grpcserver.WithReadinessCheck(svc.Ready, 0),
		)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.GRPC = gs
	}

	logger.Info("application initialized",
		logging.Bool("cache", cfg.Redis.Enabled),
		logging.Bool("metrics", cfg.Metrics.Enabled),
		logging.Bool("grpc", cfg.GRPC.Enabled),
		logging.Int("rules", len(cfg.Rules.Enabled)),
	)
	return a, nil
}

func newMetrics(cfg config.MetricsConfig, logger logging.Logger) (prometheus.MetricsCollector, *prometheus.FormulaMetrics, error) {
	if !cfg.Enabled {
		return nil, prometheus.NewNoopFormulaMetrics(), nil
	}
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Namespace,
		Subsystem:            cfg.Subsystem,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return collector, prometheus.NewFormulaMetrics(collector), nil
}

// newCache connects Redis when enabled.  Both results are nil otherwise.
// loadTimeout bounds a prediction shared between concurrent requests.
func newCache(cfg config.RedisConfig, loadTimeout time.Duration, logger logging.Logger) (*redisinfra.Client, sumformula.PredictionCache, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}
	client, err := redisinfra.NewClient(redisinfra.ClientConfig{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	cache := redisinfra.NewRedisCache(client, logger,
		redisinfra.WithPrefix(cfg.KeyPrefix),
		redisinfra.WithDefaultTTL(cfg.TTL),
		redisinfra.WithLoadTimeout(loadTimeout),
	)
	return client, cache, nil
}

// Run serves until ctx is cancelled or the server fails, then shuts down.
// When configPath is set, rule changes in that file are applied live.
func (a *App) Run(ctx context.Context, configPath string) error {
	if configPath != "" {
		config.Watch(configPath, func(cfg *config.Config) {
			a.Service.Reload(cfg.Rules)
		}, func(err error) {
			a.Logger.Warn("config reload rejected", logging.Err(err))
		})
	}

	errCh := make(chan error, 2)
	go func() { errCh <- a.Server.Start() }()
	if a.GRPC != nil {
		go func() { errCh <- a.GRPC.Start() }()
	}

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
		a.Logger.Info("shutdown requested")
	}

	if a.GRPC != nil {
		a.GRPC.Stop(context.Background())
	}
	if err := a.Server.Shutdown(context.Background()); err != nil && runErr == nil {
		runErr = err
	}
	a.Close()
	return runErr
}

// Close releases the Redis connection and flushes the logger.  It is safe to
// call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.redis != nil {
			if err := a.redis.Close(); err != nil {
				a.Logger.Warn("redis close failed", logging.Err(err))
			}
		}
		_ = a.Logger.Sync()
	})
}

//Personal.AI order the ending
