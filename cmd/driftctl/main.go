// Command driftctl runs the drift control plane: the Ingestion
// Gateway accepting heartbeats over HTTP, the Batch Processor draining
// them from the Heartbeat Bus, and the /health and /metrics endpoints
// operators poll.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vitaliisemenov/driftctl/internal/backoff"
	"github.com/vitaliisemenov/driftctl/internal/bus"
	"github.com/vitaliisemenov/driftctl/internal/cache"
	"github.com/vitaliisemenov/driftctl/internal/confighash"
	"github.com/vitaliisemenov/driftctl/internal/config"
	"github.com/vitaliisemenov/driftctl/internal/database/postgres"
	"github.com/vitaliisemenov/driftctl/internal/domain"
	"github.com/vitaliisemenov/driftctl/internal/health"
	"github.com/vitaliisemenov/driftctl/internal/ingestion"
	"github.com/vitaliisemenov/driftctl/internal/metrics"
	"github.com/vitaliisemenov/driftctl/internal/processing"
	"github.com/vitaliisemenov/driftctl/internal/refresh"
	"github.com/vitaliisemenov/driftctl/internal/resilience"
	storepostgres "github.com/vitaliisemenov/driftctl/internal/store/postgres"
)

const (
	serviceName    = "driftctl"
	serviceVersion = "0.1.0"
)

func main() {
	var configPath = flag.String("config", "", "Path to a YAML config file")
	var showVersion = flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", serviceName, serviceVersion)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting driftctl", "version", serviceVersion, "environment", cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pgCfg := &postgres.PostgresConfig{
		Host:              cfg.Database.Host,
		Port:              cfg.Database.Port,
		Database:          cfg.Database.Database,
		User:              cfg.Database.User,
		Password:          cfg.Database.Password,
		SSLMode:           cfg.Database.SSLMode,
		MaxConns:          cfg.Database.MaxConns,
		MinConns:          cfg.Database.MinConns,
		MaxConnLifetime:   cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:   cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
		ConnectTimeout:    cfg.Database.ConnectTimeout,
	}
	pool := postgres.NewPostgresPool(pgCfg, logger)
	if err := pool.Connect(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	metricsRegistry := metrics.DefaultRegistry()

	dbExporter := postgres.NewPrometheusExporter(pool, metricsRegistry.Database())
	dbExporter.Start(ctx, 15*time.Second)
	defer dbExporter.Stop()

	storeMetrics := storepostgres.NewStoreMetrics()
	instances := storepostgres.NewInstanceStore(pool, storeMetrics, logger)
	services := storepostgres.NewServiceRegistry(pool, storeMetrics, logger)
	driftLog := storepostgres.NewDriftLog(pool, storeMetrics, logger)

	cacheMgr, invalidationBroadcaster := buildCacheManager(cfg, metricsRegistry.Cache(), logger)
	if invalidationBroadcaster != nil {
		go func() {
			if err := invalidationBroadcaster.Listen(ctx); err != nil && ctx.Err() == nil {
				logger.Error("cache invalidation listener stopped unexpectedly", "error", err)
			}
		}()
	}
	heartbeatBus, err := buildBus(cfg, metricsRegistry.Bus(), logger)
	if err != nil {
		logger.Error("failed to initialize heartbeat bus", "error", err)
		os.Exit(1)
	}
	defer heartbeatBus.Close()

	configHashClient := buildConfigHashClient(cfg, metricsRegistry.ConfigHash(), logger)
	dispatcher := refresh.NewDispatcher(&http.Client{Timeout: cfg.ConfigSource.HTTPTimeout}, metricsRegistry.Refresh(), logger)

	processor := processing.NewProcessor(processing.Config{
		Instances:  instances,
		Services:   services,
		DriftLog:   driftLog,
		Cache:      cacheMgr,
		ConfigHash: configHashClient,
		Refresh:    dispatcher,
		Backoff:    backoff.New(),
		Metrics:    metricsRegistry.Processing(),
		Logger:     logger,
	})

	go func() {
		if err := heartbeatBus.Run(ctx, processor.HandleBatch); err != nil && ctx.Err() == nil {
			logger.Error("heartbeat bus consumer stopped unexpectedly", "error", err)
		}
	}()

	gateway := ingestion.NewGateway(ingestion.Config{
		Producer: heartbeatBus,
		Chain:    buildChain("ingestion", cfg.Resilience.Bus),
		Metrics:  metricsRegistry.Ingestion(),
		Logger:   logger,
	})

	aggregator := health.NewAggregator(health.Config{
		Checkers: []health.Checker{
			health.NewDatabaseChecker(postgres.NewHealthChecker(pool)),
			health.NewCacheChecker(cacheMgr),
			health.NewBusChecker(heartbeatBus),
			health.NewConfigHashChecker(configHashClient),
		},
		Metrics: metricsRegistry.Health(),
		Logger:  logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/heartbeats", func(w http.ResponseWriter, r *http.Request) {
		handleHeartbeat(w, r, gateway, logger)
	})
	mux.HandleFunc("/health", handleHealth(aggregator))
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("ingestion gateway listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down driftctl")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("driftctl exited")
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var output *lumberjack.Logger
	handlerOpts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	if cfg.Output == "file" && cfg.Filename != "" {
		output = &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		if cfg.Format == "text" {
			return slog.New(slog.NewTextHandler(output, handlerOpts))
		}
		return slog.New(slog.NewJSONHandler(output, handlerOpts))
	}

	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func buildChain(name string, c config.ChainConfig) *resilience.Chain {
	return resilience.NewChain(name, resilience.ChainConfig{
		Retry: &resilience.RetryPolicy{
			MaxRetries: c.MaxRetries,
			BaseDelay:  c.BaseDelay,
			MaxDelay:   c.MaxDelay,
			Multiplier: c.Multiplier,
			Jitter:     c.Jitter,
		},
		Breaker: resilience.NewCircuitBreaker(name, resilience.BreakerConfig{
			FailureThreshold: c.BreakerFailureThresh,
			SuccessThreshold: c.BreakerSuccessThresh,
			Timeout:          c.BreakerTimeout,
		}),
		Bulkhead: resilience.NewBulkhead(c.BulkheadMaxConcurrent, c.BulkheadMaxWait),
		Timeout:  c.Timeout,
	})
}

// buildCacheManager wires the configured cache backend and, for
// backends that keep a Local L1 alongside Redis, an
// InvalidationBroadcaster so a write on one process evicts the L1
// copy held by every other process sharing the same Redis. The
// returned broadcaster is nil for the "local" backend, which has no
// other process to coordinate with.
func buildCacheManager(cfg *config.Config, cacheMetrics *metrics.CacheMetrics, logger *slog.Logger) (*cache.DelegatingCacheManager, *cache.InvalidationBroadcaster) {
	local := cache.NewLocalProvider()
	for name, policy := range cfg.Cache.Named {
		local.Configure(name, cache.NamedCacheConfig{
			TTL:             policy.TTL,
			MaxSize:         policy.MaxSize,
			AllowNullValues: policy.AllowNullValues,
		})
	}

	switch cfg.Cache.Backend {
	case "local":
		return cache.NewDelegatingCacheManagerWithMetrics(local, cacheMetrics), nil
	case "distributed":
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			MaxRetries:   cfg.Redis.MaxRetries,
		})
		distributed := cache.NewDistributedProvider(client, local, cacheMetrics, logger)
		for name, policy := range cfg.Cache.Named {
			distributed.Configure(name, cache.NamedCacheConfig{TTL: policy.TTL})
		}
		broadcaster := cache.NewInvalidationBroadcaster(client, local, cacheMetrics, logger)
		return cache.NewDelegatingCacheManagerWithMetrics(distributed, cacheMetrics), broadcaster
	default: // "twolevel"
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			MaxRetries:   cfg.Redis.MaxRetries,
		})
		distributed := cache.NewDistributedProvider(client, local, cacheMetrics, logger)
		for name, policy := range cfg.Cache.Named {
			distributed.Configure(name, cache.NamedCacheConfig{TTL: policy.TTL})
		}
		broadcaster := cache.NewInvalidationBroadcaster(client, local, cacheMetrics, logger)
		twoLevel := cache.NewTwoLevelProvider(local, distributed, cfg.Cache.WriteThrough, cfg.Cache.InvalidateL1OnL2Update, broadcaster, logger)
		return cache.NewDelegatingCacheManagerWithMetrics(twoLevel, cacheMetrics), broadcaster
	}
}

// saramaOrMemoryBus satisfies both bus.Producer and bus.ConsumerGroup
// (and bus.Pinger) regardless of which backend is selected.
type saramaOrMemoryBus interface {
	bus.Producer
	bus.ConsumerGroup
	bus.Pinger
}

func buildBus(cfg *config.Config, m *metrics.BusMetrics, logger *slog.Logger) (saramaOrMemoryBus, error) {
	if cfg.Bus.Backend == "memory" {
		return bus.NewInMemoryBus(cfg.Bus.QueueSize), nil
	}
	return bus.NewSaramaBus(bus.SaramaConfig{
		Brokers:     cfg.Bus.Brokers,
		Topic:       cfg.Bus.Topic,
		GroupID:     cfg.Bus.GroupID,
		BatchSize:   cfg.Bus.BatchSize,
		BatchWindow: cfg.Bus.BatchWindow,
	}, m, logger)
}

func buildConfigHashClient(cfg *config.Config, m *metrics.ConfigHashMetrics, logger *slog.Logger) *confighash.Client {
	whitelist := make(map[string]bool, len(cfg.ConfigSource.Whitelist))
	for _, name := range cfg.ConfigSource.Whitelist {
		whitelist[name] = true
	}

	var strategy confighash.MockStrategy
	switch cfg.ConfigSource.MockMode {
	case "deterministic":
		strategy = confighash.DeterministicMockStrategy{}
	case "static":
		strategy = confighash.StaticMockStrategy{Hash_: cfg.ConfigSource.MockStaticHash}
	case "random":
		strategy = confighash.NewRandomMockStrategy(time.Now().UnixNano())
	default:
		strategy = confighash.DeterministicMockStrategy{}
	}

	var discovery confighash.ServiceDiscovery
	if cfg.ConfigSource.UseDiscovery {
		d, err := confighash.NewK8sServiceDiscovery(logger)
		if err != nil {
			logger.Warn("kubernetes service discovery unavailable, falling back to direct URLs", "error", err)
		} else {
			discovery = d
		}
	}

	return confighash.NewClient(confighash.ClientConfig{
		Whitelist:    whitelist,
		MockStrategy: strategy,
		Discovery:    discovery,
		Namespace:    cfg.ConfigSource.Namespace,
		DirectURLs:   cfg.ConfigSource.DirectURLs,
		HTTPClient:   &http.Client{Timeout: cfg.ConfigSource.HTTPTimeout},
		Chain:        buildChain("confighash", cfg.Resilience.ConfigHash),
		Metrics:      m,
	}, logger)
}

// handleHeartbeat decodes an inbound heartbeat and hands it to the
// Ingestion Gateway. The gateway itself owns validation and the
// resilience-wrapped submit to the Heartbeat Bus.
func handleHeartbeat(w http.ResponseWriter, r *http.Request, gateway *ingestion.Gateway, logger *slog.Logger) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload domain.HeartbeatPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid heartbeat payload: %v", err), http.StatusBadRequest)
		return
	}

	if err := gateway.Enqueue(r.Context(), payload); err != nil {
		logger.Error("failed to enqueue heartbeat", "error", err, "instance_id", payload.InstanceID)
		http.Error(w, "failed to accept heartbeat", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// handleHealth runs the Aggregator and reports its verdict as JSON,
// returning 503 whenever the aggregate status isn't healthy so load
// balancers and orchestrators can act on the status code alone.
func handleHealth(aggregator *health.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := aggregator.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if report.Status != health.StatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(report)
	}
}
