package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents driftctl's application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Bus          BusConfig          `mapstructure:"bus"`
	Cache        CacheConfig        `mapstructure:"cache"`
	ConfigSource ConfigSourceConfig `mapstructure:"config_source"`
	Resilience   ResilienceConfig   `mapstructure:"resilience"`
	Log          LogConfig          `mapstructure:"log"`
	App          AppConfig          `mapstructure:"app"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

// ServerConfig holds the Ingestion Gateway's HTTP listener settings.
type ServerConfig struct {
	Port                    int           `mapstructure:"port"`
	Host                    string        `mapstructure:"host"`
	ReadTimeout             time.Duration `mapstructure:"read_timeout"`
	WriteTimeout            time.Duration `mapstructure:"write_timeout"`
	IdleTimeout             time.Duration `mapstructure:"idle_timeout"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
}

// DatabaseConfig holds the Service Registry / Drift Log's Postgres
// connection settings. Field names mirror
// internal/database/postgres.PostgresConfig, which cmd/driftctl fills
// from them field for field.
type DatabaseConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	Database          string        `mapstructure:"database"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
}

// RedisConfig holds the Cache Tier's distributed (L2) backend settings.
type RedisConfig struct {
	Addr            string        `mapstructure:"addr"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
}

// BusConfig holds the Heartbeat Bus's settings. Backend selects
// between the Kafka-backed SaramaBus ("sarama") and the in-process
// InMemoryBus ("memory", for single-node and test deployments).
type BusConfig struct {
	Backend     string        `mapstructure:"backend"`
	Brokers     []string      `mapstructure:"brokers"`
	Topic       string        `mapstructure:"topic"`
	GroupID     string        `mapstructure:"group_id"`
	BatchSize   int           `mapstructure:"batch_size"`
	BatchWindow time.Duration `mapstructure:"batch_window"`
	QueueSize   int           `mapstructure:"queue_size"` // InMemoryBus only
}

// NamedCachePolicy mirrors internal/cache.NamedCacheConfig.
type NamedCachePolicy struct {
	TTL             time.Duration `mapstructure:"ttl"`
	MaxSize         int           `mapstructure:"max_size"`
	AllowNullValues bool          `mapstructure:"allow_null_values"`
}

// CacheConfig holds the Cache Tier's provider topology and per-named-
// cache policies.
type CacheConfig struct {
	// Backend selects "local" (L1 only), "distributed" (L2 only,
	// Redis), or "twolevel" (L1 in front of L2, the production default).
	Backend                string                      `mapstructure:"backend"`
	WriteThrough           bool                        `mapstructure:"write_through"`
	InvalidateL1OnL2Update bool                        `mapstructure:"invalidate_l1_on_l2_update"`
	Named                  map[string]NamedCachePolicy `mapstructure:"named"`
}

// ConfigSourceConfig holds the Config Hash Client's settings: which
// services are checked against a live config source (Whitelist) vs.
// served from a mock strategy, how the source is discovered, and the
// fallback direct URLs used when discovery is disabled.
type ConfigSourceConfig struct {
	Namespace      string            `mapstructure:"namespace"`
	Whitelist      []string          `mapstructure:"whitelist"`
	DirectURLs     map[string]string `mapstructure:"direct_urls"`
	UseDiscovery   bool              `mapstructure:"use_discovery"`
	MockMode       string            `mapstructure:"mock_mode"` // "deterministic", "static" or "random"; any other value, "" included, selects deterministic, so non-whitelisted services always get a mock hash
	MockStaticHash string            `mapstructure:"mock_static_hash"`
	HTTPTimeout    time.Duration     `mapstructure:"http_timeout"`
}

// ChainConfig holds the retry/breaker/bulkhead/timeout knobs for one
// resilience-wrapped dependency; the mapstructure-tagged counterpart
// of internal/resilience.ChainConfig.
type ChainConfig struct {
	MaxRetries            int           `mapstructure:"max_retries"`
	BaseDelay             time.Duration `mapstructure:"base_delay"`
	MaxDelay              time.Duration `mapstructure:"max_delay"`
	Multiplier            float64       `mapstructure:"multiplier"`
	Jitter                bool          `mapstructure:"jitter"`
	BreakerFailureThresh  int           `mapstructure:"breaker_failure_threshold"`
	BreakerSuccessThresh  int           `mapstructure:"breaker_success_threshold"`
	BreakerTimeout        time.Duration `mapstructure:"breaker_timeout"`
	BulkheadMaxConcurrent int           `mapstructure:"bulkhead_max_concurrent"`
	BulkheadMaxWait       time.Duration `mapstructure:"bulkhead_max_wait"`
	Timeout               time.Duration `mapstructure:"timeout"`
}

// ResilienceConfig holds one ChainConfig per dependent service routed
// through internal/resilience.Chain: the Heartbeat Bus producer and the
// Config Hash Client's HTTP fetch. Refresh is read from configuration,
// but the Refresh Dispatcher is not wrapped in a Chain.
type ResilienceConfig struct {
	Bus        ChainConfig `mapstructure:"bus"`
	ConfigHash ChainConfig `mapstructure:"config_hash"`
	Refresh    ChainConfig `mapstructure:"refresh"`
}

// LogConfig holds structured-logging settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// AppConfig holds process-identity settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// MetricsConfig holds the Prometheus exposition endpoint's settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Port    int    `mapstructure:"port"`
}

// LoadConfig loads configuration from configPath (if non-empty) and
// environment variables, applying defaults first.
func LoadConfig(configPath string) (*Config, error) {
	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		viper.SetConfigFile(configPath)
		viper.SetConfigType("yaml")

		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// Config file not found, continue with defaults and env vars.
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigFromEnv loads configuration from environment variables only.
func LoadConfigFromEnv() (*Config, error) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.graceful_shutdown_timeout", "30s")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "driftctl")
	viper.SetDefault("database.user", "driftctl")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_conns", 25)
	viper.SetDefault("database.min_conns", 5)
	viper.SetDefault("database.max_conn_lifetime", "1h")
	viper.SetDefault("database.max_conn_idle_time", "30m")
	viper.SetDefault("database.health_check_period", "30s")
	viper.SetDefault("database.connect_timeout", "10s")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 5)
	viper.SetDefault("redis.dial_timeout", "5s")
	viper.SetDefault("redis.read_timeout", "3s")
	viper.SetDefault("redis.write_timeout", "3s")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.min_retry_backoff", "100ms")
	viper.SetDefault("redis.max_retry_backoff", "500ms")

	viper.SetDefault("bus.backend", "sarama")
	viper.SetDefault("bus.brokers", []string{"localhost:9092"})
	viper.SetDefault("bus.topic", "heartbeats")
	viper.SetDefault("bus.group_id", "driftctl-processor")
	viper.SetDefault("bus.batch_size", 500)
	viper.SetDefault("bus.batch_window", "2s")
	viper.SetDefault("bus.queue_size", 1000)

	viper.SetDefault("cache.backend", "twolevel")
	viper.SetDefault("cache.write_through", true)
	viper.SetDefault("cache.invalidate_l1_on_l2_update", true)
	viper.SetDefault("cache.named.expected-config-hash.ttl", "5m")
	viper.SetDefault("cache.named.expected-config-hash.max_size", 10000)

	viper.SetDefault("config_source.namespace", "default")
	viper.SetDefault("config_source.use_discovery", true)
	viper.SetDefault("config_source.mock_mode", "")
	viper.SetDefault("config_source.http_timeout", "5s")

	viper.SetDefault("resilience.bus.max_retries", 3)
	viper.SetDefault("resilience.bus.base_delay", "100ms")
	viper.SetDefault("resilience.bus.max_delay", "2s")
	viper.SetDefault("resilience.bus.multiplier", 2.0)
	viper.SetDefault("resilience.bus.jitter", true)
	viper.SetDefault("resilience.bus.breaker_failure_threshold", 5)
	viper.SetDefault("resilience.bus.breaker_success_threshold", 2)
	viper.SetDefault("resilience.bus.breaker_timeout", "10s")
	viper.SetDefault("resilience.bus.bulkhead_max_concurrent", 50)
	viper.SetDefault("resilience.bus.bulkhead_max_wait", "1s")
	viper.SetDefault("resilience.bus.timeout", "5s")

	viper.SetDefault("resilience.config_hash.max_retries", 3)
	viper.SetDefault("resilience.config_hash.base_delay", "200ms")
	viper.SetDefault("resilience.config_hash.max_delay", "3s")
	viper.SetDefault("resilience.config_hash.multiplier", 2.0)
	viper.SetDefault("resilience.config_hash.jitter", true)
	viper.SetDefault("resilience.config_hash.breaker_failure_threshold", 5)
	viper.SetDefault("resilience.config_hash.breaker_success_threshold", 2)
	viper.SetDefault("resilience.config_hash.breaker_timeout", "15s")
	viper.SetDefault("resilience.config_hash.bulkhead_max_concurrent", 20)
	viper.SetDefault("resilience.config_hash.bulkhead_max_wait", "1s")
	viper.SetDefault("resilience.config_hash.timeout", "3s")

	viper.SetDefault("resilience.refresh.max_retries", 2)
	viper.SetDefault("resilience.refresh.base_delay", "200ms")
	viper.SetDefault("resilience.refresh.max_delay", "2s")
	viper.SetDefault("resilience.refresh.multiplier", 2.0)
	viper.SetDefault("resilience.refresh.jitter", true)
	viper.SetDefault("resilience.refresh.breaker_failure_threshold", 5)
	viper.SetDefault("resilience.refresh.breaker_success_threshold", 2)
	viper.SetDefault("resilience.refresh.breaker_timeout", "15s")
	viper.SetDefault("resilience.refresh.bulkhead_max_concurrent", 20)
	viper.SetDefault("resilience.refresh.bulkhead_max_wait", "1s")
	viper.SetDefault("resilience.refresh.timeout", "3s")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.filename", "")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)

	viper.SetDefault("app.name", "driftctl")
	viper.SetDefault("app.version", "0.1.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("metrics.port", 8080)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host cannot be empty")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name cannot be empty")
	}

	switch c.Bus.Backend {
	case "sarama":
		if len(c.Bus.Brokers) == 0 {
			return fmt.Errorf("bus.brokers cannot be empty when bus.backend is 'sarama'")
		}
		if c.Bus.Topic == "" {
			return fmt.Errorf("bus.topic cannot be empty")
		}
	case "memory":
		// No external dependency to validate.
	default:
		return fmt.Errorf("invalid bus backend: %s (must be 'sarama' or 'memory')", c.Bus.Backend)
	}

	switch c.Cache.Backend {
	case "local", "distributed", "twolevel":
	default:
		return fmt.Errorf("invalid cache backend: %s (must be 'local', 'distributed', or 'twolevel')", c.Cache.Backend)
	}

	if c.Log.Level == "" {
		return fmt.Errorf("log level cannot be empty")
	}

	if c.App.Name == "" {
		return fmt.Errorf("app name cannot be empty")
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDebug returns true if debug mode is enabled.
func (c *Config) IsDebug() bool {
	return c.App.Debug || c.IsDevelopment()
}
