package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig holds gRPC and HTTP server configuration.
type ServerConfig struct {
	GRPCPort int
	HTTPPort int
}

// KafkaConfig holds Kafka connection and topic configuration.
type KafkaConfig struct {
	Brokers           []string
	InputTopic        string
	OutputTopic       string
	GroupID           string
	NumPartitions     int32
	ReplicationFactor int16
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	DialTimeout       time.Duration
	CommitInterval    time.Duration
	SessionTimeout    time.Duration
	CreateTopics      bool
	ContentType       string
	EventTypes        []string // accepted stream event types, empty accepts all
}

// AuthConfig holds JWT and authentication configuration.
type AuthConfig struct {
	Enabled       bool
	JWTSecret     string
	Issuer        string
	TokenExpiry   time.Duration
	AllowedIssuer string
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond int
	BurstSize         int
	CleanupInterval   time.Duration
	StaleThreshold    time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json", "text"
	Output string // "stdout", "stderr", or file path
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// CacheConfig holds the resolved filters cache configuration.
type CacheConfig struct {
	Backend         string // "redis" or "static"
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	KeyPrefix       string
	StaticPath      string // JSON snapshot used by the static backend
	EntityTypes     []string
	RefreshInterval time.Duration
	LoadTimeout     time.Duration
	MaxRetries      int
}

// StreamsConfig holds the stream definitions configuration.
type StreamsConfig struct {
	DefinitionsPath string
}

// FilterConfig holds the filtering engine configuration.
type FilterConfig struct {
	CustomStixTesters  string // "key=expr;key=expr"
	CustomEventTesters string
	CELCacheSize       int
}

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Kafka       KafkaConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	Log         LogConfig
	Metrics     MetricsConfig
	Cache       CacheConfig
	Streams     StreamsConfig
	Filter      FilterConfig
	Environment string
}

// Load reads configuration from environment variables and returns a Config.
func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			GRPCPort: getIntEnv("GRPC_PORT", 50051),
			HTTPPort: getIntEnv("HTTP_PORT", 8080),
		},
		Kafka: KafkaConfig{
			Brokers:           getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			InputTopic:        getStringEnv("KAFKA_INPUT_TOPIC", "stix-live-stream"),
			OutputTopic:       getStringEnv("KAFKA_OUTPUT_TOPIC", "stix-matched-events"),
			GroupID:           getStringEnv("KAFKA_GROUP_ID", "stix-filter-gateway"),
			NumPartitions:     int32(getIntEnv("KAFKA_NUM_PARTITIONS", 3)),     //nolint:gosec // safe conversion, values will never overflow int32
			ReplicationFactor: int16(getIntEnv("KAFKA_REPLICATION_FACTOR", 1)), //nolint:gosec // safe conversion, values will never overflow int16
			ReadTimeout:       getDurationEnv("KAFKA_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:      getDurationEnv("KAFKA_WRITE_TIMEOUT", 10*time.Second),
			DialTimeout:       getDurationEnv("KAFKA_DIAL_TIMEOUT", 10*time.Second),
			CommitInterval:    getDurationEnv("KAFKA_COMMIT_INTERVAL", 1*time.Second),
			SessionTimeout:    getDurationEnv("KAFKA_SESSION_TIMEOUT", 10*time.Second),
			CreateTopics:      getBoolEnv("KAFKA_CREATE_TOPICS", false),
			ContentType:       getStringEnv("KAFKA_CONTENT_TYPE", "application/json"),
			EventTypes:        getStringSliceEnv("KAFKA_EVENT_TYPES", nil),
		},
		Auth: AuthConfig{
			Enabled:       getBoolEnv("AUTH_ENABLED", false),
			JWTSecret:     getStringEnv("JWT_SECRET", "default-secret-change-in-production"),
			Issuer:        getStringEnv("JWT_ISSUER", "stix-filter-gateway"),
			TokenExpiry:   getDurationEnv("JWT_TOKEN_EXPIRY", 24*time.Hour),
			AllowedIssuer: getStringEnv("JWT_ALLOWED_ISSUER", "stix-filter-gateway"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getBoolEnv("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getIntEnv("RATE_LIMIT_RPS", 1000),
			BurstSize:         getIntEnv("RATE_LIMIT_BURST", 100),
			CleanupInterval:   getDurationEnv("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
			StaleThreshold:    getDurationEnv("RATE_LIMIT_STALE_THRESHOLD", 10*time.Minute),
		},
		Log: LogConfig{
			Level:  getStringEnv("LOG_LEVEL", "info"),
			Format: getStringEnv("LOG_FORMAT", "json"),
			Output: getStringEnv("LOG_OUTPUT", "stdout"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("METRICS_ENABLED", true),
			Port:    getIntEnv("METRICS_PORT", 9090),
			Path:    getStringEnv("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Backend:         getStringEnv("CACHE_BACKEND", "redis"),
			RedisAddr:       getStringEnv("CACHE_REDIS_ADDR", "localhost:6379"),
			RedisPassword:   getStringEnv("CACHE_REDIS_PASSWORD", ""),
			RedisDB:         getIntEnv("CACHE_REDIS_DB", 0),
			KeyPrefix:       getStringEnv("CACHE_KEY_PREFIX", "opencti:cache"),
			StaticPath:      getStringEnv("CACHE_STATIC_PATH", ""),
			EntityTypes:     getStringSliceEnv("CACHE_ENTITY_TYPES", []string{"ResolvedFilters"}),
			RefreshInterval: getDurationEnv("CACHE_REFRESH_INTERVAL", 30*time.Second),
			LoadTimeout:     getDurationEnv("CACHE_LOAD_TIMEOUT", 5*time.Second),
			MaxRetries:      getIntEnv("CACHE_MAX_RETRIES", 3),
		},
		Streams: StreamsConfig{
			DefinitionsPath: getStringEnv("STREAMS_DEFINITIONS_PATH", ""),
		},
		Filter: FilterConfig{
			CustomStixTesters:  getStringEnv("FILTER_CUSTOM_STIX_TESTERS", ""),
			CustomEventTesters: getStringEnv("FILTER_CUSTOM_EVENT_TESTERS", ""),
			CELCacheSize:       getIntEnv("FILTER_CEL_CACHE_SIZE", 256),
		},
		Environment: getStringEnv("ENVIRONMENT", "development"),
	}

	return cfg
}

// Validate checks the configuration for validity.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateKafka(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateRateLimit(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateFilter(); err != nil {
		return err
	}
	return c.validateLogging()
}

// validateServer validates server configuration.
func (c *Config) validateServer() error {
	if c.Server.GRPCPort <= 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid GRPC_PORT: %d", c.Server.GRPCPort)
	}

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d", c.Server.HTTPPort)
	}
	return nil
}

// validateKafka validates Kafka configuration.
func (c *Config) validateKafka() error {
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("at least one Kafka broker must be configured")
	}

	if c.Kafka.InputTopic == "" {
		return fmt.Errorf("Kafka input topic must be configured")
	}

	if c.Kafka.OutputTopic == "" {
		return fmt.Errorf("Kafka output topic must be configured")
	}

	if c.Kafka.InputTopic == c.Kafka.OutputTopic {
		return fmt.Errorf("Kafka input and output topics must differ")
	}

	if c.Kafka.GroupID == "" {
		return fmt.Errorf("Kafka group ID must be configured")
	}

	if c.Kafka.NumPartitions < 1 {
		return fmt.Errorf("Kafka partitions must be at least 1")
	}
	if c.Kafka.ReplicationFactor < 1 {
		return fmt.Errorf("Kafka replication factor must be at least 1")
	}
	return nil
}

// validateAuth validates auth configuration.
func (c *Config) validateAuth() error {
	if c.Auth.Enabled && c.Auth.JWTSecret == "default-secret-change-in-production" {
		return fmt.Errorf("JWT secret must be changed in production (JWT_SECRET env var)")
	}
	return nil
}

// validateRateLimit validates rate limit configuration.
func (c *Config) validateRateLimit() error {
	if c.RateLimit.RequestsPerSecond < 1 {
		return fmt.Errorf("rate limit requests per second must be at least 1")
	}
	return nil
}

// validateCache validates resolved filters cache configuration.
func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("CACHE_REDIS_ADDR must be set for the redis cache backend")
		}
	case "static":
	default:
		return fmt.Errorf("invalid CACHE_BACKEND: %s", c.Cache.Backend)
	}

	if len(c.Cache.EntityTypes) == 0 {
		return fmt.Errorf("at least one cache entity type must be configured")
	}
	if c.Cache.RefreshInterval <= 0 {
		return fmt.Errorf("cache refresh interval must be positive")
	}
	return nil
}

// validateFilter validates filtering engine configuration.
func (c *Config) validateFilter() error {
	if c.Filter.CELCacheSize < 1 {
		return fmt.Errorf("CEL cache size must be at least 1")
	}
	return nil
}

// validateLogging validates logging configuration.
func (c *Config) validateLogging() error {
	if c.Log.Level != "debug" && c.Log.Level != "info" && c.Log.Level != "warn" && c.Log.Level != "error" {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	return nil
}

// Helper functions for environment variable parsing

func getStringEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val, exists := os.LookupEnv(key); exists {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getStringSliceEnv(key string, defaultVal []string) []string {
	if val, exists := os.LookupEnv(key); exists {
		parts := strings.Split(val, ",")
		trimmed := make([]string, len(parts))
		for i, p := range parts {
			trimmed[i] = strings.TrimSpace(p)
		}
		return trimmed
	}
	return defaultVal
}
