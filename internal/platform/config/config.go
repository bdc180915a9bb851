package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pkgstrings "zkregistry/pkg/platform/strings"
)

// Config is the full process configuration, read once at startup.
type Config struct {
	Server       Server
	Log          Log
	Redis        RedisConfig
	Postgres     PostgresConfig
	Kafka        KafkaConfig
	Oracle       OracleConfig
	Retry        RetryConfig
	Registry     RegistryConfig
	Verification VerificationConfig
	Sources      SourcesConfig
	RateLimit    RateLimitConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	JWTSigningKey   string
	JWTIssuer       string
	AuthRequired    bool
	CORSOrigins     []string
	RequestTimeout  time.Duration
	MaxRequestBytes int64
	ShutdownTimeout time.Duration
}

type Log struct {
	Level  string
	Format string
}

// RedisConfig is empty-URL when redis is not configured.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type PostgresConfig struct {
	DSN string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// OracleConfig holds the hex seed the oracle signing key is derived from.
type OracleConfig struct {
	Seed string
}

type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

type RegistryConfig struct {
	Height   int
	LeaseTTL time.Duration
	Name     string
}

type VerificationConfig struct {
	Concurrency   int
	EntityTimeout time.Duration
	ProveEnabled  bool
}

type SourcesConfig struct {
	// Static serves built-in sample records instead of calling upstream APIs.
	Static         bool
	GLEIFBaseURL   string
	CorpRegBaseURL string
	CorpRegAPIKey  string
	EXIMBaseURL    string
	EXIMAPIKey     string
	HTTPTimeout    time.Duration
	CacheTTL       time.Duration
}

// RateLimitConfig holds per-caller budgets for read and verify routes.
type RateLimitConfig struct {
	Enabled        bool
	ReadRequests   int
	VerifyRequests int
	Window         time.Duration
}

// RegistryCacheTTL bounds how long raw source records are reused.
var RegistryCacheTTL = 5 * time.Minute

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr: getString("ZKREGISTRY_ADDR", ":8080"),
			// Use a default for development - should be overridden in production
			JWTSigningKey:   getString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:       getString("JWT_ISSUER", "zkregistry"),
			AuthRequired:    getBool("AUTH_REQUIRED", false),
			CORSOrigins:     getList("CORS_ORIGINS"),
			RequestTimeout:  getDuration("HTTP_REQUEST_TIMEOUT", 5*time.Minute),
			MaxRequestBytes: int64(getInt("HTTP_MAX_REQUEST_BYTES", 1<<20)),
			ShutdownTimeout: getDuration("HTTP_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Log: Log{
			Level:  getString("LOG_LEVEL", "info"),
			Format: getString("LOG_FORMAT", "json"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("DATABASE_URL"),
		},
		Kafka: KafkaConfig{
			Brokers: getList("KAFKA_BROKERS"),
			Topic:   getString("KAFKA_AUDIT_TOPIC", "compliance.verifications"),
		},
		Oracle: OracleConfig{
			Seed: os.Getenv("ORACLE_SEED"),
		},
		Retry: RetryConfig{
			MaxAttempts: getInt("RETRY_MAX_ATTEMPTS", 3),
			Delay:       getDuration("RETRY_DELAY", 500*time.Millisecond),
		},
		Registry: RegistryConfig{
			Height:   getInt("REGISTRY_TREE_HEIGHT", 16),
			LeaseTTL: getDuration("REGISTRY_LEASE_TTL", 30*time.Second),
			Name:     getString("REGISTRY_NAME", "default"),
		},
		Verification: VerificationConfig{
			Concurrency:   getInt("VERIFY_CONCURRENCY", 4),
			EntityTimeout: getDuration("VERIFY_ENTITY_TIMEOUT", 2*time.Minute),
			ProveEnabled:  getBool("VERIFY_PROVE", true),
		},
		Sources: SourcesConfig{
			Static:         getBool("SOURCES_STATIC", false),
			GLEIFBaseURL:   getString("GLEIF_BASE_URL", "https://api.gleif.org/api/v1"),
			CorpRegBaseURL: os.Getenv("CORPREG_BASE_URL"),
			CorpRegAPIKey:  os.Getenv("CORPREG_API_KEY"),
			EXIMBaseURL:    os.Getenv("EXIM_BASE_URL"),
			EXIMAPIKey:     os.Getenv("EXIM_API_KEY"),
			HTTPTimeout:    getDuration("SOURCE_HTTP_TIMEOUT", 10*time.Second),
			CacheTTL:       getDuration("SOURCE_CACHE_TTL", RegistryCacheTTL),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getBool("RATELIMIT_ENABLED", true),
			ReadRequests:   getInt("RATELIMIT_READ_REQUESTS", 300),
			VerifyRequests: getInt("RATELIMIT_VERIFY_REQUESTS", 30),
			Window:         getDuration("RATELIMIT_WINDOW", time.Minute),
		},
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	return pkgstrings.DedupeAndTrim(strings.Split(raw, ","))
}
