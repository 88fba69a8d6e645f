package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"voting-service/internal/ratelimit"
	"voting-service/internal/util"
)

// Config holds the full service configuration, loaded once from the
// environment (optionally seeded from a .env file in development).
type Config struct {
	Environment string

	Server        ServerConfig
	Logging       LoggingConfig
	Redis         RedisConfig
	Scylla        ScyllaConfig
	Kafka         KafkaConfig
	Clickhouse    ClickhouseConfig
	Elasticsearch ElasticsearchConfig
	KMS           KMSConfig
	Session       SessionConfig
	RateLimit     RateLimitConfig
	Security      SecurityConfig
	Hashing       HashingConfig
	Bucketing     BucketingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	TLSPort      int
	EnableTLS    bool
	AutoCert     bool
	Domain       string
	CertFile     string
	KeyFile      string
	AutoCertDir  string
	Email        string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type ScyllaConfig struct {
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type KafkaConfig struct {
	Brokers     []string
	EventsTopic string
}

type ClickhouseConfig struct {
	URL      string
	Database string
	Username string
	Password string
}

type ElasticsearchConfig struct {
	URL         string
	Username    string
	Password    string
	EventsIndex string
}

type KMSConfig struct {
	Enabled bool
	KeyID   string
	// Base64 KMS-wrapped session token key; decrypted at startup when set.
	WrappedTokenKey string
}

type SessionConfig struct {
	// Absolute expiry for a single session record.
	Duration time.Duration
	// Age after which a resolved session gets a fresh id.
	RotateAfter time.Duration
	// Hard cap on a session family's total lifetime, rotation or not.
	MaxFamilyAge time.Duration
	// Base64 32-byte AES key for the client token; random per process if empty.
	TokenKey   string
	CookieName string
}

// RateLimitConfig carries one sliding-window policy per use case. Limits
// are injected by callers, never baked into the limiter.
type RateLimitConfig struct {
	Login           ratelimit.Policy
	Vote            ratelimit.Policy
	API             ratelimit.Policy
	CleanupInterval time.Duration
}

// SecurityConfig holds the suspicion scoring policy. The weights and the
// threshold are operator policy, not tuned security guarantees.
type SecurityConfig struct {
	RiskThreshold       int
	FailedLoginWeight   int
	DistinctIPWeight    int
	FailedLoginLookback time.Duration
	FailedLoginLimit    int
	DistinctIPLimit     int
	AutoBlockDuration   time.Duration
}

type HashingConfig struct {
	Argon2MemoryCost   int
	Argon2TimeCost     int
	Argon2Parallelism  int
	PepperRotationDays int
}

type BucketingConfig struct {
	UserBuckets  int
	EventBuckets int
}

var (
	loadedConfig *Config
	loadOnce     sync.Once
)

// LoadConfig loads configuration from the environment exactly once.
func LoadConfig() *Config {
	loadOnce.Do(func() {
		// .env is a development convenience; absence is not an error.
		_ = godotenv.Load()

		loadedConfig = &Config{
			Environment: util.GetEnv("ENVIRONMENT", "development"),
			Server: ServerConfig{
				Host:         util.GetEnv("SERVER_HOST", "0.0.0.0"),
				Port:         util.GetEnvInt("SERVER_PORT", 8080),
				TLSPort:      util.GetEnvInt("SERVER_TLS_PORT", 8443),
				EnableTLS:    util.GetEnvBool("SERVER_ENABLE_TLS", false),
				AutoCert:     util.GetEnvBool("SERVER_AUTO_CERT", false),
				Domain:       util.GetEnv("SERVER_DOMAIN", "localhost"),
				CertFile:     util.GetEnv("SERVER_CERT_FILE", ""),
				KeyFile:      util.GetEnv("SERVER_KEY_FILE", ""),
				AutoCertDir:  util.GetEnv("SERVER_AUTOCERT_DIR", "/var/lib/voting-service/certs"),
				Email:        util.GetEnv("SERVER_ACME_EMAIL", ""),
				ReadTimeout:  util.GetEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
				WriteTimeout: util.GetEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
				IdleTimeout:  util.GetEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			},
			Logging: LoggingConfig{
				Level:  util.GetEnv("LOG_LEVEL", "info"),
				Format: util.GetEnv("LOG_FORMAT", "json"),
			},
			Redis: RedisConfig{
				URL:      util.GetEnv("REDIS_URL", "redis://localhost:6379"),
				Password: util.GetEnv("REDIS_PASSWORD", ""),
				DB:       util.GetEnvInt("REDIS_DB", 0),
				PoolSize: util.GetEnvInt("REDIS_POOL_SIZE", 50),
			},
			Scylla: ScyllaConfig{
				Nodes:    splitList(util.GetEnv("SCYLLA_NODES", "localhost:9042")),
				Keyspace: util.GetEnv("SCYLLA_KEYSPACE", "voting"),
				Username: util.GetEnv("SCYLLA_USERNAME", ""),
				Password: util.GetEnv("SCYLLA_PASSWORD", ""),
			},
			Kafka: KafkaConfig{
				Brokers:     splitList(util.GetEnv("KAFKA_BROKERS", "localhost:9092")),
				EventsTopic: util.GetEnv("KAFKA_EVENTS_TOPIC", "security-events"),
			},
			Clickhouse: ClickhouseConfig{
				URL:      util.GetEnv("CLICKHOUSE_URL", "http://localhost:8123"),
				Database: util.GetEnv("CLICKHOUSE_DATABASE", "voting"),
				Username: util.GetEnv("CLICKHOUSE_USERNAME", "default"),
				Password: util.GetEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Elasticsearch: ElasticsearchConfig{
				URL:         util.GetEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
				Username:    util.GetEnv("ELASTICSEARCH_USERNAME", ""),
				Password:    util.GetEnv("ELASTICSEARCH_PASSWORD", ""),
				EventsIndex: util.GetEnv("ELASTICSEARCH_EVENTS_INDEX", "security-events"),
			},
			KMS: KMSConfig{
				Enabled:         util.GetEnvBool("KMS_ENABLED", false),
				KeyID:           util.GetEnv("KMS_KEY_ID", ""),
				WrappedTokenKey: util.GetEnv("KMS_WRAPPED_TOKEN_KEY", ""),
			},
			Session: SessionConfig{
				Duration:     util.GetEnvDuration("SESSION_DURATION", 24*time.Hour),
				RotateAfter:  util.GetEnvDuration("SESSION_ROTATE_AFTER", 1*time.Hour),
				MaxFamilyAge: util.GetEnvDuration("SESSION_MAX_FAMILY_AGE", 7*24*time.Hour),
				TokenKey:     util.GetEnv("SESSION_TOKEN_KEY", ""),
				CookieName:   util.GetEnv("SESSION_COOKIE_NAME", "vs_session"),
			},
			RateLimit: RateLimitConfig{
				Login: ratelimit.Policy{
					MaxAttempts:   util.GetEnvInt("RATE_LIMIT_LOGIN_MAX", 5),
					Window:        util.GetEnvDuration("RATE_LIMIT_LOGIN_WINDOW", 15*time.Minute),
					BlockDuration: util.GetEnvDuration("RATE_LIMIT_LOGIN_BLOCK", 30*time.Minute),
				},
				Vote: ratelimit.Policy{
					MaxAttempts:   util.GetEnvInt("RATE_LIMIT_VOTE_MAX", 10),
					Window:        util.GetEnvDuration("RATE_LIMIT_VOTE_WINDOW", 1*time.Minute),
					BlockDuration: util.GetEnvDuration("RATE_LIMIT_VOTE_BLOCK", 10*time.Minute),
				},
				API: ratelimit.Policy{
					MaxAttempts:   util.GetEnvInt("RATE_LIMIT_API_MAX", 100),
					Window:        util.GetEnvDuration("RATE_LIMIT_API_WINDOW", 1*time.Minute),
					BlockDuration: util.GetEnvDuration("RATE_LIMIT_API_BLOCK", 5*time.Minute),
				},
				CleanupInterval: util.GetEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
			},
			Security: SecurityConfig{
				RiskThreshold:       util.GetEnvInt("SECURITY_RISK_THRESHOLD", 60),
				FailedLoginWeight:   util.GetEnvInt("SECURITY_FAILED_LOGIN_WEIGHT", 35),
				DistinctIPWeight:    util.GetEnvInt("SECURITY_DISTINCT_IP_WEIGHT", 35),
				FailedLoginLookback: util.GetEnvDuration("SECURITY_FAILED_LOGIN_LOOKBACK", 24*time.Hour),
				FailedLoginLimit:    util.GetEnvInt("SECURITY_FAILED_LOGIN_LIMIT", 5),
				DistinctIPLimit:     util.GetEnvInt("SECURITY_DISTINCT_IP_LIMIT", 5),
				AutoBlockDuration:   util.GetEnvDuration("SECURITY_AUTO_BLOCK_DURATION", 24*time.Hour),
			},
			Hashing: HashingConfig{
				Argon2MemoryCost:   util.GetEnvInt("ARGON2_MEMORY_COST", 64*1024),
				Argon2TimeCost:     util.GetEnvInt("ARGON2_TIME_COST", 3),
				Argon2Parallelism:  util.GetEnvInt("ARGON2_PARALLELISM", 2),
				PepperRotationDays: util.GetEnvInt("PEPPER_ROTATION_DAYS", 30),
			},
			Bucketing: BucketingConfig{
				UserBuckets:  util.GetEnvInt("BUCKETING_USER_BUCKETS", 64),
				EventBuckets: util.GetEnvInt("BUCKETING_EVENT_BUCKETS", 16),
			},
		}
	})

	return loadedConfig
}

// Get returns the loaded config, loading it if needed.
func Get() *Config {
	return LoadConfig()
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return !c.IsProduction()
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
