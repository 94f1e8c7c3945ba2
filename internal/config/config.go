package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Assistant    AssistantConfig
	Storage      StorageConfig
	Lifecycle    LifecycleConfig
	Assignment   AssignmentConfig
	Lock         LockConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. An empty DSN selects the
// in-memory store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level   string
	Format  string // "json" or "console"
	Service string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// AssistantConfig selects the LLM behind the first-line assistant.
type AssistantConfig struct {
	// DisplayName is the sender name of assistant messages.
	DisplayName    string
	Provider       string
	TimeoutSeconds int
	Gemini         VertexModelConfig
	Claude         VertexModelConfig
}

// VertexModelConfig addresses a model hosted on Vertex AI.
type VertexModelConfig struct {
	ProjectID string
	Location  string
	Model     string
}

// StorageConfig selects where attachments are written.
type StorageConfig struct {
	Backend       string
	LocalDir      string
	PublicBaseURL string
	GCSBucket     string
}

// LifecycleConfig tunes ticket rules.
type LifecycleConfig struct {
	ReopenWindowHours int
}

// AssignmentConfig picks the balancer strategy.
type AssignmentConfig struct {
	Strategy string
}

// LockConfig selects the per-ticket lock backend.
type LockConfig struct {
	Backend    string
	TTLSeconds int
}

// NotificationConfig configures outbound notifications. An empty WebhookURL
// disables the webhook.
type NotificationConfig struct {
	WebhookURL            string
	WebhookTimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:   getEnv("LOG_LEVEL", "info"),
			Format:  strings.ToLower(getEnv("LOG_FORMAT", "json")),
			Service: getEnv("APP_NAME", "helpdesk-service"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Assistant: AssistantConfig{
			DisplayName:    getEnv("ASSISTANT_NAME", "NextLayer Assistant"),
			Provider:       strings.ToLower(getEnv("ASSISTANT_PROVIDER", "none")),
			TimeoutSeconds: getEnvAsInt("ASSISTANT_TIMEOUT_SECONDS", 20),
			Gemini: VertexModelConfig{
				ProjectID: os.Getenv("GEMINI_PROJECT_ID"),
				Location:  getEnv("GEMINI_LOCATION", "us-central1"),
				Model:     getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			},
			Claude: VertexModelConfig{
				ProjectID: os.Getenv("CLAUDE_PROJECT_ID"),
				Location:  getEnv("CLAUDE_LOCATION", "us-east5"),
				Model:     getEnv("CLAUDE_MODEL", "claude-sonnet-4@20250514"),
			},
		},
		Storage: StorageConfig{
			Backend:       strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
			LocalDir:      getEnv("STORAGE_LOCAL_DIR", "uploads"),
			PublicBaseURL: getEnv("STORAGE_PUBLIC_BASE_URL", "/uploads"),
			GCSBucket:     os.Getenv("STORAGE_GCS_BUCKET"),
		},
		Lifecycle: LifecycleConfig{
			ReopenWindowHours: getEnvAsInt("LIFECYCLE_REOPEN_WINDOW_HOURS", 72),
		},
		Assignment: AssignmentConfig{
			Strategy: strings.ToLower(getEnv("ASSIGNMENT_STRATEGY", "history")),
		},
		Lock: LockConfig{
			Backend:    strings.ToLower(getEnv("LOCK_BACKEND", "local")),
			TTLSeconds: getEnvAsInt("LOCK_TTL_SECONDS", 60),
		},
		Notification: NotificationConfig{
			WebhookURL:            os.Getenv("NOTIFY_WEBHOOK_URL"),
			WebhookTimeoutSeconds: getEnvAsInt("NOTIFY_WEBHOOK_TIMEOUT_SECONDS", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Assistant.Provider {
	case "none":
	case "gemini":
		if c.Assistant.Gemini.ProjectID == "" {
			return fmt.Errorf("GEMINI_PROJECT_ID is required when ASSISTANT_PROVIDER=gemini")
		}
	case "claude":
		if c.Assistant.Claude.ProjectID == "" {
			return fmt.Errorf("CLAUDE_PROJECT_ID is required when ASSISTANT_PROVIDER=claude")
		}
	default:
		return fmt.Errorf("invalid ASSISTANT_PROVIDER %q", c.Assistant.Provider)
	}
	switch c.Storage.Backend {
	case "local", "memory":
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("STORAGE_GCS_BUCKET is required when STORAGE_BACKEND=gcs")
		}
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if c.Assignment.Strategy != "history" && c.Assignment.Strategy != "counter" {
		return fmt.Errorf("invalid ASSIGNMENT_STRATEGY %q", c.Assignment.Strategy)
	}
	if c.Lock.Backend != "local" && c.Lock.Backend != "redis" {
		return fmt.Errorf("invalid LOCK_BACKEND %q", c.Lock.Backend)
	}
	if c.Assistant.TimeoutSeconds <= 0 {
		return fmt.Errorf("ASSISTANT_TIMEOUT_SECONDS must be positive")
	}
	if c.App.RequestTimeoutSeconds > 0 && c.Assistant.TimeoutSeconds >= c.App.RequestTimeoutSeconds {
		return fmt.Errorf("ASSISTANT_TIMEOUT_SECONDS (%d) must be lower than HTTP_REQUEST_TIMEOUT_SECONDS (%d)",
			c.Assistant.TimeoutSeconds, c.App.RequestTimeoutSeconds)
	}
	if c.Lifecycle.ReopenWindowHours <= 0 {
		return fmt.Errorf("LIFECYCLE_REOPEN_WINDOW_HOURS must be positive")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// ReopenWindow is how long a completed ticket still accepts client messages.
func (l LifecycleConfig) ReopenWindow() time.Duration {
	return time.Duration(l.ReopenWindowHours) * time.Hour
}

// TTL is the lock lease duration.
func (l LockConfig) TTL() time.Duration {
	return time.Duration(l.TTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
