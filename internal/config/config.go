package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrConfigurationMissing reports a required setting that is absent. It is fatal at startup.
var ErrConfigurationMissing = errors.New("configuration missing")

// Storage backends accepted by STORAGE_BACKEND.
const (
	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Limiter  LimiterConfig
	LLM      LLMConfig
	Storage  StorageConfig
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

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN             string
	ApplicationName string
	MaxConns        int32
	MinConns        int32
	RunMigrations   bool
	ConnMaxIdleSec  int32
	ConnMaxLifeSec  int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	SecretKey                string
	AccessTokenExpireMinutes int
	BcryptCost               int
	CookieSecure             bool
}

// LimiterConfig bounds failed login attempts per (email, client IP).
type LimiterConfig struct {
	Enabled       bool
	MaxFailures   int
	WindowSeconds int
	BlockSeconds  int
}

// LLMConfig configures the remote chat-completion endpoint.
type LLMConfig struct {
	BaseURL             string
	APIKey              string
	Model               string
	TimeoutSeconds      int
	DefaultSystemPrompt string
	Referer             string
	Title               string
}

// StorageConfig selects where uploaded files live.
type StorageConfig struct {
	Backend        string
	UploadDir      string
	MaxFileSize    int64
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// Load reads configuration from environment variables, applying defaults where possible.
// Missing secrets are reported as ErrConfigurationMissing so startup stops before serving.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read parses the environment without checking required secrets. Tools that only
// touch the database use it.
func Read() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "chat-platform"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 60),
		},
		Postgres: PostgresConfig{
			DSN:             firstEnv("POSTGRES_DSN", "DATABASE_URL"),
			ApplicationName: getEnv("APP_NAME", "chat-platform"),
			MaxConns:        int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:        int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:   getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			SecretKey:                os.Getenv("SECRET_KEY"),
			AccessTokenExpireMinutes: getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30),
			BcryptCost:               getEnvAsInt("AUTH_BCRYPT_COST", 12),
			CookieSecure:             getEnvAsBool("AUTH_COOKIE_SECURE", false),
		},
		Limiter: LimiterConfig{
			Enabled:       getEnvAsBool("LOGIN_LIMITER_ENABLED", true),
			MaxFailures:   getEnvAsInt("LOGIN_MAX_FAILURES", 5),
			WindowSeconds: getEnvAsInt("LOGIN_WINDOW_SECONDS", 900),
			BlockSeconds:  getEnvAsInt("LOGIN_BLOCK_SECONDS", 900),
		},
		LLM: LLMConfig{
			BaseURL:             getEnv("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
			APIKey:              firstEnv("OPENROUTER_API_KEY", "OPENAI_API_KEY"),
			Model:               getEnv("LLM_MODEL", "x-ai/grok-4-fast:free"),
			TimeoutSeconds:      getEnvAsInt("LLM_TIMEOUT_SECONDS", 30),
			DefaultSystemPrompt: getEnv("LLM_DEFAULT_SYSTEM_PROMPT", "You are a helpful AI assistant. Provide clear, accurate, and helpful responses."),
			Referer:             os.Getenv("LLM_HTTP_REFERER"),
			Title:               getEnv("LLM_APP_TITLE", "Chatbot Platform"),
		},
		Storage: StorageConfig{
			Backend:        strings.ToLower(getEnv("STORAGE_BACKEND", StorageBackendLocal)),
			UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
			MaxFileSize:    int64(getEnvAsInt("MAX_FILE_SIZE", 10*1024*1024)),
			S3Bucket:       os.Getenv("S3_BUCKET"),
			S3Region:       getEnv("S3_REGION", "us-east-1"),
			S3Endpoint:     os.Getenv("S3_ENDPOINT"),
			S3AccessKey:    os.Getenv("S3_ACCESS_KEY"),
			S3SecretKey:    os.Getenv("S3_SECRET_KEY"),
			S3UsePathStyle: getEnvAsBool("S3_USE_PATH_STYLE", true),
		},
	}
	return cfg, nil
}

// Validate reports the first required setting that is absent.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.SecretKey) == "" {
		return fmt.Errorf("%w: SECRET_KEY", ErrConfigurationMissing)
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("%w: OPENROUTER_API_KEY or OPENAI_API_KEY", ErrConfigurationMissing)
	}
	switch c.Storage.Backend {
	case StorageBackendLocal:
	case StorageBackendS3:
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("%w: S3_BUCKET", ErrConfigurationMissing)
		}
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q", c.Storage.Backend)
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

// AccessTokenTTL returns the lifetime of issued session tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenExpireMinutes) * time.Minute
}

// Timeout returns the bound on a single completion call.
func (l LLMConfig) Timeout() time.Duration {
	if l.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// Window returns the failure counting window.
func (l LimiterConfig) Window() time.Duration {
	return time.Duration(l.WindowSeconds) * time.Second
}

// BlockFor returns the lockout duration once MaxFailures is reached.
func (l LimiterConfig) BlockFor() time.Duration {
	return time.Duration(l.BlockSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
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
