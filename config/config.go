package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Cache        CacheConfig
	Moderation   ModerationConfig
	Subscription SubscriptionConfig
	Email        EmailConfig
	Worker       WorkerConfig
	Metrics      MetricsConfig
	Log          LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins []string // "*" allows all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// JWTConfig holds access token validation settings. Tokens are issued by the identity provider.
type JWTConfig struct {
	Secret string
}

// CacheConfig selects the company read cache backend.
type CacheConfig struct {
	Backend   string // memory or redis
	TTL       time.Duration
	KeyPrefix string
}

// ModerationConfig configures automated content checks.
type ModerationConfig struct {
	BannedWords []string // overrides the built-in list when set
	APIURL      string   // external content moderation endpoint; empty uses the word list
	APITimeout  time.Duration
}

// SubscriptionConfig holds quota bookkeeping settings.
type SubscriptionConfig struct {
	ExpiryWarningDays int
}

// EmailConfig holds SMTP settings for automation emails.
type EmailConfig struct {
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
}

// WorkerConfig holds cron specs for the background worker.
type WorkerConfig struct {
	ExpiryCron    string
	AnalyticsCron string
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Prefix string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
	File  string
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: splitTrim(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "eventhive"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-me-in-production"),
		},
		Cache: CacheConfig{
			Backend:   getEnv("CACHE_BACKEND", "memory"),
			TTL:       time.Duration(getEnvInt("CACHE_TTL_SECONDS", 300)) * time.Second,
			KeyPrefix: getEnv("CACHE_KEY_PREFIX", "eventhive:cache:"),
		},
		Moderation: ModerationConfig{
			BannedWords: splitTrim(getEnv("MODERATION_BANNED_WORDS", ""), ","),
			APIURL:      getEnv("MODERATION_API_URL", ""),
			APITimeout:  time.Duration(getEnvInt("MODERATION_API_TIMEOUT_SEC", 5)) * time.Second,
		},
		Subscription: SubscriptionConfig{
			ExpiryWarningDays: getEnvInt("EXPIRY_WARNING_DAYS", 7),
		},
		Email: EmailConfig{
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:    getEnv("EMAIL_FROM_NAME", "Eventhive"),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getEnvInt("SMTP_PORT", 587),
			SMTPUser:    getEnv("SMTP_USER", ""),
			SMTPPass:    getEnv("SMTP_PASS", ""),
		},
		Worker: WorkerConfig{
			ExpiryCron:    getEnv("WORKER_EXPIRY_CRON", "0 8 * * *"),
			AnalyticsCron: getEnv("WORKER_ANALYTICS_CRON", "15 0 * * *"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", "eventhive"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("CACHE_BACKEND must be memory or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must be positive")
	}
	if c.Subscription.ExpiryWarningDays <= 0 {
		return fmt.Errorf("EXPIRY_WARNING_DAYS must be positive")
	}
	return nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
