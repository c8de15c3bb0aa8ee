package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Storage     StorageConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Chat        ChatConfig
	Log         LogConfig
}

type ServerConfig struct {
	Port           int
	Host           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
}

type StorageConfig struct {
	Driver string
}

type DatabaseConfig struct {
	DSN             string
	MaxConnections  int
	MaxIdleTime     time.Duration
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// ChatConfig holds messaging engine tunables and the capability defaults
// used until an admin stores a global settings row.
type ChatConfig struct {
	ConversationCacheTTL  time.Duration
	IdempotencyTTL        time.Duration
	// IdempotencyPendingTTL bounds how long an in-flight send holds its key.
	IdempotencyPendingTTL time.Duration
	SendRateLimit         int
	SendRateWindow        time.Duration
	HistoryMaxLimit       int
	DefaultAllowEdit      bool
	DefaultAllowDelete    bool
	DefaultAllowForward   bool
	DefaultAllowUpload    bool
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres)),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DATABASE_DSN", ""),
			MaxConnections:  getEnvAsInt("DATABASE_MAX_CONNECTIONS", 25),
			MaxIdleTime:     getEnvAsDuration("DATABASE_MAX_IDLE_TIME", 5*time.Minute),
			ConnMaxLifetime: getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
			Issuer: getEnv("JWT_ISSUER", "journal-chat"),
			TTL:    getEnvAsDuration("JWT_TTL", 24*time.Hour),
		},
		Chat: ChatConfig{
			ConversationCacheTTL:  getEnvAsDuration("CONVERSATION_CACHE_TTL", 30*time.Second),
			IdempotencyTTL:        getEnvAsDuration("IDEMPOTENCY_TTL", 24*time.Hour),
			IdempotencyPendingTTL: getEnvAsDuration("IDEMPOTENCY_PENDING_TTL", 30*time.Second),
			SendRateLimit:         getEnvAsInt("SEND_RATE_LIMIT", 60),
			SendRateWindow:        getEnvAsDuration("SEND_RATE_WINDOW", time.Minute),
			HistoryMaxLimit:       getEnvAsInt("HISTORY_MAX_LIMIT", 500),
			DefaultAllowEdit:      getEnvAsBool("CHAT_DEFAULT_ALLOW_EDIT", true),
			DefaultAllowDelete:    getEnvAsBool("CHAT_DEFAULT_ALLOW_DELETE", true),
			DefaultAllowForward:   getEnvAsBool("CHAT_DEFAULT_ALLOW_FORWARD", true),
			DefaultAllowUpload:    getEnvAsBool("CHAT_DEFAULT_ALLOW_FILE_UPLOAD", true),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret must be set")
	}
	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database DSN must be set for the postgres driver")
		}
	case StorageDriverMemory:
		if c.IsProduction() {
			return fmt.Errorf("memory storage is not allowed in production")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address must be set")
	}
	if c.Chat.SendRateLimit <= 0 {
		return fmt.Errorf("send rate limit must be positive")
	}
	if c.Chat.HistoryMaxLimit <= 0 {
		return fmt.Errorf("history max limit must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
