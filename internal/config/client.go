package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
)

// ClientConfig configures the chatsync command.
type ClientConfig struct {
	APIURL         string
	Token          string
	UserID         string
	Partner        string
	PollInterval   time.Duration
	RequestTimeout time.Duration
	MaxRetries     int
	LogLevel       string
}

func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	cfg := &ClientConfig{
		APIURL:         getEnv("CHAT_API_URL", "http://localhost:8080/api/chat"),
		Token:          getEnv("CHAT_TOKEN", ""),
		UserID:         getEnv("CHAT_USER_ID", ""),
		Partner:        getEnv("CHAT_PARTNER", ""),
		PollInterval:   getEnvAsDuration("CHAT_POLL_INTERVAL", 15*time.Second),
		RequestTimeout: getEnvAsDuration("CHAT_REQUEST_TIMEOUT", 10*time.Second),
		MaxRetries:     getEnvAsInt("CHAT_MAX_RETRIES", 3),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	if cfg.Token == "" {
		return nil, fmt.Errorf("CHAT_TOKEN must be set")
	}
	if cfg.UserID == "" {
		return nil, fmt.Errorf("CHAT_USER_ID must be set")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}

	return cfg, nil
}
