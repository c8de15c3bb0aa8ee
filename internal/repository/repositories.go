package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"journal_chat/internal/config"
	"journal_chat/pkg/logger"
)

type Repositories struct {
	Messages      MessageRepository
	Settings      SettingsRepository
	Audit         AuditRepository
	Conversations ConversationCache
	Idempotency   IdempotencyRepository
	RateLimit     RateLimitRepository
}

// NewRepositories wires the Postgres-backed stores. Redis backs the cache,
// idempotency keys and rate limits for every storage driver.
func NewRepositories(db *pgxpool.Pool, redis *redis.Client, cfg config.ChatConfig, log logger.Logger) *Repositories {
	repos := newRedisRepositories(redis, cfg, log)
	repos.Messages = NewChatRepository(db, log)
	repos.Settings = NewSettingsRepository(db, log)
	repos.Audit = NewAuditRepository(db, log)

	log.Info("Postgres repositories initialized")
	return repos
}

// NewMemoryRepositories keeps messages, settings and audit logs in memory.
func NewMemoryRepositories(redis *redis.Client, cfg config.ChatConfig, log logger.Logger) *Repositories {
	repos := newRedisRepositories(redis, cfg, log)
	repos.Messages = NewMemoryChatRepository(log)
	repos.Settings = NewMemorySettingsRepository()
	repos.Audit = NewMemoryAuditRepository()

	log.Warn("Using in-memory repositories; data is lost on restart")
	return repos
}

func newRedisRepositories(redis *redis.Client, cfg config.ChatConfig, log logger.Logger) *Repositories {
	return &Repositories{
		Conversations: NewConversationCache(redis, cfg.ConversationCacheTTL, log),
		Idempotency:   NewIdempotencyRepository(redis, cfg.IdempotencyTTL, cfg.IdempotencyPendingTTL, log),
		RateLimit:     NewRateLimitRepository(redis, log),
	}
}
