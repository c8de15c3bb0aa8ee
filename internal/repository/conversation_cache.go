package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"journal_chat/internal/domain"
	"journal_chat/pkg/logger"
)

const (
	ConversationVersionKeyPrefix = "chat:conversations:%s:version"
	ConversationEntryKeyPrefix   = "chat:conversations:%s:v%d"
)

// ConversationCache holds computed conversation lists per user. Entries are
// keyed by a per-user version; Invalidate bumps the version so that a value
// computed before a write is stored under a key nobody reads any more.
type ConversationCache interface {
	Load(ctx context.Context, userID string) (conversations []*domain.Conversation, version int64, hit bool, err error)
	Store(ctx context.Context, userID string, version int64, conversations []*domain.Conversation) error
	Invalidate(ctx context.Context, userIDs ...string) error
}

type redisConversationCache struct {
	rdb *redis.Client
	ttl time.Duration
	log logger.Logger
}

// NewConversationCache returns a Redis-backed cache, or a no-op cache when
// ttl is not positive.
func NewConversationCache(rdb *redis.Client, ttl time.Duration, log logger.Logger) ConversationCache {
	if ttl <= 0 || rdb == nil {
		return noopConversationCache{}
	}
	return &redisConversationCache{rdb: rdb, ttl: ttl, log: log}
}

func (c *redisConversationCache) Load(ctx context.Context, userID string) ([]*domain.Conversation, int64, bool, error) {
	version, err := c.rdb.Get(ctx, fmt.Sprintf(ConversationVersionKeyPrefix, userID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Error("Failed to read conversation cache version", "error", err)
		return nil, 0, false, err
	}

	data, err := c.rdb.Get(ctx, fmt.Sprintf(ConversationEntryKeyPrefix, userID, version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, version, false, nil
	}
	if err != nil {
		c.log.Error("Failed to read conversation cache", "error", err)
		return nil, version, false, err
	}

	var conversations []*domain.Conversation
	if err := json.Unmarshal(data, &conversations); err != nil {
		c.log.Warn("Dropping unreadable conversation cache entry", "error", err, "user_id", userID)
		return nil, version, false, nil
	}

	return conversations, version, true, nil
}

func (c *redisConversationCache) Store(ctx context.Context, userID string, version int64, conversations []*domain.Conversation) error {
	data, err := json.Marshal(conversations)
	if err != nil {
		return fmt.Errorf("failed to marshal conversations: %w", err)
	}

	if err := c.rdb.Set(ctx, fmt.Sprintf(ConversationEntryKeyPrefix, userID, version), data, c.ttl).Err(); err != nil {
		c.log.Error("Failed to write conversation cache", "error", err)
		return err
	}

	return nil
}

func (c *redisConversationCache) Invalidate(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}

	pipe := c.rdb.Pipeline()
	for _, userID := range userIDs {
		pipe.Incr(ctx, fmt.Sprintf(ConversationVersionKeyPrefix, userID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Error("Failed to invalidate conversation cache", "error", err)
		return err
	}

	return nil
}

type noopConversationCache struct{}

func (noopConversationCache) Load(ctx context.Context, userID string) ([]*domain.Conversation, int64, bool, error) {
	return nil, 0, false, nil
}

func (noopConversationCache) Store(ctx context.Context, userID string, version int64, conversations []*domain.Conversation) error {
	return nil
}

func (noopConversationCache) Invalidate(ctx context.Context, userIDs ...string) error {
	return nil
}
