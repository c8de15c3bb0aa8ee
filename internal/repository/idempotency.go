package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"journal_chat/pkg/logger"
)

const (
	IdempotencyKeyPrefix = "idem:%s:%s"
	idempotencyPending   = "pending"

	defaultIdempotencyPendingTTL = 30 * time.Second
)

// IdempotencyRepository remembers which message a client-supplied key
// produced. Keys are scoped per sender.
type IdempotencyRepository interface {
	// Reserve claims the key. When it is already taken, messageID holds the
	// completed message id, or is empty while the first request is in flight.
	Reserve(ctx context.Context, senderID, key string) (reserved bool, messageID string, err error)
	Complete(ctx context.Context, senderID, key, messageID string) error
	Release(ctx context.Context, senderID, key string) error
}

type idempotencyRepository struct {
	rdb        *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
	log        logger.Logger
}

// NewIdempotencyRepository keeps completed keys for ttl. A reserved key that
// is never completed or released expires after pendingTTL, so a send whose
// request died mid-flight can be retried with the same key.
func NewIdempotencyRepository(rdb *redis.Client, ttl, pendingTTL time.Duration, log logger.Logger) IdempotencyRepository {
	if pendingTTL <= 0 {
		pendingTTL = defaultIdempotencyPendingTTL
	}
	if ttl > 0 && pendingTTL > ttl {
		pendingTTL = ttl
	}
	return &idempotencyRepository{rdb: rdb, ttl: ttl, pendingTTL: pendingTTL, log: log}
}

func (r *idempotencyRepository) key(senderID, key string) string {
	return fmt.Sprintf(IdempotencyKeyPrefix, senderID, key)
}

func (r *idempotencyRepository) Reserve(ctx context.Context, senderID, key string) (bool, string, error) {
	ok, err := r.rdb.SetNX(ctx, r.key(senderID, key), idempotencyPending, r.pendingTTL).Result()
	if err != nil {
		r.log.Error("Failed to reserve idempotency key", "error", err)
		return false, "", err
	}
	if ok {
		return true, "", nil
	}

	value, err := r.rdb.Get(ctx, r.key(senderID, key)).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		ok, err = r.rdb.SetNX(ctx, r.key(senderID, key), idempotencyPending, r.pendingTTL).Result()
		if err != nil {
			r.log.Error("Failed to reserve idempotency key", "error", err)
			return false, "", err
		}
		return ok, "", nil
	}
	if err != nil {
		r.log.Error("Failed to read idempotency key", "error", err)
		return false, "", err
	}
	if value == idempotencyPending {
		return false, "", nil
	}

	return false, value, nil
}

func (r *idempotencyRepository) Complete(ctx context.Context, senderID, key, messageID string) error {
	if err := r.rdb.Set(ctx, r.key(senderID, key), messageID, r.ttl).Err(); err != nil {
		r.log.Error("Failed to complete idempotency key", "error", err)
		return err
	}
	return nil
}

func (r *idempotencyRepository) Release(ctx context.Context, senderID, key string) error {
	if err := r.rdb.Del(ctx, r.key(senderID, key)).Err(); err != nil {
		r.log.Error("Failed to release idempotency key", "error", err)
		return err
	}
	return nil
}
