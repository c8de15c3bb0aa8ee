package service

import (
	"context"
	"time"
)

// afterCommitTimeout bounds the side effects of a write that is already
// durable: cache invalidation, idempotency bookkeeping and audit records.
const afterCommitTimeout = 3 * time.Second

// afterCommit detaches ctx from the request's cancellation so that a client
// hanging up right after the store write cannot skip the follow-up work.
func afterCommit(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), afterCommitTimeout)
}
