package service

import (
	"context"
	"strings"
	"sync"

	"journal_chat/internal/domain"
	"journal_chat/internal/metrics"
	"journal_chat/internal/repository"
	apperrors "journal_chat/pkg/errors"
	"journal_chat/pkg/logger"
)

// ConversationService serves the derived conversation list. The aggregation
// itself is domain.AggregateConversations; this layer only adds caching.
type ConversationService interface {
	List(ctx context.Context, userID string) ([]*domain.Conversation, error)
	// Invalidate must be called after every write touching the users' messages.
	Invalidate(ctx context.Context, userIDs ...string)
}

type conversationService struct {
	messageRepo repository.MessageRepository
	cache       repository.ConversationCache
	log         logger.Logger

	// stale holds users whose cache version could not be bumped after a
	// write. Their cached lists are not trusted until a bump succeeds.
	mu    sync.Mutex
	stale map[string]struct{}
}

func NewConversationService(messageRepo repository.MessageRepository, cache repository.ConversationCache, log logger.Logger) ConversationService {
	return &conversationService{
		messageRepo: messageRepo,
		cache:       cache,
		log:         log,
		stale:       make(map[string]struct{}),
	}
}

func (s *conversationService) List(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.Validation("user id is required")
	}

	if !s.cacheUsable(ctx, userID) {
		metrics.ConversationCacheLookups.WithLabelValues("bypass").Inc()
		return s.compute(ctx, userID)
	}

	cached, version, hit, cacheErr := s.cache.Load(ctx, userID)
	if cacheErr != nil {
		s.log.Warn("Conversation cache unavailable", "error", cacheErr, "user_id", userID)
	}
	if hit {
		metrics.ConversationCacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.ConversationCacheLookups.WithLabelValues("miss").Inc()

	conversations, err := s.compute(ctx, userID)
	if err != nil {
		return nil, err
	}

	if cacheErr == nil {
		if storeErr := s.cache.Store(ctx, userID, version, conversations); storeErr != nil {
			s.log.Warn("Failed to cache conversations", "error", storeErr, "user_id", userID)
		}
	}

	return conversations, nil
}

func (s *conversationService) compute(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	messages, err := s.messageRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return domain.AggregateConversations(userID, messages), nil
}

func (s *conversationService) Invalidate(ctx context.Context, userIDs ...string) {
	if err := s.cache.Invalidate(ctx, userIDs...); err != nil {
		s.log.Error("Failed to invalidate conversations", "error", err, "user_ids", userIDs)
		s.mu.Lock()
		for _, id := range userIDs {
			s.stale[id] = struct{}{}
		}
		s.mu.Unlock()
	}
}

// cacheUsable reports whether the cache may be used for userID, retrying a
// version bump that failed earlier.
func (s *conversationService) cacheUsable(ctx context.Context, userID string) bool {
	s.mu.Lock()
	_, stale := s.stale[userID]
	s.mu.Unlock()
	if !stale {
		return true
	}

	if err := s.cache.Invalidate(ctx, userID); err != nil {
		return false
	}

	s.mu.Lock()
	delete(s.stale, userID)
	s.mu.Unlock()
	return true
}
