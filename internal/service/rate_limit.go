package service

import (
	"context"

	"journal_chat/internal/domain"
	"journal_chat/internal/metrics"
	"journal_chat/internal/repository"
	"journal_chat/pkg/logger"
)

type RateLimitService interface {
	// Allow counts one hit against rule and reports whether it fits the
	// window, along with the hits left.
	Allow(ctx context.Context, rule domain.RateLimitRule) (allowed bool, remaining int, err error)
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	log           logger.Logger
}

func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		log:           log,
	}
}

func (s *rateLimitService) Allow(ctx context.Context, rule domain.RateLimitRule) (bool, int, error) {
	key := rule.CounterKey()

	allowed, err := s.rateLimitRepo.CheckLimit(ctx, key, rule.Limit)
	if err != nil {
		return false, 0, err
	}
	if !allowed {
		metrics.RateLimitHits.WithLabelValues(rule.Scope).Inc()
		return false, 0, nil
	}

	count, err := s.rateLimitRepo.Increment(ctx, key, rule.Window)
	if err != nil {
		return false, 0, err
	}

	remaining := rule.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining, nil
}
