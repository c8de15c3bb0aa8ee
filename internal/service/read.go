package service

import (
	"context"
	"strings"

	"journal_chat/internal/metrics"
	"journal_chat/internal/repository"
	apperrors "journal_chat/pkg/errors"
	"journal_chat/pkg/logger"
)

type ReadService interface {
	// MarkRead flags every unread message from otherID to readerID as read
	// and returns how many changed. No matches is not an error.
	MarkRead(ctx context.Context, readerID, otherID string) (int64, error)
}

type readService struct {
	messageRepo   repository.MessageRepository
	conversations ConversationService
	log           logger.Logger
}

func NewReadService(messageRepo repository.MessageRepository, conversations ConversationService, log logger.Logger) ReadService {
	return &readService{
		messageRepo:   messageRepo,
		conversations: conversations,
		log:           log,
	}
}

func (s *readService) MarkRead(ctx context.Context, readerID, otherID string) (int64, error) {
	readerID, otherID = strings.TrimSpace(readerID), strings.TrimSpace(otherID)
	if readerID == "" || otherID == "" {
		return 0, apperrors.Validation("senderId and receiverId are required")
	}
	if readerID == otherID {
		return 0, apperrors.Validation("senderId and receiverId must differ")
	}

	updated, err := s.messageRepo.MarkRead(ctx, otherID, readerID)
	if err != nil {
		return 0, err
	}

	if updated > 0 {
		commitCtx, cancel := afterCommit(ctx)
		s.conversations.Invalidate(commitCtx, readerID, otherID)
		cancel()
		metrics.MessagesMarkedRead.Add(float64(updated))
	}

	return updated, nil
}
