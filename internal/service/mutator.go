package service

import (
	"context"
	"strings"

	"journal_chat/internal/domain"
	"journal_chat/internal/metrics"
	"journal_chat/internal/repository"
	apperrors "journal_chat/pkg/errors"
	"journal_chat/pkg/logger"
)

// MutatorService edits and deletes messages on behalf of their sender.
type MutatorService interface {
	Edit(ctx context.Context, messageID, requesterID, newText string) (*domain.Message, error)
	// Delete is idempotent: deleting a deleted message returns it unchanged.
	Delete(ctx context.Context, messageID, requesterID string) (*domain.Message, error)
}

type mutatorService struct {
	messageRepo   repository.MessageRepository
	conversations ConversationService
	audit         AuditService
	log           logger.Logger
}

func NewMutatorService(messageRepo repository.MessageRepository, conversations ConversationService, audit AuditService, log logger.Logger) MutatorService {
	return &mutatorService{
		messageRepo:   messageRepo,
		conversations: conversations,
		audit:         audit,
		log:           log,
	}
}

func (s *mutatorService) Edit(ctx context.Context, messageID, requesterID, newText string) (*domain.Message, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if message.SenderID != requesterID {
		return nil, apperrors.Permission("only the sender can edit this message")
	}
	if message.IsDeleted {
		return nil, apperrors.InvalidState("deleted messages cannot be edited")
	}
	if message.Type != domain.MessageTypeText {
		return nil, apperrors.Validation("only text messages can be edited")
	}
	if strings.TrimSpace(newText) == "" {
		return nil, apperrors.Validation("text must not be empty")
	}
	if err := domain.ValidateTextLength(newText); err != nil {
		return nil, err
	}

	previous := message.Text
	updated, err := s.messageRepo.UpdateFields(ctx, messageID, domain.MessagePatch{
		Text:              &newText,
		IsEdited:          true,
		RequireNotDeleted: true,
	})
	if err != nil {
		return nil, err
	}

	commitCtx, cancel := afterCommit(ctx)
	defer cancel()

	s.conversations.Invalidate(commitCtx, updated.SenderID, updated.ReceiverID)
	metrics.MessageMutations.WithLabelValues("edit").Inc()
	logAudit(commitCtx, s.audit, s.log, requesterID, domain.ActorRoleUser, messageID, domain.EventTypeMessageEdited, map[string]interface{}{
		"previousText": previous,
		"text":         newText,
	})

	return updated, nil
}

func (s *mutatorService) Delete(ctx context.Context, messageID, requesterID string) (*domain.Message, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if message.SenderID != requesterID {
		return nil, apperrors.Permission("only the sender can delete this message")
	}
	if message.IsDeleted {
		return message, nil
	}

	updated, err := s.messageRepo.UpdateFields(ctx, messageID, domain.MessagePatch{IsDeleted: true})
	if err != nil {
		return nil, err
	}

	commitCtx, cancel := afterCommit(ctx)
	defer cancel()

	s.conversations.Invalidate(commitCtx, updated.SenderID, updated.ReceiverID)
	metrics.MessageMutations.WithLabelValues("delete").Inc()
	logAudit(commitCtx, s.audit, s.log, requesterID, domain.ActorRoleUser, messageID, domain.EventTypeMessageDeleted, nil)

	return updated, nil
}
