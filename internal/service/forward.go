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

// ForwardTarget names the destination conversation either by its two
// participants or by its conversation id.
type ForwardTarget struct {
	Participants   []string
	ConversationID string
}

func (t ForwardTarget) pair() (string, string, error) {
	if t.ConversationID != "" {
		return domain.ParticipantsFromConversationID(t.ConversationID)
	}
	if len(t.Participants) != 2 {
		return "", "", apperrors.Validation("forward target needs exactly two participants")
	}
	a, b := strings.TrimSpace(t.Participants[0]), strings.TrimSpace(t.Participants[1])
	if a == "" || b == "" || a == b {
		return "", "", apperrors.Validation("forward target needs two distinct participants")
	}
	return a, b, nil
}

type ForwardService interface {
	Forward(ctx context.Context, messageID, forwarderID string, target ForwardTarget) (*domain.Message, error)
}

type forwardService struct {
	messageRepo   repository.MessageRepository
	conversations ConversationService
	audit         AuditService
	log           logger.Logger
}

func NewForwardService(messageRepo repository.MessageRepository, conversations ConversationService, audit AuditService, log logger.Logger) ForwardService {
	return &forwardService{
		messageRepo:   messageRepo,
		conversations: conversations,
		audit:         audit,
		log:           log,
	}
}

// Forward copies the content of a message into the target conversation.
// The copy credits the original author, also when the message was itself
// a forward, and carries no reply or edit state.
func (s *forwardService) Forward(ctx context.Context, messageID, forwarderID string, target ForwardTarget) (*domain.Message, error) {
	a, b, err := target.pair()
	if err != nil {
		return nil, err
	}

	original, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if original.IsDeleted {
		return nil, apperrors.InvalidState("deleted messages cannot be forwarded")
	}
	if !original.Involves(forwarderID) {
		return nil, apperrors.Permission("only participants of a conversation can forward its messages")
	}

	var receiverID string
	switch forwarderID {
	case a:
		receiverID = b
	case b:
		receiverID = a
	default:
		return nil, apperrors.Validation("forwarder must be a participant of the target conversation")
	}

	payload, err := domain.ParsePayload(original.Draft())
	if err != nil {
		return nil, err
	}
	forwarded, err := domain.NewMessage(forwarderID, receiverID, payload)
	if err != nil {
		return nil, err
	}
	forwarded.ForwardedFromUserID = original.ForwardedFromUserID
	if forwarded.ForwardedFromUserID == "" {
		forwarded.ForwardedFromUserID = original.SenderID
	}

	if err := s.messageRepo.Append(ctx, forwarded); err != nil {
		return nil, err
	}

	commitCtx, cancel := afterCommit(ctx)
	defer cancel()

	s.conversations.Invalidate(commitCtx, forwarded.SenderID, forwarded.ReceiverID)
	metrics.MessageMutations.WithLabelValues("forward").Inc()
	metrics.MessagesSent.WithLabelValues(string(forwarded.Type)).Inc()
	logAudit(commitCtx, s.audit, s.log, forwarderID, domain.ActorRoleUser, original.ID, domain.EventTypeMessageForwarded, map[string]interface{}{
		"forwardedMessageId": forwarded.ID,
		"conversationId":     forwarded.ConversationID,
	})

	return forwarded, nil
}
