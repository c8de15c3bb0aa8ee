package service

import (
	"context"
	"time"

	"journal_chat/internal/domain"
	"journal_chat/internal/repository"
	"journal_chat/pkg/logger"
)

type AuditService interface {
	LogEvent(ctx context.Context, actorUserID, actorRole, messageID, eventType string, payload map[string]interface{}) error
	MessageTrail(ctx context.Context, messageID string) ([]*domain.AuditLog, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
	log       logger.Logger
}

func NewAuditService(auditRepo repository.AuditRepository, log logger.Logger) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		log:       log,
	}
}

func (s *auditService) LogEvent(ctx context.Context, actorUserID, actorRole, messageID, eventType string, payload map[string]interface{}) error {
	if payload == nil {
		payload = make(map[string]interface{})
	}

	auditLog := &domain.AuditLog{
		EventTime:   time.Now().UTC(),
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		MessageID:   messageID,
		EventType:   eventType,
		Payload:     payload,
	}

	return s.auditRepo.CreateLog(ctx, auditLog)
}

func (s *auditService) MessageTrail(ctx context.Context, messageID string) ([]*domain.AuditLog, error) {
	return s.auditRepo.ListForMessage(ctx, messageID)
}

// logAudit records an event without failing the caller; the mutation it
// describes has already been committed.
func logAudit(ctx context.Context, audit AuditService, log logger.Logger, actorUserID, actorRole, messageID, eventType string, payload map[string]interface{}) {
	if err := audit.LogEvent(ctx, actorUserID, actorRole, messageID, eventType, payload); err != nil {
		log.Error("Failed to write audit log", "error", err, "event_type", eventType, "message_id", messageID)
	}
}
