package repository

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"journal_chat/internal/domain"
	"journal_chat/pkg/logger"
)

type AuditRepository interface {
	CreateLog(ctx context.Context, log *domain.AuditLog) error
	ListForMessage(ctx context.Context, messageID string) ([]*domain.AuditLog, error)
}

type auditRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewAuditRepository(db *pgxpool.Pool, log logger.Logger) AuditRepository {
	return &auditRepository{db: db, log: log}
}

func (r *auditRepository) CreateLog(ctx context.Context, auditLog *domain.AuditLog) error {
	if auditLog.Payload == nil {
		auditLog.Payload = map[string]interface{}{}
	}

	query := `
		INSERT INTO chat_audit_log (event_time, actor_user_id, actor_role, message_id, event_type, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		auditLog.EventTime, auditLog.ActorUserID, auditLog.ActorRole,
		auditLog.MessageID, auditLog.EventType, auditLog.Payload,
	).Scan(&auditLog.ID)

	if err != nil {
		r.log.Error("Failed to create audit log", "error", err)
		return err
	}

	return nil
}

func (r *auditRepository) ListForMessage(ctx context.Context, messageID string) ([]*domain.AuditLog, error) {
	query := `
		SELECT id, event_time, actor_user_id, actor_role, message_id, event_type, payload
		FROM chat_audit_log
		WHERE message_id = $1
		ORDER BY event_time ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, messageID)
	if err != nil {
		r.log.Error("Failed to list audit logs", "error", err)
		return nil, err
	}
	defer rows.Close()

	logs := make([]*domain.AuditLog, 0)
	for rows.Next() {
		l := &domain.AuditLog{}
		if err := rows.Scan(&l.ID, &l.EventTime, &l.ActorUserID, &l.ActorRole, &l.MessageID, &l.EventType, &l.Payload); err != nil {
			r.log.Error("Failed to scan audit log", "error", err)
			return nil, err
		}
		logs = append(logs, l)
	}

	return logs, rows.Err()
}

type memoryAuditRepository struct {
	mu   sync.RWMutex
	logs []domain.AuditLog
}

func NewMemoryAuditRepository() AuditRepository {
	return &memoryAuditRepository{}
}

func (r *memoryAuditRepository) CreateLog(ctx context.Context, auditLog *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	auditLog.ID = int64(len(r.logs) + 1)
	r.logs = append(r.logs, *auditLog)
	return nil
}

func (r *memoryAuditRepository) ListForMessage(ctx context.Context, messageID string) ([]*domain.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.AuditLog, 0)
	for i := range r.logs {
		if r.logs[i].MessageID == messageID {
			l := r.logs[i]
			out = append(out, &l)
		}
	}
	return out, nil
}
