package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"journal_chat/internal/domain"
	apperrors "journal_chat/pkg/errors"
	"journal_chat/pkg/logger"
)

// MessageRepository is the message log. Messages are appended once, mutated
// through UpdateFields and never removed.
type MessageRepository interface {
	Append(ctx context.Context, message *domain.Message) error
	GetByID(ctx context.Context, messageID string) (*domain.Message, error)
	GetHistory(ctx context.Context, userA, userB string, query domain.HistoryQuery) ([]*domain.Message, error)
	ListForUser(ctx context.Context, userID string) ([]*domain.Message, error)
	UpdateFields(ctx context.Context, messageID string, patch domain.MessagePatch) (*domain.Message, error)
	MarkRead(ctx context.Context, senderID, receiverID string) (int64, error)
}

type chatRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewChatRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &chatRepository{db: db, log: log}
}

const messageColumns = `
	id, sender_id, receiver_id, conversation_id, message_type, text,
	file_url, file_name, file_type, file_size, linked_item_id, linked_item_title,
	original_message_id, original_message_text, original_message_sender_id,
	forwarded_from_user_id, created_at, is_read, is_edited, is_deleted`

const uniqueViolation = "23505"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*domain.Message, error) {
	m := &domain.Message{}
	err := row.Scan(
		&m.ID, &m.SenderID, &m.ReceiverID, &m.ConversationID, &m.Type, &m.Text,
		&m.FileURL, &m.FileName, &m.FileType, &m.FileSize, &m.LinkedItemID, &m.LinkedItemTitle,
		&m.OriginalMessageID, &m.OriginalMessageText, &m.OriginalMessageSenderID,
		&m.ForwardedFromUserID, &m.Timestamp, &m.IsRead, &m.IsEdited, &m.IsDeleted,
	)
	if err != nil {
		return nil, err
	}
	m.Timestamp = m.Timestamp.UTC()
	return m, nil
}

func (r *chatRepository) Append(ctx context.Context, m *domain.Message) error {
	query := `
		INSERT INTO chat_messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.db.Exec(ctx, query,
		m.ID, m.SenderID, m.ReceiverID, m.ConversationID, m.Type, m.Text,
		m.FileURL, m.FileName, m.FileType, m.FileSize, m.LinkedItemID, m.LinkedItemTitle,
		m.OriginalMessageID, m.OriginalMessageText, m.OriginalMessageSenderID,
		m.ForwardedFromUserID, m.Timestamp, m.IsRead, m.IsEdited, m.IsDeleted,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperrors.Conflict("message %s already exists", m.ID)
	}
	if err != nil {
		r.log.Error("Failed to append message", "error", err, "message_id", m.ID)
		return err
	}

	return nil
}

func (r *chatRepository) GetByID(ctx context.Context, messageID string) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM chat_messages WHERE id = $1`

	m, err := scanMessage(r.db.QueryRow(ctx, query, messageID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("message %s", messageID)
	}
	if err != nil {
		r.log.Error("Failed to get message", "error", err, "message_id", messageID)
		return nil, err
	}

	return m, nil
}

// GetHistory selects the newest rows first so LIMIT keeps the latest page,
// then flips the page back to ascending order. A NULL limit means no limit.
// An empty $4 never matches, which leaves a bare timestamp cursor exclusive.
func (r *chatRepository) GetHistory(ctx context.Context, userA, userB string, q domain.HistoryQuery) ([]*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + ` FROM (
			SELECT ` + messageColumns + `
			FROM chat_messages
			WHERE conversation_id = $1
				AND ($2::timestamptz IS NULL OR created_at < $2 OR (created_at = $2 AND id < $4::text))
			ORDER BY created_at DESC, id DESC
			LIMIT $3
		) page
		ORDER BY created_at ASC, id ASC
	`

	var limit *int64
	if q.Limit > 0 {
		l := int64(q.Limit)
		limit = &l
	}

	return r.queryMessages(ctx, "Failed to get history", query, domain.ConversationID(userA, userB), q.Before, limit, q.BeforeID)
}

func (r *chatRepository) ListForUser(ctx context.Context, userID string) ([]*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM chat_messages
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at ASC, id ASC
	`

	return r.queryMessages(ctx, "Failed to list messages for user", query, userID)
}

func (r *chatRepository) queryMessages(ctx context.Context, failure, query string, args ...any) ([]*domain.Message, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error(failure, "error", err)
		return nil, err
	}
	defer rows.Close()

	messages := make([]*domain.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		r.log.Error(failure, "error", err)
		return nil, err
	}

	return messages, nil
}

// UpdateFields applies the patch in a single statement. Flags are OR-ed so
// they can never be cleared. With RequireNotDeleted the guard is part of the
// same UPDATE, so a concurrent delete wins over an edit.
func (r *chatRepository) UpdateFields(ctx context.Context, messageID string, patch domain.MessagePatch) (*domain.Message, error) {
	query := `
		UPDATE chat_messages SET
			text = COALESCE($2, text),
			is_edited = is_edited OR $3,
			is_deleted = is_deleted OR $4,
			is_read = is_read OR $5
		WHERE id = $1 AND (NOT $6 OR is_deleted = false)
		RETURNING ` + messageColumns

	m, err := scanMessage(r.db.QueryRow(ctx, query,
		messageID, patch.Text, patch.IsEdited, patch.IsDeleted, patch.IsRead, patch.RequireNotDeleted,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		current, getErr := r.GetByID(ctx, messageID)
		if getErr != nil {
			return nil, getErr
		}
		if patch.RequireNotDeleted && current.IsDeleted {
			return nil, apperrors.InvalidState("message %s is deleted", messageID)
		}
		return nil, apperrors.NotFound("message %s", messageID)
	}
	if err != nil {
		r.log.Error("Failed to update message", "error", err, "message_id", messageID)
		return nil, err
	}

	return m, nil
}

func (r *chatRepository) MarkRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	query := `
		UPDATE chat_messages
		SET is_read = true
		WHERE sender_id = $1 AND receiver_id = $2 AND is_read = false
	`

	tag, err := r.db.Exec(ctx, query, senderID, receiverID)
	if err != nil {
		r.log.Error("Failed to mark messages as read", "error", err)
		return 0, err
	}

	return tag.RowsAffected(), nil
}
