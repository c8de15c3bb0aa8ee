package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		sender_id TEXT NOT NULL,
		receiver_id TEXT NOT NULL,
		conversation_id TEXT NOT NULL,
		message_type TEXT NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		file_url TEXT NOT NULL DEFAULT '',
		file_name TEXT NOT NULL DEFAULT '',
		file_type TEXT NOT NULL DEFAULT '',
		file_size BIGINT NOT NULL DEFAULT 0,
		linked_item_id TEXT NOT NULL DEFAULT '',
		linked_item_title TEXT NOT NULL DEFAULT '',
		original_message_id TEXT NOT NULL DEFAULT '',
		original_message_text TEXT NOT NULL DEFAULT '',
		original_message_sender_id TEXT NOT NULL DEFAULT '',
		forwarded_from_user_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT false,
		is_edited BOOLEAN NOT NULL DEFAULT false,
		is_deleted BOOLEAN NOT NULL DEFAULT false
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_conversation ON chat_messages (conversation_id, created_at, id)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_sender ON chat_messages (sender_id)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_unread ON chat_messages (receiver_id, sender_id) WHERE is_read = false`,
	`CREATE TABLE IF NOT EXISTS chat_settings (
		scope TEXT PRIMARY KEY,
		allow_edit BOOLEAN,
		allow_delete BOOLEAN,
		allow_forward BOOLEAN,
		allow_file_upload BOOLEAN,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_by TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS chat_audit_log (
		id BIGSERIAL PRIMARY KEY,
		event_time TIMESTAMPTZ NOT NULL,
		actor_user_id TEXT NOT NULL DEFAULT '',
		actor_role TEXT NOT NULL,
		message_id TEXT NOT NULL DEFAULT '',
		event_type TEXT NOT NULL,
		payload JSONB NOT NULL DEFAULT '{}'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_audit_log_message ON chat_audit_log (message_id)`,
}

// Migrate creates the chat tables when they do not exist yet.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
