package domain

import (
	"time"
)

type AuditLog struct {
	ID          int64                  `json:"id"`
	EventTime   time.Time              `json:"eventTime"`
	ActorUserID string                 `json:"actorUserId,omitempty"`
	ActorRole   string                 `json:"actorRole"`
	MessageID   string                 `json:"messageId,omitempty"`
	EventType   string                 `json:"eventType"`
	Payload     map[string]interface{} `json:"payload"`
}

const (
	ActorRoleUser   = "user"
	ActorRoleAdmin  = "admin"
	ActorRoleSystem = "system"
)

const (
	EventTypeMessageEdited       = "MESSAGE_EDITED"
	EventTypeMessageDeleted      = "MESSAGE_DELETED"
	EventTypeMessageForwarded    = "MESSAGE_FORWARDED"
	EventTypeChatSettingsUpdated = "CHAT_SETTINGS_UPDATED"
)
