package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	apperrors "journal_chat/pkg/errors"
)

const conversationIDSeparator = "_"

const (
	LabelDeleted   = "[message deleted]"
	LabelEdited    = "(edited)"
	LabelPhoto     = "📷 Photo"
	LabelGIF       = "🖼️ GIF"
	labelFile      = "📎 File"
	labelMemory    = "🗺️ Memory"
	labelChronicle = "🗓️ Chronicle"
)

// Conversation is derived from the message log on every read and never stored.
type Conversation struct {
	ID                   string         `json:"id"`
	Participants         []string       `json:"participants"`
	LastMessageText      string         `json:"lastMessageText"`
	LastMessageType      MessageType    `json:"lastMessageType"`
	LastMessageTimestamp time.Time      `json:"lastMessageTimestamp"`
	LastMessageSenderID  string         `json:"lastMessageSenderId"`
	UnreadCounts         map[string]int `json:"unreadCounts"`
}

// ConversationID is the sorted participant pair joined with "_", so both
// orderings of a pair produce the same id.
func ConversationID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + conversationIDSeparator + b
}

// ParticipantsFromConversationID splits an id produced by ConversationID.
// Ids whose participants themselves contain the separator are rejected.
func ParticipantsFromConversationID(id string) (string, string, error) {
	parts := strings.Split(id, conversationIDSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || parts[0] == parts[1] {
		return "", "", apperrors.Validation("malformed conversation id %q", id)
	}
	return parts[0], parts[1], nil
}

// AggregateConversations groups the messages involving userID by partner and
// summarises each group. Unread counts hold the unread messages addressed to
// each participant. Conversations are ordered by their latest message,
// newest first.
func AggregateConversations(userID string, messages []*Message) []*Conversation {
	latest := make(map[string]*Message)
	unreadByMe := make(map[string]int)
	unreadByPartner := make(map[string]int)

	for _, m := range messages {
		if !m.Involves(userID) || m.SenderID == m.ReceiverID {
			continue
		}
		partner := m.Partner(userID)
		if cur, ok := latest[partner]; !ok || cur.Before(m) {
			latest[partner] = m
		}
		if !m.IsRead {
			if m.ReceiverID == userID {
				unreadByMe[partner]++
			} else {
				unreadByPartner[partner]++
			}
		}
	}

	conversations := make([]*Conversation, 0, len(latest))
	for partner, last := range latest {
		participants := []string{userID, partner}
		sort.Strings(participants)
		conversations = append(conversations, &Conversation{
			ID:                   ConversationID(userID, partner),
			Participants:         participants,
			LastMessageText:      SummaryText(last),
			LastMessageType:      last.Type,
			LastMessageTimestamp: last.Timestamp,
			LastMessageSenderID:  last.SenderID,
			UnreadCounts: map[string]int{
				userID:  unreadByMe[partner],
				partner: unreadByPartner[partner],
			},
		})
	}

	sort.Slice(conversations, func(i, j int) bool {
		a, b := conversations[i], conversations[j]
		if !a.LastMessageTimestamp.Equal(b.LastMessageTimestamp) {
			return a.LastMessageTimestamp.After(b.LastMessageTimestamp)
		}
		return a.ID < b.ID
	})

	return conversations
}

// SummaryText renders the sidebar preview of a message. Deletion wins over
// forwarding, forwarding over editing, and editing over the type label.
func SummaryText(m *Message) string {
	switch {
	case m.IsDeleted:
		return LabelDeleted
	case m.IsForwarded():
		return fmt.Sprintf("Forwarded from %s: %s", m.ForwardedFromUserID, typeSummary(m))
	case m.IsEdited:
		return LabelEdited + " " + m.Text
	default:
		return typeSummary(m)
	}
}

func typeSummary(m *Message) string {
	switch m.Type {
	case MessageTypeImage:
		return LabelPhoto
	case MessageTypeGIF:
		return LabelGIF
	case MessageTypeFile:
		return fileLabel(m.Attachment)
	case MessageTypeMemory:
		return labelMemory + ": " + m.LinkedItemTitle
	case MessageTypeChronicle:
		return labelChronicle + ": " + m.LinkedItemTitle
	default:
		if strings.TrimSpace(m.Text) == "" && m.FileURL != "" {
			return fileLabel(m.Attachment)
		}
		return m.Text
	}
}

func fileLabel(a Attachment) string {
	name := a.FileName
	if name == "" {
		name = "attachment"
	}
	if a.FileSize > 0 {
		return fmt.Sprintf("%s: %s (%s)", labelFile, name, humanize.Bytes(uint64(a.FileSize)))
	}
	return labelFile + ": " + name
}
