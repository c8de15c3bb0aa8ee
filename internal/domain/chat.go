package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	apperrors "journal_chat/pkg/errors"
)

type MessageType string

const (
	MessageTypeText      MessageType = "text"
	MessageTypeImage     MessageType = "image"
	MessageTypeGIF       MessageType = "gif"
	MessageTypeFile      MessageType = "file"
	MessageTypeMemory    MessageType = "memory"
	MessageTypeChronicle MessageType = "chronicle"
)

// MaxTextLength is measured in runes.
const MaxTextLength = 4096

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeGIF, MessageTypeFile,
		MessageTypeMemory, MessageTypeChronicle:
		return true
	}
	return false
}

// IsUpload reports whether the type carries an uploaded file.
func (t MessageType) IsUpload() bool {
	return t == MessageTypeImage || t == MessageTypeGIF || t == MessageTypeFile
}

type Attachment struct {
	FileURL  string `json:"fileUrl,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FileType string `json:"fileType,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
}

func (a Attachment) IsZero() bool {
	return a == Attachment{}
}

type LinkedItem struct {
	LinkedItemID    string `json:"linkedItemId,omitempty"`
	LinkedItemTitle string `json:"linkedItemTitle,omitempty"`
}

// Reply is a snapshot of the message being answered, taken when the reply is sent.
type Reply struct {
	OriginalMessageID       string `json:"originalMessageId,omitempty"`
	OriginalMessageText     string `json:"originalMessageText,omitempty"`
	OriginalMessageSenderID string `json:"originalMessageSenderId,omitempty"`
}

func (r Reply) IsZero() bool {
	return r.OriginalMessageID == ""
}

type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversationId"`
	SenderID       string      `json:"senderId"`
	ReceiverID     string      `json:"receiverId"`
	Type           MessageType `json:"type"`
	Text           string      `json:"text,omitempty"`
	Attachment
	LinkedItem
	Reply
	ForwardedFromUserID string    `json:"forwardedFromUserId,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
	IsRead              bool      `json:"isRead"`
	IsEdited            bool      `json:"isEdited"`
	IsDeleted           bool      `json:"isDeleted"`
}

// NewMessage builds an unsaved message with a fresh ULID whose embedded
// time is also the message timestamp.
func NewMessage(senderID, receiverID string, payload Payload) (*Message, error) {
	senderID = strings.TrimSpace(senderID)
	receiverID = strings.TrimSpace(receiverID)
	if senderID == "" || receiverID == "" {
		return nil, apperrors.Validation("sender and receiver are required")
	}
	if senderID == receiverID {
		return nil, apperrors.Validation("cannot send a message to yourself")
	}
	if payload == nil {
		return nil, apperrors.Validation("message payload is required")
	}

	id := ulid.Make()
	msg := &Message{
		ID:             id.String(),
		ConversationID: ConversationID(senderID, receiverID),
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Timestamp:      ulid.Time(id.Time()).UTC(),
	}
	payload.apply(msg)
	return msg, nil
}

func (m *Message) Involves(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// Partner returns the other participant from userID's point of view.
func (m *Message) Partner(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

func (m *Message) IsForwarded() bool {
	return m.ForwardedFromUserID != ""
}

// Draft returns the content fields of the message as they would be sent.
func (m *Message) Draft() MessageDraft {
	return MessageDraft{
		Type:       m.Type,
		Text:       m.Text,
		Attachment: m.Attachment,
		LinkedItem: m.LinkedItem,
	}
}

// Redacted returns a copy with the content of a deleted message removed.
func (m *Message) Redacted() *Message {
	cp := *m
	if cp.IsDeleted {
		cp.Text = ""
		cp.Attachment = Attachment{}
		cp.LinkedItem = LinkedItem{}
	}
	return &cp
}

// Before orders messages by timestamp, then id.
func (m *Message) Before(other *Message) bool {
	if !m.Timestamp.Equal(other.Timestamp) {
		return m.Timestamp.Before(other.Timestamp)
	}
	return m.ID < other.ID
}

// MessagePatch lists the only mutable fields of a stored message.
// Flags can only be raised.
type MessagePatch struct {
	Text      *string
	IsEdited  bool
	IsDeleted bool
	IsRead    bool

	// RequireNotDeleted makes the update fail with ErrInvalidState when the
	// row is already deleted at write time.
	RequireNotDeleted bool
}

func (p MessagePatch) Empty() bool {
	return p.Text == nil && !p.IsEdited && !p.IsDeleted && !p.IsRead
}

func (p MessagePatch) Apply(m *Message) {
	if p.Text != nil {
		m.Text = *p.Text
	}
	if p.IsEdited {
		m.IsEdited = true
	}
	if p.IsDeleted {
		m.IsDeleted = true
	}
	if p.IsRead {
		m.IsRead = true
	}
}

type HistoryQuery struct {
	// Limit of zero returns the whole history.
	Limit  int
	Before *time.Time
	// BeforeID breaks ties at Before: a message stamped exactly Before is
	// returned when its id sorts below BeforeID. Paging with the oldest
	// message's (timestamp, id) therefore never skips a row.
	BeforeID string
}

// Admits reports whether m lies strictly before the query's cursor.
func (q HistoryQuery) Admits(m *Message) bool {
	if q.Before == nil {
		return true
	}
	if q.BeforeID == "" {
		return m.Timestamp.Before(*q.Before)
	}
	return m.Before(&Message{ID: q.BeforeID, Timestamp: *q.Before})
}

// MessageDraft is the untyped content of a send request. ParsePayload turns
// it into one of the typed payloads.
type MessageDraft struct {
	Type MessageType `json:"type"`
	Text string      `json:"text,omitempty"`
	Attachment
	LinkedItem
}

// Payload is the typed content of a message. Implementations are
// TextPayload, MediaPayload, FilePayload and LinkedItemPayload.
type Payload interface {
	Type() MessageType
	apply(m *Message)
}

type TextPayload struct {
	Text       string
	Attachment Attachment
}

type MediaPayload struct {
	Kind       MessageType
	Caption    string
	Attachment Attachment
}

type FilePayload struct {
	Caption    string
	Attachment Attachment
}

type LinkedItemPayload struct {
	Kind MessageType
	Text string
	Item LinkedItem
}

func NewTextPayload(text string, attachment Attachment) (TextPayload, error) {
	if strings.TrimSpace(text) == "" && attachment.FileURL == "" {
		return TextPayload{}, apperrors.Validation("text message must not be empty")
	}
	if err := ValidateTextLength(text); err != nil {
		return TextPayload{}, err
	}
	return TextPayload{Text: text, Attachment: attachment}, nil
}

func NewMediaPayload(kind MessageType, caption string, attachment Attachment) (MediaPayload, error) {
	if kind != MessageTypeImage && kind != MessageTypeGIF {
		return MediaPayload{}, apperrors.Validation("type %q is not a media type", kind)
	}
	if attachment.FileURL == "" {
		return MediaPayload{}, apperrors.Validation("%s message requires fileUrl", kind)
	}
	if err := ValidateTextLength(caption); err != nil {
		return MediaPayload{}, err
	}
	return MediaPayload{Kind: kind, Caption: caption, Attachment: attachment}, nil
}

func NewFilePayload(caption string, attachment Attachment) (FilePayload, error) {
	if attachment.FileURL == "" || strings.TrimSpace(attachment.FileName) == "" {
		return FilePayload{}, apperrors.Validation("file message requires fileUrl and fileName")
	}
	if attachment.FileSize < 0 {
		return FilePayload{}, apperrors.Validation("fileSize must not be negative")
	}
	if err := ValidateTextLength(caption); err != nil {
		return FilePayload{}, err
	}
	return FilePayload{Caption: caption, Attachment: attachment}, nil
}

func NewLinkedItemPayload(kind MessageType, text string, item LinkedItem) (LinkedItemPayload, error) {
	if kind != MessageTypeMemory && kind != MessageTypeChronicle {
		return LinkedItemPayload{}, apperrors.Validation("type %q is not a linked item type", kind)
	}
	if strings.TrimSpace(item.LinkedItemID) == "" {
		return LinkedItemPayload{}, apperrors.Validation("%s message requires linkedItemId", kind)
	}
	if err := ValidateTextLength(text); err != nil {
		return LinkedItemPayload{}, err
	}
	return LinkedItemPayload{Kind: kind, Text: text, Item: item}, nil
}

// ParsePayload validates a draft against the required fields of its type.
func ParsePayload(d MessageDraft) (Payload, error) {
	switch d.Type {
	case MessageTypeText:
		return NewTextPayload(d.Text, d.Attachment)
	case MessageTypeImage, MessageTypeGIF:
		return NewMediaPayload(d.Type, d.Text, d.Attachment)
	case MessageTypeFile:
		return NewFilePayload(d.Text, d.Attachment)
	case MessageTypeMemory, MessageTypeChronicle:
		return NewLinkedItemPayload(d.Type, d.Text, d.LinkedItem)
	case "":
		return nil, apperrors.Validation("message type is required")
	default:
		return nil, apperrors.Validation("type %q is not supported", d.Type)
	}
}

func ValidateTextLength(text string) error {
	if utf8.RuneCountInString(text) > MaxTextLength {
		return apperrors.Validation("text exceeds %d characters", MaxTextLength)
	}
	return nil
}

func (p TextPayload) Type() MessageType { return MessageTypeText }

func (p TextPayload) apply(m *Message) {
	m.Type = MessageTypeText
	m.Text = p.Text
	m.Attachment = p.Attachment
}

func (p MediaPayload) Type() MessageType { return p.Kind }

func (p MediaPayload) apply(m *Message) {
	m.Type = p.Kind
	m.Text = p.Caption
	m.Attachment = p.Attachment
}

func (p FilePayload) Type() MessageType { return MessageTypeFile }

func (p FilePayload) apply(m *Message) {
	m.Type = MessageTypeFile
	m.Text = p.Caption
	m.Attachment = p.Attachment
}

func (p LinkedItemPayload) Type() MessageType { return p.Kind }

func (p LinkedItemPayload) apply(m *Message) {
	m.Type = p.Kind
	m.Text = p.Text
	m.LinkedItem = p.Item
}

// UsesUpload reports whether sending the payload needs the file upload capability.
func UsesUpload(p Payload) bool {
	if p.Type().IsUpload() {
		return true
	}
	if tp, ok := p.(TextPayload); ok {
		return tp.Attachment.FileURL != ""
	}
	return false
}

// ReplySnapshot captures the parts of original shown next to a reply.
func ReplySnapshot(original *Message) Reply {
	text := original.Text
	switch {
	case original.IsDeleted:
		text = LabelDeleted
	case text == "":
		text = SummaryText(original)
	}
	return Reply{
		OriginalMessageID:       original.ID,
		OriginalMessageText:     text,
		OriginalMessageSenderID: original.SenderID,
	}
}
