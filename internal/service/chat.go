package service

import (
	"context"
	"errors"
	"strings"

	"journal_chat/internal/domain"
	"journal_chat/internal/metrics"
	"journal_chat/internal/repository"
	apperrors "journal_chat/pkg/errors"
	"journal_chat/pkg/logger"
)

type SendRequest struct {
	SenderID            string
	ReceiverID          string
	Payload             domain.Payload
	Reply               domain.Reply
	ForwardedFromUserID string
	// IdempotencyKey is optional. A repeated key returns the first message.
	IdempotencyKey string
}

type ShareOutcome struct {
	RecipientID string `json:"recipientId"`
	MessageID   string `json:"messageId,omitempty"`
	Error       string `json:"error,omitempty"`
}

type ShareResult struct {
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Results   []ShareOutcome `json:"results"`
}

// ChatService appends to and reads from the message log.
type ChatService interface {
	// Send appends a message. replayed is true when the message was created
	// by an earlier request with the same idempotency key.
	Send(ctx context.Context, req SendRequest) (message *domain.Message, replayed bool, err error)
	History(ctx context.Context, userA, userB string, query domain.HistoryQuery) ([]*domain.Message, error)
	// Share sends the same payload to every recipient. Failures are reported
	// per recipient and never undo the messages already sent.
	Share(ctx context.Context, senderID string, recipientIDs []string, payload domain.Payload) (*ShareResult, error)
}

type chatService struct {
	messageRepo     repository.MessageRepository
	idempotency     repository.IdempotencyRepository
	conversations   ConversationService
	historyMaxLimit int
	log             logger.Logger
}

func NewChatService(
	messageRepo repository.MessageRepository,
	idempotency repository.IdempotencyRepository,
	conversations ConversationService,
	historyMaxLimit int,
	log logger.Logger,
) ChatService {
	return &chatService{
		messageRepo:     messageRepo,
		idempotency:     idempotency,
		conversations:   conversations,
		historyMaxLimit: historyMaxLimit,
		log:             log,
	}
}

func (s *chatService) Send(ctx context.Context, req SendRequest) (*domain.Message, bool, error) {
	message, err := domain.NewMessage(req.SenderID, req.ReceiverID, req.Payload)
	if err != nil {
		return nil, false, err
	}

	if !req.Reply.IsZero() {
		reply, err := s.replySnapshot(ctx, message.ConversationID, req.Reply)
		if err != nil {
			return nil, false, err
		}
		message.Reply = reply
	}
	message.ForwardedFromUserID = strings.TrimSpace(req.ForwardedFromUserID)

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		reserved, existingID, err := s.idempotency.Reserve(ctx, message.SenderID, key)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, false, ctx.Err()
		case err != nil:
			// Redis is down: deliver without deduplication rather than
			// blocking every send that carries a key.
			s.log.Warn("Idempotency store unavailable, sending without deduplication", "error", err, "sender_id", message.SenderID)
			metrics.IdempotencyBypasses.Inc()
			key = ""
		case !reserved:
			return s.replay(ctx, message.SenderID, existingID)
		}
	}

	if err := s.messageRepo.Append(ctx, message); err != nil {
		if key != "" {
			releaseCtx, cancel := afterCommit(ctx)
			if releaseErr := s.idempotency.Release(releaseCtx, message.SenderID, key); releaseErr != nil {
				s.log.Warn("Failed to release idempotency key", "error", releaseErr)
			}
			cancel()
		}
		return nil, false, err
	}

	commitCtx, cancel := afterCommit(ctx)
	defer cancel()

	if key != "" {
		if err := s.idempotency.Complete(commitCtx, message.SenderID, key, message.ID); err != nil {
			s.log.Warn("Failed to complete idempotency key", "error", err, "message_id", message.ID)
		}
	}

	s.conversations.Invalidate(commitCtx, message.SenderID, message.ReceiverID)
	metrics.MessagesSent.WithLabelValues(string(message.Type)).Inc()
	s.log.Debug("Message sent", "message_id", message.ID, "conversation_id", message.ConversationID)

	return message, false, nil
}

func (s *chatService) replay(ctx context.Context, senderID, messageID string) (*domain.Message, bool, error) {
	if messageID == "" {
		return nil, false, apperrors.Conflict("a request with this idempotency key is still in progress")
	}

	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, false, err
	}

	s.log.Debug("Replaying idempotent send", "sender_id", senderID, "message_id", messageID)
	metrics.IdempotentReplays.Inc()
	return message, true, nil
}

// replySnapshot checks that the answered message belongs to the same
// conversation and fills the snapshot fields the client left out.
func (s *chatService) replySnapshot(ctx context.Context, conversationID string, reply domain.Reply) (domain.Reply, error) {
	original, err := s.messageRepo.GetByID(ctx, reply.OriginalMessageID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return domain.Reply{}, apperrors.Validation("replied message %s does not exist", reply.OriginalMessageID)
	}
	if err != nil {
		return domain.Reply{}, err
	}
	if original.ConversationID != conversationID {
		return domain.Reply{}, apperrors.Validation("replied message belongs to another conversation")
	}

	snapshot := domain.ReplySnapshot(original)
	if reply.OriginalMessageText != "" && !original.IsDeleted {
		snapshot.OriginalMessageText = reply.OriginalMessageText
	}
	return snapshot, nil
}

func (s *chatService) History(ctx context.Context, userA, userB string, query domain.HistoryQuery) ([]*domain.Message, error) {
	userA, userB = strings.TrimSpace(userA), strings.TrimSpace(userB)
	if userA == "" || userB == "" {
		return nil, apperrors.Validation("both participants are required")
	}
	if query.Limit < 0 {
		return nil, apperrors.Validation("limit must not be negative")
	}
	if query.Limit > s.historyMaxLimit {
		query.Limit = s.historyMaxLimit
	}

	messages, err := s.messageRepo.GetHistory(ctx, userA, userB, query)
	if err != nil {
		return nil, err
	}

	for i, m := range messages {
		messages[i] = m.Redacted()
	}
	return messages, nil
}

func (s *chatService) Share(ctx context.Context, senderID string, recipientIDs []string, payload domain.Payload) (*ShareResult, error) {
	recipients := uniqueRecipients(senderID, recipientIDs)
	if len(recipients) == 0 {
		return nil, apperrors.Validation("at least one recipient other than the sender is required")
	}

	result := &ShareResult{Results: make([]ShareOutcome, 0, len(recipients))}
	for _, recipientID := range recipients {
		message, _, err := s.Send(ctx, SendRequest{SenderID: senderID, ReceiverID: recipientID, Payload: payload})
		if err != nil {
			s.log.Warn("Share to recipient failed", "error", err, "recipient_id", recipientID)
			metrics.ShareRecipients.WithLabelValues("failed").Inc()
			result.Failed++
			result.Results = append(result.Results, ShareOutcome{RecipientID: recipientID, Error: err.Error()})
			continue
		}
		metrics.ShareRecipients.WithLabelValues("succeeded").Inc()
		result.Succeeded++
		result.Results = append(result.Results, ShareOutcome{RecipientID: recipientID, MessageID: message.ID})
	}

	s.log.Info("Share completed", "sender_id", senderID, "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

func uniqueRecipients(senderID string, recipientIDs []string) []string {
	seen := make(map[string]bool, len(recipientIDs))
	out := make([]string, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		id = strings.TrimSpace(id)
		if id == "" || id == senderID || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
