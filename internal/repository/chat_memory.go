package repository

import (
	"context"
	"sort"
	"sync"

	"journal_chat/internal/domain"
	apperrors "journal_chat/pkg/errors"
	"journal_chat/pkg/logger"
)

type memoryChatRepository struct {
	mu       sync.RWMutex
	messages map[string]*domain.Message
	order    []string
	log      logger.Logger
}

// NewMemoryChatRepository keeps the message log in process memory. Callers
// always receive copies, so returned messages can be modified freely.
func NewMemoryChatRepository(log logger.Logger) MessageRepository {
	return &memoryChatRepository{
		messages: make(map[string]*domain.Message),
		log:      log,
	}
}

func (r *memoryChatRepository) Append(ctx context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.messages[m.ID]; exists {
		return apperrors.Conflict("message %s already exists", m.ID)
	}
	cp := *m
	r.messages[m.ID] = &cp
	r.order = append(r.order, m.ID)
	return nil
}

func (r *memoryChatRepository) GetByID(ctx context.Context, messageID string) (*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.messages[messageID]
	if !ok {
		return nil, apperrors.NotFound("message %s", messageID)
	}
	cp := *m
	return &cp, nil
}

func (r *memoryChatRepository) GetHistory(ctx context.Context, userA, userB string, q domain.HistoryQuery) ([]*domain.Message, error) {
	conversationID := domain.ConversationID(userA, userB)

	history := r.filter(func(m *domain.Message) bool {
		return m.ConversationID == conversationID && q.Admits(m)
	})
	if q.Limit > 0 && len(history) > q.Limit {
		history = history[len(history)-q.Limit:]
	}
	return history, nil
}

func (r *memoryChatRepository) ListForUser(ctx context.Context, userID string) ([]*domain.Message, error) {
	return r.filter(func(m *domain.Message) bool {
		return m.Involves(userID)
	}), nil
}

func (r *memoryChatRepository) UpdateFields(ctx context.Context, messageID string, patch domain.MessagePatch) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.messages[messageID]
	if !ok {
		return nil, apperrors.NotFound("message %s", messageID)
	}
	if patch.RequireNotDeleted && m.IsDeleted {
		return nil, apperrors.InvalidState("message %s is deleted", messageID)
	}
	patch.Apply(m)
	cp := *m
	return &cp, nil
}

func (r *memoryChatRepository) MarkRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated int64
	for _, m := range r.messages {
		if m.SenderID == senderID && m.ReceiverID == receiverID && !m.IsRead {
			m.IsRead = true
			updated++
		}
	}
	return updated, nil
}

// filter returns copies of the matching messages in (timestamp, id) order.
func (r *memoryChatRepository) filter(keep func(*domain.Message) bool) []*domain.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Message, 0)
	for _, id := range r.order {
		m := r.messages[id]
		if keep(m) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Before(out[j])
	})
	return out
}
