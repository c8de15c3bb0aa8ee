package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"journal_chat/internal/domain"
	"journal_chat/internal/repository"
	apperrors "journal_chat/pkg/errors"
	"journal_chat/pkg/logger"
)

type mockMessageRepository struct {
	mock.Mock
}

func (m *mockMessageRepository) Append(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *mockMessageRepository) GetByID(ctx context.Context, messageID string) (*domain.Message, error) {
	args := m.Called(ctx, messageID)
	if msg, ok := args.Get(0).(*domain.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMessageRepository) GetHistory(ctx context.Context, userA, userB string, query domain.HistoryQuery) ([]*domain.Message, error) {
	args := m.Called(ctx, userA, userB, query)
	if msgs, ok := args.Get(0).([]*domain.Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMessageRepository) ListForUser(ctx context.Context, userID string) ([]*domain.Message, error) {
	args := m.Called(ctx, userID)
	if msgs, ok := args.Get(0).([]*domain.Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMessageRepository) UpdateFields(ctx context.Context, messageID string, patch domain.MessagePatch) (*domain.Message, error) {
	args := m.Called(ctx, messageID, patch)
	if msg, ok := args.Get(0).(*domain.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMessageRepository) MarkRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	args := m.Called(ctx, senderID, receiverID)
	return args.Get(0).(int64), args.Error(1)
}

type mockConversationService struct {
	mock.Mock
}

func (m *mockConversationService) List(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*domain.Conversation), args.Error(1)
}

func (m *mockConversationService) Invalidate(ctx context.Context, userIDs ...string) {
	m.Called(ctx, userIDs)
}

func TestSendReleasesIdempotencyKeyOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	repo := &mockMessageRepository{}
	repo.On("Append", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(errors.New("connection reset")).Once()
	repo.On("Append", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(nil).Once()

	conversations := &mockConversationService{}
	conversations.On("Invalidate", mock.Anything, []string{"u1", "u2"}).Return().Once()

	chat := NewChatService(repo, env.repos.Idempotency, conversations, 50, logger.NewNop())
	req := SendRequest{SenderID: "u1", ReceiverID: "u2", Payload: textPayload(t, "retry me"), IdempotencyKey: "k-9"}

	_, _, err := chat.Send(ctx, req)
	require.Error(t, err)

	msg, replayed, err := chat.Send(ctx, req)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, "retry me", msg.Text)

	repo.AssertExpectations(t)
	conversations.AssertExpectations(t)
}

func TestEditLosesRaceWithDelete(t *testing.T) {
	ctx := context.Background()

	stored := &domain.Message{ID: "m1", SenderID: "u1", ReceiverID: "u2", Type: domain.MessageTypeText, Text: "hi"}
	repo := &mockMessageRepository{}
	repo.On("GetByID", mock.Anything, "m1").Return(stored, nil)
	repo.On("UpdateFields", mock.Anything, "m1", mock.MatchedBy(func(p domain.MessagePatch) bool {
		return p.RequireNotDeleted && p.IsEdited && p.Text != nil && *p.Text == "edited"
	})).Return(nil, apperrors.InvalidState("message m1 is deleted"))

	conversations := &mockConversationService{}
	mutator := NewMutatorService(repo, conversations, NewAuditService(repository.NewMemoryAuditRepository(), logger.NewNop()), logger.NewNop())

	_, err := mutator.Edit(ctx, "m1", "u1", "edited")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	conversations.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

func TestHistoryPropagatesStoreErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	storeErr := errors.New("timeout")
	repo := &mockMessageRepository{}
	repo.On("GetHistory", mock.Anything, "u1", "u2", domain.HistoryQuery{Limit: 10}).Return(nil, storeErr)

	chat := NewChatService(repo, env.repos.Idempotency, &mockConversationService{}, 10, logger.NewNop())
	_, err := chat.History(ctx, "u1", "u2", domain.HistoryQuery{Limit: 25})
	assert.ErrorIs(t, err, storeErr)
	repo.AssertExpectations(t)
}
