package chatclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"journal_chat/internal/domain"
	"journal_chat/pkg/logger"
)

func TestSyncerSelectLoadsMarksReadAndRefreshes(t *testing.T) {
	ctx := context.Background()
	srv := newAPIServer(t)
	send(t, srv.client(t, "u1"), "u1", "u2", "one")
	send(t, srv.client(t, "u1"), "u1", "u2", "two")

	s := NewSyncer(srv.client(t, "u2"), SyncerConfig{UserID: "u2"}, logger.NewNop())
	defer s.Close()

	require.NoError(t, s.Select(ctx, "u1"))

	view := s.View()
	assert.Equal(t, "u1", view.Partner)
	require.Len(t, view.Messages, 2)
	assert.Equal(t, "one", view.Messages[0].Text)

	convs := s.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, 0, convs[0].UnreadCounts["u2"])

	select {
	case update := <-s.Updates():
		assert.Len(t, update, 1)
	default:
		t.Fatal("expected a conversation update")
	}
}

func TestSyncerSendAndMutations(t *testing.T) {
	ctx := context.Background()
	srv := newAPIServer(t)
	s := NewSyncer(srv.client(t, "u1"), SyncerConfig{UserID: "u1"}, logger.NewNop())
	defer s.Close()

	_, err := s.Send(ctx, textDraft("nobody"), domain.Reply{})
	assert.ErrorIs(t, err, ErrNoSelection)

	require.NoError(t, s.Select(ctx, "u2"))
	msg, err := s.Send(ctx, textDraft("hi"), domain.Reply{})
	require.NoError(t, err)

	view := s.View()
	require.Len(t, view.Messages, 1)
	assert.Equal(t, msg.ID, view.Messages[0].ID)

	require.NoError(t, s.Edit(ctx, msg.ID, "hi!"))
	view = s.View()
	assert.True(t, view.Messages[0].IsEdited)
	assert.Equal(t, "hi!", view.Messages[0].Text)

	require.NoError(t, s.Forward(ctx, msg.ID, ForwardTarget{TargetConversationID: "u1_u3"}))
	assert.Len(t, s.Conversations(), 2)

	require.NoError(t, s.Delete(ctx, msg.ID))
	view = s.View()
	assert.True(t, view.Messages[0].IsDeleted)
	assert.Empty(t, view.Messages[0].Text)
}

// fakeAPI returns canned data; blockHistory holds History for a partner
// until its channel is closed.
type fakeAPI struct {
	mu             sync.Mutex
	conversations  func(call int) ([]domain.Conversation, error)
	calls          int
	blockHistory   map[string]chan struct{}
	historyStarted chan string
}

func (f *fakeAPI) History(ctx context.Context, userA, userB string, limit int, before *Cursor) ([]domain.Message, error) {
	if f.historyStarted != nil {
		f.historyStarted <- userB
	}
	if ch, ok := f.blockHistory[userB]; ok {
		<-ch
	}
	return []domain.Message{{ID: "from-" + userB, SenderID: userB, ReceiverID: userA}}, nil
}

func (f *fakeAPI) Conversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	if f.conversations == nil {
		return nil, nil
	}
	return f.conversations(call)
}

func (f *fakeAPI) Send(ctx context.Context, req SendRequest) (*domain.Message, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAPI) MarkRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	return 0, nil
}

func (f *fakeAPI) Edit(ctx context.Context, messageID, text string) (*domain.Message, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAPI) Delete(ctx context.Context, messageID string) (*domain.Message, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAPI) Forward(ctx context.Context, messageID string, target ForwardTarget) (*domain.Message, error) {
	return nil, errors.New("not implemented")
}

func TestSyncerDropsStaleSelection(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	api := &fakeAPI{
		blockHistory:   map[string]chan struct{}{"slow": release},
		historyStarted: make(chan string, 2),
	}
	s := NewSyncer(api, SyncerConfig{UserID: "me"}, logger.NewNop())
	defer s.Close()

	done := make(chan error, 1)
	go func() { done <- s.Select(ctx, "slow") }()
	require.Equal(t, "slow", <-api.historyStarted)

	require.NoError(t, s.Select(ctx, "fast"))
	<-api.historyStarted

	close(release)
	require.NoError(t, <-done)

	view := s.View()
	assert.Equal(t, "fast", view.Partner)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, "from-fast", view.Messages[0].ID)
}

func TestSyncerRunSurvivesFailedCycles(t *testing.T) {
	api := &fakeAPI{
		conversations: func(call int) ([]domain.Conversation, error) {
			if call == 1 {
				return nil, errors.New("connection refused")
			}
			return []domain.Conversation{{ID: "a_me"}}, nil
		},
	}
	s := NewSyncer(api, SyncerConfig{UserID: "me", PollInterval: 5 * time.Millisecond}, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	select {
	case notice := <-s.Notices():
		assert.Equal(t, "Could not refresh conversations", notice.Message)
		assert.EqualError(t, notice.Err, "connection refused")
		assert.True(t, notice.ExpiresAt.After(time.Now()))
	case <-time.After(time.Second):
		t.Fatal("expected a notice")
	}

	select {
	case update := <-s.Updates():
		require.Len(t, update, 1)
		assert.Equal(t, "a_me", update[0].ID)
	case <-time.After(time.Second):
		t.Fatal("expected an update after the failed cycle")
	}

	cancel()
	select {
	case err := <-runErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestSyncerDropsOutOfOrderRefresh(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	api := &fakeAPI{
		conversations: func(call int) ([]domain.Conversation, error) {
			if call == 1 {
				close(started)
				<-release
				return []domain.Conversation{{ID: "a_me", UnreadCounts: map[string]int{"me": 3}}}, nil
			}
			return []domain.Conversation{{ID: "a_me", UnreadCounts: map[string]int{"me": 0}}}, nil
		},
	}
	s := NewSyncer(api, SyncerConfig{UserID: "me"}, logger.NewNop())
	defer s.Close()

	poll := make(chan error, 1)
	go func() { poll <- s.Refresh(ctx) }()
	<-started

	require.NoError(t, s.Refresh(ctx))
	close(release)
	require.NoError(t, <-poll)

	convs := s.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, 0, convs[0].UnreadCounts["me"], "the slower, older poll does not overwrite the newer list")

	select {
	case update := <-s.Updates():
		assert.Equal(t, 0, update[0].UnreadCounts["me"])
	default:
		t.Fatal("expected the newer list to be published")
	}
}

func TestSyncerClose(t *testing.T) {
	release := make(chan struct{})
	api := &fakeAPI{
		blockHistory:   map[string]chan struct{}{"p": release},
		historyStarted: make(chan string, 1),
	}
	s := NewSyncer(api, SyncerConfig{UserID: "me", PollInterval: time.Hour}, logger.NewNop())

	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(context.Background()) }()

	selectErr := make(chan error, 1)
	go func() { selectErr <- s.Select(context.Background(), "p") }()
	<-api.historyStarted

	s.Close()
	close(release)

	require.NoError(t, <-selectErr)
	assert.Empty(t, s.View().Messages)

	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on Close")
	}

	assert.ErrorIs(t, s.Select(context.Background(), "p"), ErrClosed)
	assert.ErrorIs(t, s.Refresh(context.Background()), ErrClosed)
	s.Close()
}
