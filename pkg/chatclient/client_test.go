package chatclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"journal_chat/internal/domain"
	apperrors "journal_chat/pkg/errors"
)

func TestClientAgainstServer(t *testing.T) {
	ctx := context.Background()
	srv := newAPIServer(t)
	u1 := srv.client(t, "u1")
	u2 := srv.client(t, "u2")

	hello := send(t, u1, "u1", "u2", "hello")
	assert.Equal(t, "u1_u2", hello.ConversationID)

	history, err := u2.History(ctx, "u2", "u1", 0, nil)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Text)

	convs, err := u2.Conversations(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 1, convs[0].UnreadCounts["u2"])

	updated, err := u2.MarkRead(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	_, err = u2.Edit(ctx, hello.ID, "hijack")
	assert.ErrorIs(t, err, apperrors.ErrPermission)
	assert.Equal(t, http.StatusForbidden, apperrors.Status(err))

	edited, err := u1.Edit(ctx, hello.ID, "hello!")
	require.NoError(t, err)
	assert.True(t, edited.IsEdited)

	fwd, err := u2.Forward(ctx, hello.ID, ForwardTarget{Participants: []string{"u2", "u3"}})
	require.NoError(t, err)
	assert.Equal(t, "u1", fwd.ForwardedFromUserID)

	deleted, err := u1.Delete(ctx, hello.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)

	_, err = u1.Edit(ctx, hello.ID, "again")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = u1.History(ctx, "u2", "u3", 0, nil)
	assert.ErrorIs(t, err, apperrors.ErrPermission)

	result, err := u1.Share(ctx, []string{"u2", "u4"}, domain.MessageDraft{
		Type:       domain.MessageTypeMemory,
		LinkedItem: domain.LinkedItem{LinkedItemID: "m-1", LinkedItemTitle: "Lisbon"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)

	settings, err := u1.Settings(ctx)
	require.NoError(t, err)
	assert.True(t, settings.AllowForward)
}

func TestClientHistoryQuery(t *testing.T) {
	ctx := context.Background()
	srv := newAPIServer(t)
	u1 := srv.client(t, "u1")

	var sent []*domain.Message
	for _, body := range []string{"a", "b", "c"} {
		sent = append(sent, send(t, u1, "u1", "u2", body))
		time.Sleep(2 * time.Millisecond)
	}

	page, err := u1.History(ctx, "u1", "u2", 2, nil)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, sent[1].ID, page[0].ID)

	older, err := u1.History(ctx, "u1", "u2", 0, &Cursor{Timestamp: sent[2].Timestamp})
	require.NoError(t, err)
	assert.Len(t, older, 2)

	rest, err := u1.History(ctx, "u1", "u2", 1, CursorAt(page[0]))
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, sent[0].ID, rest[0].ID)
}

func TestClientSendRetriesWithSameKey(t *testing.T) {
	var (
		mu   sync.Mutex
		keys []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		attempt := len(keys)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if attempt < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"try later"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"m1","senderId":"u1","receiverId":"u2","type":"text","text":"hi"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token", WithRetryRate(time.Millisecond, 1))
	msg, err := c.Send(context.Background(), SendRequest{SenderID: "u1", ReceiverID: "u2", MessageDraft: textDraft("hi")})
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)

	require.Len(t, keys, 3)
	assert.NotEmpty(t, keys[0])
	assert.Equal(t, keys[0], keys[1])
	assert.Equal(t, keys[0], keys[2])
}

func TestClientRetryPolicy(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		retries  int
		call     func(c *Client) error
		attempts int
		wantErr  error
	}{
		{
			name:    "client errors are final",
			status:  http.StatusBadRequest,
			retries: 3,
			call: func(c *Client) error {
				_, err := c.Send(context.Background(), SendRequest{SenderID: "u1", ReceiverID: "u2", MessageDraft: textDraft("x")})
				return err
			},
			attempts: 1,
			wantErr:  apperrors.ErrValidation,
		},
		{
			name:    "server errors exhaust retries",
			status:  http.StatusBadGateway,
			retries: 2,
			call: func(c *Client) error {
				_, err := c.Conversations(context.Background(), "u1")
				return err
			},
			attempts: 3,
			wantErr:  apperrors.ErrInternal,
		},
		{
			name:    "edits are not retried",
			status:  http.StatusInternalServerError,
			retries: 3,
			call: func(c *Client) error {
				_, err := c.Edit(context.Background(), "m1", "x")
				return err
			},
			attempts: 1,
			wantErr:  apperrors.ErrInternal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mu sync.Mutex
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				calls++
				mu.Unlock()
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "token", WithMaxRetries(tt.retries), WithRetryRate(time.Millisecond, 1))
			err := tt.call(c)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, "nope", err.Error())
			assert.Equal(t, tt.attempts, calls)
		})
	}
}
