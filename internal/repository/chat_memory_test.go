package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"journal_chat/internal/domain"
	apperrors "journal_chat/pkg/errors"
	"journal_chat/pkg/logger"
)

func newStoredMessage(t *testing.T, repo MessageRepository, from, to, text string, at time.Time) *domain.Message {
	t.Helper()
	p, err := domain.NewTextPayload(text, domain.Attachment{})
	require.NoError(t, err)
	m, err := domain.NewMessage(from, to, p)
	require.NoError(t, err)
	m.Timestamp = at
	require.NoError(t, repo.Append(context.Background(), m))
	return m
}

func TestMemoryChatRepositoryHistory(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryChatRepository(logger.NewNop())
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	m1 := newStoredMessage(t, repo, "u1", "u2", "one", base.Add(3*time.Minute))
	m2 := newStoredMessage(t, repo, "u2", "u1", "two", base.Add(1*time.Minute))
	m3 := newStoredMessage(t, repo, "u1", "u2", "three", base.Add(2*time.Minute))
	newStoredMessage(t, repo, "u1", "u3", "other", base)

	history, err := repo.GetHistory(ctx, "u2", "u1", domain.HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []string{m2.ID, m3.ID, m1.ID}, ids(history))

	latest, err := repo.GetHistory(ctx, "u1", "u2", domain.HistoryQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{m3.ID, m1.ID}, ids(latest))

	before := base.Add(3 * time.Minute)
	page, err := repo.GetHistory(ctx, "u1", "u2", domain.HistoryQuery{Limit: 1, Before: &before})
	require.NoError(t, err)
	assert.Equal(t, []string{m3.ID}, ids(page))
}

func TestMemoryChatRepositoryPagesWithinOneMillisecond(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryChatRepository(logger.NewNop())
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	var sent []*domain.Message
	for _, text := range []string{"a", "b", "c", "d"} {
		sent = append(sent, newStoredMessage(t, repo, "u1", "u2", text, at))
	}

	var seen []string
	query := domain.HistoryQuery{Limit: 3}
	for {
		page, err := repo.GetHistory(ctx, "u1", "u2", query)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		seen = append(ids(page), seen...)
		query.Before, query.BeforeID = &page[0].Timestamp, page[0].ID
	}
	assert.Equal(t, ids(sent), seen)

	bare, err := repo.GetHistory(ctx, "u1", "u2", domain.HistoryQuery{Before: &at})
	require.NoError(t, err)
	assert.Empty(t, bare, "a timestamp-only cursor stays exclusive")
}

func TestMemoryChatRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryChatRepository(logger.NewNop())
	m := newStoredMessage(t, repo, "u1", "u2", "hello", time.Now())

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	got.Text = "tampered"

	again, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", again.Text)
}

func TestMemoryChatRepositoryUpdateFields(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryChatRepository(logger.NewNop())
	m := newStoredMessage(t, repo, "u1", "u2", "hello", time.Now())

	text := "hello!"
	updated, err := repo.UpdateFields(ctx, m.ID, domain.MessagePatch{Text: &text, IsEdited: true, RequireNotDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, "hello!", updated.Text)
	assert.True(t, updated.IsEdited)

	_, err = repo.UpdateFields(ctx, m.ID, domain.MessagePatch{IsDeleted: true})
	require.NoError(t, err)

	_, err = repo.UpdateFields(ctx, m.ID, domain.MessagePatch{Text: &text, RequireNotDeleted: true})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = repo.UpdateFields(ctx, "missing", domain.MessagePatch{IsRead: true})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMemoryChatRepositoryMarkRead(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryChatRepository(logger.NewNop())
	now := time.Now()

	newStoredMessage(t, repo, "u1", "u2", "a", now)
	newStoredMessage(t, repo, "u1", "u2", "b", now.Add(time.Second))
	newStoredMessage(t, repo, "u2", "u1", "c", now.Add(2*time.Second))

	n, err := repo.MarkRead(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.MarkRead(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	all, err := repo.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.False(t, all[2].IsRead)
}

func TestMemoryChatRepositoryRejectsDuplicateID(t *testing.T) {
	repo := NewMemoryChatRepository(logger.NewNop())
	m := newStoredMessage(t, repo, "u1", "u2", "hello", time.Now())

	err := repo.Append(context.Background(), m)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestMemorySettingsRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySettingsRepository()

	_, err := repo.Get(ctx, domain.SettingsScopeGlobal)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	no := false
	require.NoError(t, repo.Upsert(ctx, &domain.StoredSettings{Scope: "u2", Override: domain.SettingsOverride{AllowEdit: &no}}))
	require.NoError(t, repo.Upsert(ctx, &domain.StoredSettings{Scope: "u1"}))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "u1", list[0].Scope)

	got, err := repo.Get(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, *got.Override.AllowEdit)

	require.NoError(t, repo.Delete(ctx, "u2"))
	_, err = repo.Get(ctx, "u2")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMemoryAuditRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAuditRepository()

	require.NoError(t, repo.CreateLog(ctx, &domain.AuditLog{MessageID: "m1", EventType: domain.EventTypeMessageEdited}))
	require.NoError(t, repo.CreateLog(ctx, &domain.AuditLog{MessageID: "m2", EventType: domain.EventTypeMessageDeleted}))
	require.NoError(t, repo.CreateLog(ctx, &domain.AuditLog{MessageID: "m1", EventType: domain.EventTypeMessageDeleted}))

	logs, err := repo.ListForMessage(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.EventTypeMessageEdited, logs[0].EventType)
	assert.Equal(t, int64(3), logs[1].ID)
}

func ids(messages []*domain.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.ID
	}
	return out
}
