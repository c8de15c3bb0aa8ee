package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"journal_chat/internal/domain"
	apperrors "journal_chat/pkg/errors"
	"journal_chat/pkg/logger"
)

// SettingsRepository stores capability overrides keyed by scope, which is
// either domain.SettingsScopeGlobal or a user id.
type SettingsRepository interface {
	Get(ctx context.Context, scope string) (*domain.StoredSettings, error)
	List(ctx context.Context) ([]*domain.StoredSettings, error)
	Upsert(ctx context.Context, settings *domain.StoredSettings) error
	Delete(ctx context.Context, scope string) error
}

type settingsRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewSettingsRepository(db *pgxpool.Pool, log logger.Logger) SettingsRepository {
	return &settingsRepository{db: db, log: log}
}

func (r *settingsRepository) Get(ctx context.Context, scope string) (*domain.StoredSettings, error) {
	query := `
		SELECT scope, allow_edit, allow_delete, allow_forward, allow_file_upload, updated_at, updated_by
		FROM chat_settings
		WHERE scope = $1
	`

	s, err := scanSettings(r.db.QueryRow(ctx, query, scope))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("chat settings for %s", scope)
	}
	if err != nil {
		r.log.Error("Failed to get chat settings", "error", err, "scope", scope)
		return nil, err
	}

	return s, nil
}

func (r *settingsRepository) List(ctx context.Context) ([]*domain.StoredSettings, error) {
	query := `
		SELECT scope, allow_edit, allow_delete, allow_forward, allow_file_upload, updated_at, updated_by
		FROM chat_settings
		ORDER BY scope
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.Error("Failed to list chat settings", "error", err)
		return nil, err
	}
	defer rows.Close()

	var settings []*domain.StoredSettings
	for rows.Next() {
		s, err := scanSettings(rows)
		if err != nil {
			r.log.Error("Failed to scan chat settings", "error", err)
			return nil, err
		}
		settings = append(settings, s)
	}

	return settings, rows.Err()
}

func (r *settingsRepository) Upsert(ctx context.Context, s *domain.StoredSettings) error {
	query := `
		INSERT INTO chat_settings (scope, allow_edit, allow_delete, allow_forward, allow_file_upload, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (scope) DO UPDATE SET
			allow_edit = EXCLUDED.allow_edit,
			allow_delete = EXCLUDED.allow_delete,
			allow_forward = EXCLUDED.allow_forward,
			allow_file_upload = EXCLUDED.allow_file_upload,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by
	`

	_, err := r.db.Exec(ctx, query,
		s.Scope, s.Override.AllowEdit, s.Override.AllowDelete, s.Override.AllowForward,
		s.Override.AllowFileUpload, s.UpdatedAt, s.UpdatedBy,
	)
	if err != nil {
		r.log.Error("Failed to save chat settings", "error", err, "scope", s.Scope)
		return err
	}

	return nil
}

func (r *settingsRepository) Delete(ctx context.Context, scope string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chat_settings WHERE scope = $1`, scope)
	if err != nil {
		r.log.Error("Failed to delete chat settings", "error", err, "scope", scope)
		return err
	}
	return nil
}

func scanSettings(row rowScanner) (*domain.StoredSettings, error) {
	s := &domain.StoredSettings{}
	err := row.Scan(
		&s.Scope, &s.Override.AllowEdit, &s.Override.AllowDelete, &s.Override.AllowForward,
		&s.Override.AllowFileUpload, &s.UpdatedAt, &s.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

type memorySettingsRepository struct {
	mu       sync.RWMutex
	settings map[string]domain.StoredSettings
}

func NewMemorySettingsRepository() SettingsRepository {
	return &memorySettingsRepository{settings: make(map[string]domain.StoredSettings)}
}

func (r *memorySettingsRepository) Get(ctx context.Context, scope string) (*domain.StoredSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.settings[scope]
	if !ok {
		return nil, apperrors.NotFound("chat settings for %s", scope)
	}
	return &s, nil
}

func (r *memorySettingsRepository) List(ctx context.Context) ([]*domain.StoredSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.StoredSettings, 0, len(r.settings))
	for _, s := range r.settings {
		s := s
		out = append(out, &s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Scope < out[j].Scope })
	return out, nil
}

func (r *memorySettingsRepository) Upsert(ctx context.Context, s *domain.StoredSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.settings[s.Scope] = *s
	return nil
}

func (r *memorySettingsRepository) Delete(ctx context.Context, scope string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.settings, scope)
	return nil
}
