package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"journal_chat/internal/config"
	"journal_chat/internal/domain"
	"journal_chat/internal/metrics"
	"journal_chat/internal/repository"
	apperrors "journal_chat/pkg/errors"
	"journal_chat/pkg/logger"
)

// PolicyService resolves chat capabilities as userOverride ?? global.
type PolicyService interface {
	Effective(ctx context.Context, userID string) (domain.ChatSettings, error)
	Require(ctx context.Context, userID string, capability domain.Capability) error
	Configuration(ctx context.Context) (*domain.ChatSettingsConfiguration, error)
	UpdateGlobal(ctx context.Context, actorID string, patch domain.SettingsOverride) (domain.ChatSettings, error)
	UpdateUser(ctx context.Context, actorID, userID string, patch domain.SettingsOverride) (domain.SettingsOverride, error)
	ClearUser(ctx context.Context, actorID, userID string) error
}

type policyService struct {
	settingsRepo repository.SettingsRepository
	audit        AuditService
	defaults     domain.ChatSettings
	log          logger.Logger
}

func NewPolicyService(settingsRepo repository.SettingsRepository, audit AuditService, cfg config.ChatConfig, log logger.Logger) PolicyService {
	return &policyService{
		settingsRepo: settingsRepo,
		audit:        audit,
		defaults: domain.ChatSettings{
			AllowEdit:       cfg.DefaultAllowEdit,
			AllowDelete:     cfg.DefaultAllowDelete,
			AllowForward:    cfg.DefaultAllowForward,
			AllowFileUpload: cfg.DefaultAllowUpload,
		},
		log: log,
	}
}

func (s *policyService) global(ctx context.Context) (domain.ChatSettings, error) {
	row, err := s.settingsRepo.Get(ctx, domain.SettingsScopeGlobal)
	if errors.Is(err, apperrors.ErrNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return domain.ChatSettings{}, err
	}
	return s.defaults.Apply(row.Override), nil
}

func (s *policyService) override(ctx context.Context, userID string) (domain.SettingsOverride, error) {
	row, err := s.settingsRepo.Get(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return domain.SettingsOverride{}, nil
	}
	if err != nil {
		return domain.SettingsOverride{}, err
	}
	return row.Override, nil
}

func (s *policyService) Effective(ctx context.Context, userID string) (domain.ChatSettings, error) {
	global, err := s.global(ctx)
	if err != nil {
		return domain.ChatSettings{}, err
	}
	override, err := s.override(ctx, userID)
	if err != nil {
		return domain.ChatSettings{}, err
	}
	return global.Apply(override), nil
}

func (s *policyService) Require(ctx context.Context, userID string, capability domain.Capability) error {
	settings, err := s.Effective(ctx, userID)
	if err != nil {
		return err
	}
	if !settings.Allows(capability) {
		metrics.CapabilityDenials.WithLabelValues(string(capability)).Inc()
		return apperrors.Permission("%s is disabled for this account", capability)
	}
	return nil
}

func (s *policyService) Configuration(ctx context.Context) (*domain.ChatSettingsConfiguration, error) {
	global, err := s.global(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.settingsRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	conf := &domain.ChatSettingsConfiguration{
		Global:        global,
		UserOverrides: make(map[string]domain.SettingsOverride),
	}
	for _, row := range rows {
		if row.Scope == domain.SettingsScopeGlobal {
			continue
		}
		conf.UserOverrides[row.Scope] = row.Override
	}
	return conf, nil
}

func (s *policyService) UpdateGlobal(ctx context.Context, actorID string, patch domain.SettingsOverride) (domain.ChatSettings, error) {
	if patch.IsEmpty() {
		return domain.ChatSettings{}, apperrors.Validation("no settings to update")
	}

	current, err := s.global(ctx)
	if err != nil {
		return domain.ChatSettings{}, err
	}
	updated := current.Apply(patch)

	row := &domain.StoredSettings{
		Scope:     domain.SettingsScopeGlobal,
		Override:  updated.Full(),
		UpdatedAt: time.Now().UTC(),
		UpdatedBy: actorID,
	}
	if err := s.settingsRepo.Upsert(ctx, row); err != nil {
		return domain.ChatSettings{}, err
	}

	s.log.Info("Global chat settings updated", "actor_id", actorID)
	logAudit(ctx, s.audit, s.log, actorID, domain.ActorRoleAdmin, "", domain.EventTypeChatSettingsUpdated, map[string]interface{}{
		"scope":    domain.SettingsScopeGlobal,
		"settings": updated,
	})
	return updated, nil
}

func (s *policyService) UpdateUser(ctx context.Context, actorID, userID string, patch domain.SettingsOverride) (domain.SettingsOverride, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || userID == domain.SettingsScopeGlobal {
		return domain.SettingsOverride{}, apperrors.Validation("a user id is required")
	}
	if patch.IsEmpty() {
		return domain.SettingsOverride{}, apperrors.Validation("no settings to update")
	}

	current, err := s.override(ctx, userID)
	if err != nil {
		return domain.SettingsOverride{}, err
	}
	merged := current.Merge(patch)

	row := &domain.StoredSettings{
		Scope:     userID,
		Override:  merged,
		UpdatedAt: time.Now().UTC(),
		UpdatedBy: actorID,
	}
	if err := s.settingsRepo.Upsert(ctx, row); err != nil {
		return domain.SettingsOverride{}, err
	}

	logAudit(ctx, s.audit, s.log, actorID, domain.ActorRoleAdmin, "", domain.EventTypeChatSettingsUpdated, map[string]interface{}{
		"scope":    userID,
		"override": merged,
	})
	return merged, nil
}

func (s *policyService) ClearUser(ctx context.Context, actorID, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" || userID == domain.SettingsScopeGlobal {
		return apperrors.Validation("a user id is required")
	}

	if err := s.settingsRepo.Delete(ctx, userID); err != nil {
		return err
	}

	logAudit(ctx, s.audit, s.log, actorID, domain.ActorRoleAdmin, "", domain.EventTypeChatSettingsUpdated, map[string]interface{}{
		"scope":   userID,
		"cleared": true,
	})
	return nil
}
