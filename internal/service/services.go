package service

import (
	"journal_chat/internal/config"
	"journal_chat/internal/repository"
	"journal_chat/pkg/logger"
)

type Services struct {
	Messages      MessageService
	Conversations ConversationService
	Read          ReadService
	Policy        PolicyService
	Audit         AuditService
	RateLimit     RateLimitService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, log logger.Logger) *Services {
	audit := NewAuditService(repos.Audit, log)
	policy := NewPolicyService(repos.Settings, audit, cfg.Chat, log)
	conversations := NewConversationService(repos.Messages, repos.Conversations, log)

	core := NewMessageService(
		NewChatService(repos.Messages, repos.Idempotency, conversations, cfg.Chat.HistoryMaxLimit, log),
		NewMutatorService(repos.Messages, conversations, audit, log),
		NewForwardService(repos.Messages, conversations, audit, log),
	)

	return &Services{
		Messages:      NewGatedMessageService(core, policy),
		Conversations: conversations,
		Read:          NewReadService(repos.Messages, conversations, log),
		Policy:        policy,
		Audit:         audit,
		RateLimit:     NewRateLimitService(repos.RateLimit, log),
	}
}
