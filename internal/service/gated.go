package service

import (
	"context"

	"journal_chat/internal/domain"
)

// MessageService is the full messaging surface used by the HTTP layer.
type MessageService interface {
	ChatService
	MutatorService
	ForwardService
}

type messageService struct {
	ChatService
	MutatorService
	ForwardService
}

func NewMessageService(chat ChatService, mutator MutatorService, forward ForwardService) MessageService {
	return &messageService{
		ChatService:    chat,
		MutatorService: mutator,
		ForwardService: forward,
	}
}

type gatedMessageService struct {
	MessageService
	policy PolicyService
}

// NewGatedMessageService checks chat settings before delegating, so the
// wrapped service stays unaware of capability flags. Reads pass straight through.
func NewGatedMessageService(inner MessageService, policy PolicyService) MessageService {
	return &gatedMessageService{MessageService: inner, policy: policy}
}

func (s *gatedMessageService) Send(ctx context.Context, req SendRequest) (*domain.Message, bool, error) {
	if req.Payload != nil && domain.UsesUpload(req.Payload) {
		if err := s.policy.Require(ctx, req.SenderID, domain.CapabilityFileUpload); err != nil {
			return nil, false, err
		}
	}
	return s.MessageService.Send(ctx, req)
}

func (s *gatedMessageService) Share(ctx context.Context, senderID string, recipientIDs []string, payload domain.Payload) (*ShareResult, error) {
	if payload != nil && domain.UsesUpload(payload) {
		if err := s.policy.Require(ctx, senderID, domain.CapabilityFileUpload); err != nil {
			return nil, err
		}
	}
	return s.MessageService.Share(ctx, senderID, recipientIDs, payload)
}

func (s *gatedMessageService) Edit(ctx context.Context, messageID, requesterID, newText string) (*domain.Message, error) {
	if err := s.policy.Require(ctx, requesterID, domain.CapabilityEdit); err != nil {
		return nil, err
	}
	return s.MessageService.Edit(ctx, messageID, requesterID, newText)
}

func (s *gatedMessageService) Delete(ctx context.Context, messageID, requesterID string) (*domain.Message, error) {
	if err := s.policy.Require(ctx, requesterID, domain.CapabilityDelete); err != nil {
		return nil, err
	}
	return s.MessageService.Delete(ctx, messageID, requesterID)
}

func (s *gatedMessageService) Forward(ctx context.Context, messageID, forwarderID string, target ForwardTarget) (*domain.Message, error) {
	if err := s.policy.Require(ctx, forwarderID, domain.CapabilityForward); err != nil {
		return nil, err
	}
	return s.MessageService.Forward(ctx, messageID, forwarderID, target)
}
