package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"journal_chat/internal/domain"
	"journal_chat/internal/middleware"
	"journal_chat/internal/service"
	apperrors "journal_chat/pkg/errors"
	"journal_chat/pkg/logger"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type ChatHandler struct {
	messages      service.MessageService
	conversations service.ConversationService
	read          service.ReadService
	policy        service.PolicyService
	log           logger.Logger
}

func NewChatHandler(services *service.Services, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		messages:      services.Messages,
		conversations: services.Conversations,
		read:          services.Read,
		policy:        services.Policy,
		log:           log,
	}
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	userA, userB := c.Param("userA"), c.Param("userB")
	requester := middleware.UserID(c)
	if requester != userA && requester != userB {
		_ = c.Error(apperrors.Permission("requester is not a participant of this conversation"))
		return
	}

	query := domain.HistoryQuery{}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			_ = c.Error(apperrors.Validation("invalid limit %q", raw))
			return
		}
		query.Limit = limit
	}
	if raw := c.Query("before"); raw != "" {
		before, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			_ = c.Error(apperrors.Validation("before must be an RFC3339 timestamp"))
			return
		}
		query.Before = &before
	}
	if raw := c.Query("beforeId"); raw != "" {
		if query.Before == nil {
			_ = c.Error(apperrors.Validation("beforeId requires before"))
			return
		}
		query.BeforeID = raw
	}

	messages, err := h.messages.History(c.Request.Context(), userA, userB, query)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

func (h *ChatHandler) GetConversations(c *gin.Context) {
	userID := c.Param("userId")
	if middleware.UserID(c) != userID {
		_ = c.Error(apperrors.Permission("cannot list another user's conversations"))
		return
	}

	conversations, err := h.conversations.List(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, conversations)
}

type SendMessageRequest struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	domain.MessageDraft
	domain.Reply
	ForwardedFromUserID string `json:"forwardedFromUserId"`
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Validation("%s", err.Error()))
		return
	}

	if req.SenderID != middleware.UserID(c) {
		_ = c.Error(apperrors.Permission("senderId must match the authenticated user"))
		return
	}

	payload, err := domain.ParsePayload(req.MessageDraft)
	if err != nil {
		_ = c.Error(err)
		return
	}

	message, replayed, err := h.messages.Send(c.Request.Context(), service.SendRequest{
		SenderID:            req.SenderID,
		ReceiverID:          req.ReceiverID,
		Payload:             payload,
		Reply:               req.Reply,
		ForwardedFromUserID: req.ForwardedFromUserID,
		IdempotencyKey:      strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey)),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	if replayed {
		c.JSON(http.StatusOK, message)
		return
	}
	c.JSON(http.StatusCreated, message)
}

type MarkReadRequest struct {
	SenderID   string `json:"senderId" binding:"required"`
	ReceiverID string `json:"receiverId" binding:"required"`
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Validation("%s", err.Error()))
		return
	}

	if req.ReceiverID != middleware.UserID(c) {
		_ = c.Error(apperrors.Permission("only the receiver can mark messages as read"))
		return
	}

	updated, err := h.read.MarkRead(c.Request.Context(), req.ReceiverID, req.SenderID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"updated": updated,
	})
}

type EditMessageRequest struct {
	Text string `json:"text"`
}

func (h *ChatHandler) EditMessage(c *gin.Context) {
	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Validation("%s", err.Error()))
		return
	}

	message, err := h.messages.Edit(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.Text)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, message)
}

func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	message, err := h.messages.Delete(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, message)
}

type ForwardMessageRequest struct {
	Participants         []string `json:"participants"`
	TargetConversationID string   `json:"targetConversationId"`
}

func (h *ChatHandler) ForwardMessage(c *gin.Context) {
	var req ForwardMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Validation("%s", err.Error()))
		return
	}

	message, err := h.messages.Forward(c.Request.Context(), c.Param("id"), middleware.UserID(c), service.ForwardTarget{
		Participants:   req.Participants,
		ConversationID: req.TargetConversationID,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

type ShareRequest struct {
	RecipientIDs []string `json:"recipientIds"`
	domain.MessageDraft
}

func (h *ChatHandler) Share(c *gin.Context) {
	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Validation("%s", err.Error()))
		return
	}

	payload, err := domain.ParsePayload(req.MessageDraft)
	if err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.messages.Share(c.Request.Context(), middleware.UserID(c), req.RecipientIDs, payload)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ChatHandler) MySettings(c *gin.Context) {
	settings, err := h.policy.Effective(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, settings)
}
