package chatclient

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"journal_chat/internal/config"
	"journal_chat/internal/domain"
	"journal_chat/internal/handler"
	"journal_chat/internal/repository"
	"journal_chat/internal/service"
	"journal_chat/pkg/jwt"
	"journal_chat/pkg/logger"
)

type apiServer struct {
	url    string
	tokens *jwt.Manager
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{RequestTimeout: 5 * time.Second},
		Storage:     config.StorageConfig{Driver: config.StorageDriverMemory},
		Chat: config.ChatConfig{
			ConversationCacheTTL: time.Minute,
			IdempotencyTTL:       time.Hour,
			SendRateLimit:        1000,
			SendRateWindow:       time.Minute,
			HistoryMaxLimit:      100,
			DefaultAllowEdit:     true,
			DefaultAllowDelete:   true,
			DefaultAllowForward:  true,
			DefaultAllowUpload:   true,
		},
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := logger.NewNop()
	repos := repository.NewMemoryRepositories(rdb, cfg.Chat, log)
	services := service.NewServices(repos, cfg, log)
	tokens := jwt.NewManager("client-secret", "journal-chat", time.Hour)
	health := handler.NewHealthHandler(cfg.Storage.Driver, nil)
	router := handler.NewRouter(handler.NewHandlers(services, health, log), services, tokens, cfg, log)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &apiServer{url: srv.URL + "/api/chat", tokens: tokens}
}

func (s *apiServer) client(t *testing.T, userID string, opts ...Option) *Client {
	t.Helper()
	token, err := s.tokens.Generate(userID, jwt.RoleUser)
	require.NoError(t, err)
	return NewClient(s.url, token, opts...)
}

func textDraft(body string) domain.MessageDraft {
	return domain.MessageDraft{Type: domain.MessageTypeText, Text: body}
}

func send(t *testing.T, c *Client, from, to, body string) *domain.Message {
	t.Helper()
	msg, err := c.Send(context.Background(), SendRequest{SenderID: from, ReceiverID: to, MessageDraft: textDraft(body)})
	require.NoError(t, err)
	return msg
}
