package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"journal_chat/internal/config"
	"journal_chat/internal/repository"
	"journal_chat/internal/service"
	"journal_chat/pkg/jwt"
	"journal_chat/pkg/logger"
)

type testServer struct {
	router   *gin.Engine
	tokens   *jwt.Manager
	services *service.Services
	repos    *repository.Repositories
	redis    *miniredis.Miniredis
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{RequestTimeout: 5 * time.Second},
		Storage:     config.StorageConfig{Driver: config.StorageDriverMemory},
		JWT:         config.JWTConfig{Secret: "test-secret", Issuer: "journal-chat", TTL: time.Hour},
		Chat: config.ChatConfig{
			ConversationCacheTTL: time.Minute,
			IdempotencyTTL:       time.Hour,
			SendRateLimit:        100,
			SendRateWindow:       time.Minute,
			HistoryMaxLimit:      50,
			DefaultAllowEdit:     true,
			DefaultAllowDelete:   true,
			DefaultAllowForward:  true,
			DefaultAllowUpload:   true,
		},
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := logger.NewNop()
	repos := repository.NewMemoryRepositories(rdb, cfg.Chat, log)
	services := service.NewServices(repos, cfg, log)
	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	health := NewHealthHandler(cfg.Storage.Driver, map[string]Pinger{"redis": NewRedisCheck(rdb)})

	return &testServer{
		router:   NewRouter(NewHandlers(services, health, log), services, tokens, cfg, log),
		tokens:   tokens,
		services: services,
		repos:    repos,
		redis:    mr,
	}
}

// do sends a JSON request authenticated as userID; an empty userID sends no
// Authorization header.
func (s *testServer) do(t *testing.T, method, path, userID string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	return s.doAs(t, method, path, userID, jwt.RoleUser, body, headers...)
}

func (s *testServer) doAs(t *testing.T, method, path, userID, role string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := s.tokens.Generate(userID, role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}

func text(senderID, receiverID, body string) gin.H {
	return gin.H{"senderId": senderID, "receiverId": receiverID, "type": "text", "text": body}
}
