package service

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"journal_chat/internal/config"
	"journal_chat/internal/domain"
	"journal_chat/internal/repository"
	"journal_chat/pkg/logger"
)

type testEnv struct {
	cfg      *config.Config
	repos    *repository.Repositories
	services *Services
	redis    *miniredis.Miniredis
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
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
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	for _, fn := range mutate {
		fn(cfg)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := logger.NewNop()
	repos := repository.NewMemoryRepositories(rdb, cfg.Chat, log)

	return &testEnv{
		cfg:      cfg,
		repos:    repos,
		services: NewServices(repos, cfg, log),
		redis:    mr,
	}
}

func textPayload(t *testing.T, text string) domain.Payload {
	t.Helper()
	p, err := domain.NewTextPayload(text, domain.Attachment{})
	require.NoError(t, err)
	return p
}

func imagePayload(t *testing.T) domain.Payload {
	t.Helper()
	p, err := domain.NewMediaPayload(domain.MessageTypeImage, "", domain.Attachment{FileURL: "https://cdn.example/p.jpg"})
	require.NoError(t, err)
	return p
}

func boolPtr(b bool) *bool {
	return &b
}
