package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"journal_chat/internal/config"
	"journal_chat/pkg/chatclient"
	"journal_chat/pkg/logger"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.LogLevel, false)
	defer func() { _ = appLogger.Sync() }()

	client := chatclient.NewClient(cfg.APIURL, cfg.Token, chatclient.WithMaxRetries(cfg.MaxRetries))
	syncer := chatclient.NewSyncer(client, chatclient.SyncerConfig{
		UserID:         cfg.UserID,
		PollInterval:   cfg.PollInterval,
		RequestTimeout: cfg.RequestTimeout,
	}, appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case notice := <-syncer.Notices():
				appLogger.Warn(notice.Message, "error", notice.Err)
			case conversations := <-syncer.Updates():
				for _, c := range conversations {
					appLogger.Info("Conversation",
						"id", c.ID,
						"last", c.LastMessageText,
						"at", c.LastMessageTimestamp,
						"unread", c.UnreadCounts[cfg.UserID],
					)
				}
			}
		}
	}()

	if cfg.Partner != "" {
		if err := syncer.Select(ctx, cfg.Partner); err == nil {
			for _, m := range syncer.View().Messages {
				appLogger.Info("Message", "id", m.ID, "from", m.SenderID, "type", m.Type, "text", m.Text, "deleted", m.IsDeleted)
			}
		}
	}

	appLogger.Info("Polling conversations", "user_id", cfg.UserID, "interval", cfg.PollInterval)
	if err := syncer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Syncer stopped", "error", err)
	}
	syncer.Close()
	appLogger.Info("Syncer exited")
}
