package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"journal_chat/internal/config"
	"journal_chat/internal/handler"
	"journal_chat/internal/repository"
	"journal_chat/internal/service"
	"journal_chat/pkg/jwt"
	"journal_chat/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Log.Level, cfg.IsProduction())
	defer func() { _ = appLogger.Sync() }()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established")

	checks := map[string]handler.Pinger{"redis": handler.NewRedisCheck(rdb)}

	var repos *repository.Repositories
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		appLogger.Warn("Using in-memory message store; data is lost on restart")
		repos = repository.NewMemoryRepositories(rdb, cfg.Chat, appLogger)
	default:
		dbPool, err := connectPostgres(cfg.Database)
		if err != nil {
			appLogger.Fatal("Failed to connect to database", "error", err)
		}
		defer dbPool.Close()
		appLogger.Info("Database connection established")

		if err := repository.Migrate(context.Background(), dbPool); err != nil {
			appLogger.Fatal("Failed to apply schema", "error", err)
		}

		checks["postgres"] = dbPool
		repos = repository.NewRepositories(dbPool, rdb, cfg.Chat, appLogger)
	}

	services := service.NewServices(repos, cfg, appLogger)
	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)

	handlers := handler.NewHandlers(services, handler.NewHealthHandler(cfg.Storage.Driver, checks), appLogger)
	router := handler.NewRouter(handlers, services, tokens, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server", "addr", srv.Addr, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

func connectPostgres(cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConnections)
	}
	poolCfg.MaxConnIdleTime = cfg.MaxIdleTime
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
