package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"journal_chat/internal/config"
	"journal_chat/internal/domain"
	"journal_chat/internal/middleware"
	"journal_chat/internal/service"
	"journal_chat/pkg/jwt"
	"journal_chat/pkg/logger"
)

type Handlers struct {
	Health *HealthHandler
	Chat   *ChatHandler
	Admin  *AdminHandler
}

func NewHandlers(services *service.Services, health *HealthHandler, log logger.Logger) *Handlers {
	return &Handlers{
		Health: health,
		Chat:   NewChatHandler(services, log),
		Admin:  NewAdminHandler(services.Policy, services.Audit, log),
	}
}

// NewRouter wires middleware and routes onto a fresh gin engine.
func NewRouter(
	handlers *Handlers,
	services *service.Services,
	tokens *jwt.Manager,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authMiddleware := middleware.NewAuthMiddleware(tokens, log)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, log)
	sendLimit := rateLimitMiddleware.Limit(domain.RateLimitScopeSend, cfg.Chat.SendRateLimit, cfg.Chat.SendRateWindow)
	shareLimit := rateLimitMiddleware.Limit(domain.RateLimitScopeShare, cfg.Chat.SendRateLimit, cfg.Chat.SendRateWindow)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	router.GET("/health", handlers.Health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	chat := router.Group("/api/chat")
	chat.Use(authMiddleware.RequireAuth())
	{
		chat.GET("/history/:userA/:userB", handlers.Chat.GetHistory)
		chat.GET("/conversations/:userId", handlers.Chat.GetConversations)
		chat.GET("/settings/me", handlers.Chat.MySettings)

		messages := chat.Group("/messages")
		{
			messages.POST("", sendLimit, handlers.Chat.SendMessage)
			messages.POST("/read", handlers.Chat.MarkRead)
			messages.POST("/share", shareLimit, handlers.Chat.Share)
			messages.POST("/:id/edit", handlers.Chat.EditMessage)
			messages.POST("/:id/delete", handlers.Chat.DeleteMessage)
			messages.POST("/:id/forward", sendLimit, handlers.Chat.ForwardMessage)
		}
	}

	admin := router.Group("/api/admin")
	admin.Use(authMiddleware.RequireAuth(), authMiddleware.RequireAdmin())
	{
		admin.GET("/chat-settings", handlers.Admin.GetSettings)
		admin.PUT("/chat-settings/global", handlers.Admin.UpdateGlobal)
		admin.PUT("/chat-settings/users/:userId", handlers.Admin.UpdateUser)
		admin.DELETE("/chat-settings/users/:userId", handlers.Admin.ClearUser)
		admin.GET("/chat-audit", handlers.Admin.MessageAudit)
	}

	return router
}
