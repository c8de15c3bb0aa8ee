package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"journal_chat/internal/domain"
	"journal_chat/internal/service"
	"journal_chat/pkg/logger"
)

type RateLimitMiddleware struct {
	rateLimitService service.RateLimitService
	log              logger.Logger
}

func NewRateLimitMiddleware(rateLimitService service.RateLimitService, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		log:              log,
	}
}

// Limit allows limit requests per window for each authenticated user, or
// per client IP when no user is known. Redis failures let the request through.
func (m *RateLimitMiddleware) Limit(scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := UserID(c)
		if key == "" {
			key = c.ClientIP()
		}
		rule := domain.RateLimitRule{Scope: scope, Key: key, Limit: limit, Window: window}

		allowed, remaining, err := m.rateLimitService.Allow(c.Request.Context(), rule)
		if err != nil {
			m.log.Error("Rate limit check failed", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}
