package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"journal_chat/pkg/jwt"
	"journal_chat/pkg/logger"
)

const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
)

type AuthMiddleware struct {
	tokens *jwt.Manager
	log    logger.Logger
}

func NewAuthMiddleware(tokens *jwt.Manager, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		log:    log,
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := m.tokens.Parse(parts[1])
		if err != nil {
			m.log.Debug("Rejected bearer token", "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID())
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextUserRole) != jwt.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin role required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, or "" outside RequireAuth.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
