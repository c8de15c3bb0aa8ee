package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"journal_chat/pkg/logger"
)

func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		fields := []interface{}{
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"request_id", c.GetString(ContextRequestID),
		}
		if userID := UserID(c); userID != "" {
			fields = append(fields, "user_id", userID)
		}

		if c.Writer.Status() >= 500 {
			log.Warn("HTTP request", fields...)
			return
		}
		log.Info("HTTP request", fields...)
	}
}
