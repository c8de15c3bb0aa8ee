package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderRequestID  = "X-Request-ID"
	ContextRequestID = "request_id"
)

// RequestID keeps a valid incoming X-Request-ID or generates a new UUID,
// and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)

		if requestID != "" {
			if _, err := uuid.Parse(requestID); err != nil {
				requestID = ""
			}
		}

		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(ContextRequestID, requestID)
		c.Header(HeaderRequestID, requestID)

		c.Next()
	}
}
