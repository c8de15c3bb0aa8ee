package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"journal_chat/pkg/errors"
	"journal_chat/pkg/logger"
)

// ErrorHandler renders the last error pushed with c.Error as {"error": msg}.
// Unclassified errors are logged and reported as a generic 500.
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last()
		statusCode := errors.HTTPStatusFromError(err.Err)

		message := err.Error()
		if statusCode >= http.StatusInternalServerError {
			log.Error("Request failed", "error", err.Err, "path", c.FullPath(), "request_id", c.GetString(ContextRequestID))
			message = "Internal server error"
		}

		c.JSON(statusCode, gin.H{
			"error": message,
		})
	}
}
