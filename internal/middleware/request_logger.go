package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"countdowntodo-sync/internal/logging"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "requestID"
)

func RequestIDFromContext(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestLogger tags each request with an id (reusing the caller's when it
// sends one) and logs method, path, status and latency once it completes.
func RequestLogger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		line := "%s %s %s -> %d (%s) owner=%q"
		args := []any{id, c.Request.Method, c.Request.URL.Path, status, time.Since(start).Round(time.Microsecond), OwnerIDFromContext(c)}
		switch {
		case status >= 500:
			logger.Errorf(line, args...)
		case status >= 400:
			logger.Warnf(line, args...)
		default:
			logger.Debugf(line, args...)
		}
	}
}
