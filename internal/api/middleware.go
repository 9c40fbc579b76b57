package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"alert-service/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// RequestLoggingMiddleware tags each request with an id (reusing the
// caller's X-Request-ID when present) and logs it once it completes.
func RequestLoggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header(requestIDHeader, requestID)

		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		logger.WithField("request_id", requestID).
			Infof("Request: %s %s, Status: %d, Latency: %v", method, path, status, latency)
	}
}
