package vpserve

import (
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vplabeler/core/internal/logging"
)

const (
	requestIDHeader     = "X-Request-ID"
	contextKeyRequestID = "request_id"
)

type loggingMiddleware struct {
	logger *logging.Logger
}

func newLoggingMiddleware(log *logging.Logger) *loggingMiddleware {
	return &loggingMiddleware{logger: log}
}

func (m *loggingMiddleware) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(contextKeyRequestID, requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		logArgs := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", duration.Milliseconds(),
		}

		switch {
		case status >= 500:
			m.logger.Error("request completed", logArgs...)
		default:
			m.logger.Info("request completed", logArgs...)
		}
	}
}

func getRequestID(c *gin.Context) string {
	v, ok := c.Get(contextKeyRequestID)
	if !ok {
		return ""
	}
	return v.(string)
}

type recoveryMiddleware struct {
	logger *logging.Logger
}

func newRecoveryMiddleware(log *logging.Logger) *recoveryMiddleware {
	return &recoveryMiddleware{logger: log}
}

func (m *recoveryMiddleware) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("panic recovered",
					"request_id", getRequestID(c),
					"path", c.Request.URL.Path,
					"error", r,
					"stack", string(debug.Stack()),
				)
				respondAPIError(c, ErrInternal)
			}
		}()
		c.Next()
	}
}
