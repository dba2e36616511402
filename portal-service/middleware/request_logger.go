package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	applog "insureportal-backend/shared/logger"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// RequestLogger assigns a request id and logs every request when it completes.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestID", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = applog.Error()
		case status >= 400:
			event = applog.Warn()
		default:
			event = applog.Info()
		}

		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" && c.FullPath() != "/ws/forms" {
			path += "?" + raw
		}

		event.Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Int("size", c.Writer.Size())
		if identity := GetIdentity(c); identity != nil {
			event.Str("user_id", identity.UserID.String())
		}
		if len(c.Errors) > 0 {
			event.Str("errors", c.Errors.ByType(gin.ErrorTypePrivate).String())
		}
		event.Msg("HTTP request")
	}
}
