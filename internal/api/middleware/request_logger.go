package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-Id"

// RequestLogger logs one line per request. Liveness probes (/ping and the voice pipeline's GET
// on the webhook) log at debug so they do not drown out interview traffic.
func RequestLogger(l *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(requestIDHeader, reqID)
		c.Set("request_id", reqID)

		c.Next()

		status := c.Writer.Status()
		fields := logrus.Fields{
			"request_id": reqID,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
		}
		if userID, ok := c.Get("user_id"); ok {
			fields["user_id"] = userID
		}
		if sid := interviewSessionID(c); sid != "" {
			fields["session_id"] = sid
		}
		entry := l.WithFields(fields)
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		case isProbe(c):
			entry.Debug("request")
		default:
			entry.Info("request")
		}
	}
}

// interviewSessionID picks the interview id from wherever the route carries it.
func interviewSessionID(c *gin.Context) string {
	if id := c.Param("id"); id != "" {
		return id
	}
	if id := c.Query("interviewSessionId"); id != "" {
		return id
	}
	return c.Query("sessionId")
}

func isProbe(c *gin.Context) bool {
	switch c.FullPath() {
	case "/ping":
		return true
	case "/api/voice-agent":
		return c.Request.Method == http.MethodGet
	}
	return false
}
