package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/accounthub/pkg/logger"
	"github.com/charlesng35/accounthub/pkg/redact"
)

const maxLoggedBody = 16 << 10

// Logger writes a concise structured access log for each request. At debug level
// JSON and form bodies are included with sensitive fields masked.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		log := logger.WithModule("http")

		var body zap.Field
		if log.Core().Enabled(zap.DebugLevel) {
			body = captureBody(c)
		}

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", GetRequestID(c)),
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if body.Key != "" {
			fields = append(fields, body)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		log.Info("request", fields...)
	}
}

// captureBody reads at most maxLoggedBody bytes and puts them back in front of
// the remaining body so handlers still see the full payload.
func captureBody(c *gin.Context) zap.Field {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return zap.Field{}
	}

	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if mediaType != gin.MIMEJSON && mediaType != gin.MIMEPOSTForm {
		return zap.Field{}
	}

	head, err := io.ReadAll(io.LimitReader(c.Request.Body, maxLoggedBody))
	c.Request.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(head), c.Request.Body), Closer: c.Request.Body}
	if err != nil || len(head) == 0 || len(head) == maxLoggedBody {
		return zap.Field{}
	}

	switch mediaType {
	case gin.MIMEJSON:
		var payload map[string]any
		if err := json.Unmarshal(head, &payload); err != nil {
			return zap.Field{}
		}
		return logger.Redacted("body", payload)
	default:
		values, err := url.ParseQuery(string(head))
		if err != nil {
			return zap.Field{}
		}
		return logger.Redacted("body", redact.FlattenValues(values))
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}
