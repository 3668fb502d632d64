package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/ctxutil"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/logger"
)

func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		fields = append(fields, ctxutil.LogFields(c.Request.Context())...)
		if clinic := strings.TrimSpace(c.GetHeader("x-clinic-id")); clinic != "" {
			fields = append(fields, "clinic_id", clinic)
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
