package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"lostfound-api/internal/core/auth"
)

var maskedKeys = map[string]bool{
	"password": true, "pwd": true, "token": true, "authorization": true,
	"secret": true, "access_token": true,
}

func maskQuery(q map[string][]string) map[string][]string {
	out := make(map[string][]string, len(q))
	for k, v := range q {
		if maskedKeys[strings.ToLower(k)] {
			v = []string{"****"}
		}
		out[k] = v
	}
	return out
}

func accessLevel(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}

// AccessLog 后台引擎的访问日志；4xx 记 warn，5xx 记 error
func AccessLog(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("rid", c.GetString(KeyRID)),
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.Any("query", maskQuery(c.Request.URL.Query())),
			zap.Int("size", c.Writer.Size()),
		}
		if s, ok := auth.SessionFrom(c); ok {
			fields = append(fields, zap.String("uid", s.UserID), zap.String("role", string(s.Role)))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if ce := l.Check(accessLevel(status), "HTTP"); ce != nil {
			ce.Write(fields...)
		}
	}
}
