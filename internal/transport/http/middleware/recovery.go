package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	resp "lostfound-api/internal/transport/http/response"
)

// Recovery 捕获 panic，记录后返回 500
func Recovery(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				l.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("path", c.Request.URL.Path),
					zap.String("rid", c.GetString(KeyRID)),
					zap.Stack("stack"))
				resp.Abort(c, resp.CodeServerError, "internal error")
			}
		}()
		c.Next()
	}
}
