package middleware

import (
	"errors"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"lostfound-api/internal/core/auth"
	"lostfound-api/internal/domain"
	resp "lostfound-api/internal/transport/http/response"
)

// AuthJWT 校验 Bearer token，回查用户后写入 auth.Session；roles 非空时限定角色
func AuthJWT(j *auth.JWTer, users auth.UserFinder, roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			resp.Abort(c, resp.CodeUnauthorized, "missing token")
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			resp.Abort(c, resp.CodeUnauthorized, "invalid token")
			return
		}
		s, err := auth.Resolve(c.Request.Context(), users, claims)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			resp.Abort(c, resp.CodeUnauthorized, "user not found")
			return
		case err != nil:
			_ = c.Error(err)
			resp.Abort(c, resp.CodeServerError, resp.CodeMsgMap[resp.CodeServerError])
			return
		}
		if len(roles) > 0 && !slices.Contains(roles, s.Role) {
			resp.Abort(c, resp.CodeForbidden, "forbidden")
			return
		}
		auth.SetSession(c, s)
		c.Next()
	}
}
