package auth

import (
	"context"

	"github.com/gin-gonic/gin"

	"lostfound-api/internal/domain"
)

const ctxSessionKey = "session"

// Session 当前请求的身份，由鉴权中间件创建后显式传给各业务方法
type Session struct {
	UserID string
	Role   domain.Role
}

func (s Session) IsStaff() bool { return s.Role.IsStaff() }

// UserFinder 鉴权时按 token 中的 uid 回查用户
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// Resolve 角色以库中记录为准，token 里的 role 只作参考；
// 用户已不存在时返回 domain.ErrNotFound
func Resolve(ctx context.Context, users UserFinder, c *Claims) (Session, error) {
	if c.UID == "" {
		return Session{}, domain.ErrNotFound
	}
	u, err := users.FindByID(ctx, c.UID)
	if err != nil {
		return Session{}, err
	}
	return Session{UserID: u.ID, Role: u.Role}, nil
}

func SetSession(c *gin.Context, s Session) { c.Set(ctxSessionKey, s) }

// SessionFrom 未登录时 ok=false
func SessionFrom(c *gin.Context) (Session, bool) {
	v, exists := c.Get(ctxSessionKey)
	if !exists {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok && s.UserID != ""
}
