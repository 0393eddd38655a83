package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"lostfound-api/internal/core/auth"
	"lostfound-api/internal/core/config"
	"lostfound-api/internal/core/server"
	"lostfound-api/internal/core/storage"
	"lostfound-api/internal/feature/conversation"
	"lostfound-api/internal/feature/item"
	"lostfound-api/internal/feature/notification"
	"lostfound-api/internal/feature/user"
	mdw "lostfound-api/internal/transport/http/middleware"
)

// Deps 两个引擎共用的依赖
type Deps struct {
	Log           *zap.Logger
	JWT           *auth.JWTer
	Accounts      auth.UserFinder // 鉴权回查用户，角色以库为准
	Users         *user.Service
	Items         *item.Service
	Conversations *conversation.Service
	Notifications *notification.Service
	Store         *storage.Local
	Limits        config.Limits
	AllowOrigins  []string
	Health        func(ctx context.Context) error // 可为空
}

func (d Deps) registry() *Registry {
	lim := limitsOrDefault(d.Limits)
	reg := &Registry{}
	reg.Register(
		authModule{users: d.Users, log: d.Log, rps: rate.Limit(lim.AuthRPS), burst: lim.AuthBurst},
		userModule{users: d.Users, items: d.Items, log: d.Log},
		itemModule{items: d.Items, store: d.Store, log: d.Log},
		conversationModule{convs: d.Conversations, log: d.Log},
		notificationModule{notes: d.Notifications, log: d.Log},
	)
	return reg
}

// limitsOrDefault 零值配置回落到安全默认值
func limitsOrDefault(lim config.Limits) config.Limits {
	if lim.RPS <= 0 {
		lim.RPS, lim.Burst = 200, 400
	}
	if lim.AuthRPS <= 0 {
		lim.AuthRPS, lim.AuthBurst = 5, 10
	}
	if lim.MaxConcurrent <= 0 {
		lim.MaxConcurrent = 300
	}
	if lim.TimeoutSec <= 0 {
		lim.TimeoutSec = 10
	}
	if lim.MaxBodyBytes <= 0 {
		lim.MaxBodyBytes = 16 << 20
	}
	return lim
}

// commonChain 两个引擎共享的保护性中间件
func commonChain(lim config.Limits) []gin.HandlerFunc {
	lim = limitsOrDefault(lim)
	return []gin.HandlerFunc{
		mdw.RequestID(),
		mdw.RateLimit(rate.Limit(lim.RPS), lim.Burst),
		mdw.ConcurrencyLimit(lim.MaxConcurrent),
		mdw.MaxBodyBytes(lim.MaxBodyBytes),
		mdw.Timeout(time.Duration(lim.TimeoutSec) * time.Second),
		mdw.Metrics(),
	}
}

func healthHandler(check func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"ok": 0, "error": "database unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ok": 1})
	}
}

func NewAPIEngine(d Deps) *gin.Engine {
	registerValidators()

	r := server.NewRouter(d.Log, server.Options{
		AllowOrigins: d.AllowOrigins,
		RequestIDKey: mdw.KeyRID,
		SkipPaths:    []string{"/health"},
	})
	// multipart 超过该值的部分落临时文件
	r.MaxMultipartMemory = 8 << 20

	// 中间件
	r.Use(commonChain(d.Limits)...)

	// 健康检查
	r.GET("/health", healthHandler(d.Health))

	// 上传的图片
	if d.Store != nil {
		r.Static(d.Store.URLPrefix, d.Store.Dir)
	}

	// 前缀
	api := r.Group("/api/v1")
	authed := api.Group("", mdw.AuthJWT(d.JWT, d.Accounts))
	d.registry().MountAPI(api, authed)

	return r
}
