package server

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	AllowOrigins []string // 为空或含 "*" 时放行所有来源
	RequestIDKey string   // gin.Context 中请求 ID 的 key，写入访问日志
	SkipPaths    []string // 不记访问日志的路径，如 /health
}

// NewRouter 带 zap 访问日志、panic 恢复与 CORS 的 gin 引擎
func NewRouter(l *zap.Logger, opt Options) *gin.Engine {
	r := gin.New()
	r.Use(ginzap.GinzapWithConfig(l, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  opt.SkipPaths,
		Context: func(c *gin.Context) []zapcore.Field {
			if opt.RequestIDKey == "" {
				return nil
			}
			return []zapcore.Field{zap.String("rid", c.GetString(opt.RequestIDKey))}
		},
	}))
	r.Use(ginzap.RecoveryWithZap(l, true))
	r.Use(cors.New(corsConfig(opt.AllowOrigins)))
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func BuildServer(addr string, handler http.Handler, rt, wt, it time.Duration) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    rt,
		WriteTimeout:   wt,
		IdleTimeout:    it,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
}

func Addr(host string, port int) string { return fmt.Sprintf("%s:%d", host, port) }

// HumanURL 启动日志里可点击的地址
func HumanURL(host string, port int) string {
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}
