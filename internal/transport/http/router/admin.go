package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lostfound-api/internal/domain"
	mdw "lostfound-api/internal/transport/http/middleware"
)

func NewAdminEngine(d Deps) *gin.Engine {
	registerValidators()

	r := gin.New()

	// AccessLog 在 Recovery 外层，panic 的请求也会留下访问日志
	r.Use(commonChain(d.Limits)...)
	r.Use(mdw.AccessLog(d.Log), mdw.Recovery(d.Log))

	// 健康检查
	r.GET("/health", healthHandler(d.Health))

	// Prometheus 指标（仅后台端口暴露）
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 管理端 v1（统一要求 staff/admin 角色，改角色再额外限定 admin）
	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(d.JWT, d.Accounts, domain.RoleStaff, domain.RoleAdmin))
	d.registry().MountAdmin(admin)

	return r
}
