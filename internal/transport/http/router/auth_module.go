package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"lostfound-api/internal/core/auth"
	"lostfound-api/internal/domain"
	"lostfound-api/internal/feature/user"
	httpez "lostfound-api/internal/transport/http/ez"
	mdw "lostfound-api/internal/transport/http/middleware"
)

// authModule /auth/register、/auth/login、/auth/me
type authModule struct {
	users *user.Service
	log   *zap.Logger
	rps   rate.Limit
	burst int
}

func (authModule) Priority() int { return 10 }

type registerIn struct {
	Name      string `json:"name"      binding:"required,max=120"`
	Email     string `json:"email"     binding:"required,email"`
	Password  string `json:"password"  binding:"required,min=6,max=72"`
	Matricula string `json:"matricula" binding:"required,max=32"`
	Curso     string `json:"curso"     binding:"required,curso"`
	Semestre  string `json:"semestre"  binding:"omitempty,max=16"`
}

type loginIn struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (m authModule) MountAPI(pub, authed *gin.RouterGroup) {
	// 登录/注册按 IP 限速
	ezPublic := httpez.New(pub.Group("/auth", mdw.RateLimitPerIP(m.rps, m.burst)), m.log)

	httpez.RegisterAction(ezPublic, httpez.Action[registerIn, *user.AuthResult]{
		Method: http.MethodPost,
		Path:   "/register",
		Binder: httpez.BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, _ auth.Session, in *registerIn) (*user.AuthResult, error) {
			return m.users.Register(c.Request.Context(), user.RegisterInput{
				Name:      in.Name,
				Email:     in.Email,
				Password:  in.Password,
				Matricula: in.Matricula,
				Curso:     in.Curso,
				Semestre:  in.Semestre,
			})
		},
	})

	httpez.RegisterAction(ezPublic, httpez.Action[loginIn, *user.AuthResult]{
		Method: http.MethodPost,
		Path:   "/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ auth.Session, in *loginIn) (*user.AuthResult, error) {
			return m.users.Login(c.Request.Context(), in.Email, in.Password)
		},
	})

	// /me 必须挂在鉴权分组
	ezAuth := httpez.New(authed.Group("/auth"), m.log)
	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, s auth.Session, _ *struct{}) (*domain.User, error) {
			return m.users.Me(c.Request.Context(), s)
		},
	})
}
