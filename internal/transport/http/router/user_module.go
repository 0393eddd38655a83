package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lostfound-api/internal/core/auth"
	"lostfound-api/internal/domain"
	"lostfound-api/internal/feature/item"
	"lostfound-api/internal/feature/user"
	httpez "lostfound-api/internal/transport/http/ez"
)

// userModule 公开资料、资料修改，以及后台用户管理
type userModule struct {
	users *user.Service
	items *item.Service
	log   *zap.Logger
}

func (userModule) Priority() int { return 20 }

type updateMeIn struct {
	Name     string `json:"name"     binding:"omitempty,max=120"`
	Semestre string `json:"semestre" binding:"omitempty,max=16"`
}

func (m userModule) MountAPI(pub, authed *gin.RouterGroup) {
	ezAuth := httpez.New(authed, m.log)
	// 静态段 /users/me 与 /users/:id 可共存
	httpez.RegisterAction(ezAuth, httpez.Action[updateMeIn, *domain.User]{
		Method: http.MethodPut,
		Path:   "/users/me",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, s auth.Session, in *updateMeIn) (*domain.User, error) {
			return m.users.UpdateProfile(c.Request.Context(), s, user.UpdateInput{Name: in.Name, Semestre: in.Semestre})
		},
	})

	ezPublic := httpez.New(pub, m.log)
	httpez.RegisterAction(ezPublic, httpez.Action[struct{}, *user.PublicProfile]{
		Method: http.MethodGet,
		Path:   "/users/:id",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ auth.Session, _ *struct{}) (*user.PublicProfile, error) {
			return m.users.Profile(c.Request.Context(), c.Param("id"))
		},
	})
}

type listUsersQ struct {
	Offset int    `form:"offset,default=0" binding:"min=0"`
	Limit  int    `form:"limit,default=20" binding:"min=0,max=100"`
	Q      string `form:"q"` // 按 email/name/matricula 模糊搜
	Role   string `form:"role" binding:"omitempty,role"`
}

type setRoleIn struct {
	Role string `json:"role" binding:"required,role"`
}

type statsOut struct {
	Users map[domain.Role]int64       `json:"users"`
	Items map[domain.ItemStatus]int64 `json:"items"`
}

func (m userModule) MountAdmin(admin *gin.RouterGroup) {
	ez := httpez.New(admin, m.log)

	// --- GET /admin/v1/users  用户列表 ---
	httpez.RegisterAction(ez, httpez.Action[listUsersQ, *user.Page]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, s auth.Session, in *listUsersQ) (*user.Page, error) {
			return m.users.List(c.Request.Context(), s, domain.UserFilter{
				Q: in.Q, Role: domain.Role(in.Role), Offset: in.Offset, Limit: in.Limit,
			})
		},
	})

	// --- PUT /admin/v1/users/:id/role  仅 admin ---
	httpez.RegisterAction(ez, httpez.Action[setRoleIn, *domain.User]{
		Method: http.MethodPut,
		Path:   "/users/:id/role",
		Binder: httpez.BindJSON,
		Roles:  []domain.Role{domain.RoleAdmin},
		Handler: func(c *gin.Context, s auth.Session, in *setRoleIn) (*domain.User, error) {
			return m.users.SetRole(c.Request.Context(), s, c.Param("id"), domain.Role(in.Role))
		},
	})

	// --- GET /admin/v1/stats ---
	httpez.RegisterAction(ez, httpez.Action[struct{}, statsOut]{
		Method: http.MethodGet,
		Path:   "/stats",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ auth.Session, _ *struct{}) (statsOut, error) {
			// 两个计数互不依赖，并行查询
			var out statsOut
			g, ctx := errgroup.WithContext(c.Request.Context())
			g.Go(func() (err error) {
				out.Users, err = m.users.CountByRole(ctx)
				return err
			})
			g.Go(func() (err error) {
				out.Items, err = m.items.Stats(ctx)
				return err
			})
			if err := g.Wait(); err != nil {
				return statsOut{}, err
			}
			return out, nil
		},
	})
}
