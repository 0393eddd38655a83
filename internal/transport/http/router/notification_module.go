package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lostfound-api/internal/core/auth"
	"lostfound-api/internal/domain"
	"lostfound-api/internal/feature/notification"
	httpez "lostfound-api/internal/transport/http/ez"
)

type notificationModule struct {
	notes *notification.Service
	log   *zap.Logger
}

func (notificationModule) Priority() int { return 50 }

func (m notificationModule) MountAPI(_, authed *gin.RouterGroup) {
	ez := httpez.New(authed.Group("/notifications"), m.log)

	httpez.RegisterAction(ez, httpez.Action[struct{}, *notification.Inbox]{
		Method: http.MethodGet,
		Path:   "",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, s auth.Session, _ *struct{}) (*notification.Inbox, error) {
			return m.notes.List(c.Request.Context(), s)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, gin.H]{
		Method: http.MethodPut,
		Path:   "/read-all",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, s auth.Session, _ *struct{}) (gin.H, error) {
			n, err := m.notes.MarkAllRead(c.Request.Context(), s)
			if err != nil {
				return nil, err
			}
			return gin.H{"updated": n}, nil
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, *domain.Notification]{
		Method: http.MethodPut,
		Path:   "/:id/read",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, s auth.Session, _ *struct{}) (*domain.Notification, error) {
			return m.notes.MarkRead(c.Request.Context(), s, c.Param("id"))
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, s auth.Session, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if err := m.notes.Delete(c.Request.Context(), s, id); err != nil {
				return nil, err
			}
			return gin.H{"id": id, "message": "notification deleted"}, nil
		},
	})
}
