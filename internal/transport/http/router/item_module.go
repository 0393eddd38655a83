package router

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lostfound-api/internal/core/auth"
	"lostfound-api/internal/core/storage"
	"lostfound-api/internal/domain"
	"lostfound-api/internal/feature/item"
	httpez "lostfound-api/internal/transport/http/ez"
)

var staffRoles = []domain.Role{domain.RoleStaff, domain.RoleAdmin}

type itemOp func(ctx context.Context, s auth.Session, id string) (*domain.Item, error)

type itemModule struct {
	items *item.Service
	store *storage.Local
	log   *zap.Logger
}

func (itemModule) Priority() int { return 30 }

// createItemIn 支持 JSON 或 multipart（image 为可选文件）
type createItemIn struct {
	Title       string                `form:"title"       json:"title"       binding:"required,max=200"`
	Description string                `form:"description" json:"description"`
	Category    string                `form:"category"    json:"category"    binding:"required,category"`
	Type        string                `form:"type"        json:"type"        binding:"required,itemtype"`
	Location    string                `form:"location"    json:"location"    binding:"required,max=200"`
	InPortaria  bool                  `form:"inPortaria"  json:"inPortaria"`
	Image       *multipart.FileHeader `form:"image"       json:"-"`
}

type foundQ struct {
	Category string `form:"category"`
	Location string `form:"location"`
	Search   string `form:"search"`
}

type allQ struct {
	Type     string `form:"type"   binding:"omitempty,itemtype"`
	Status   string `form:"status"`
	Category string `form:"category"`
	Location string `form:"location"`
	Search   string `form:"search"`
}

type mineQ struct {
	Type string `form:"type" binding:"omitempty,itemtype"`
}

func (m itemModule) MountAPI(pub, authed *gin.RouterGroup) {
	ezPublic := httpez.New(pub, m.log)
	ezAuth := httpez.New(authed, m.log)

	httpez.RegisterAction(ezPublic, httpez.Action[foundQ, []domain.Item]{
		Method: http.MethodGet,
		Path:   "/items/found",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, _ auth.Session, in *foundQ) ([]domain.Item, error) {
			return m.items.ListFound(c.Request.Context(), item.Filter{
				Category: in.Category, Location: in.Location, Search: in.Search,
			})
		},
	})

	httpez.RegisterAction(ezPublic, httpez.Action[struct{}, *domain.Item]{
		Method: http.MethodGet,
		Path:   "/items/:id",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ auth.Session, _ *struct{}) (*domain.Item, error) {
			return m.items.Get(c.Request.Context(), c.Param("id"))
		},
	})

	httpez.RegisterAction(ezAuth, httpez.Action[createItemIn, *domain.Item]{
		Method:  http.MethodPost,
		Path:    "/items",
		Binder:  httpez.BindForm,
		Auth:    true,
		Status:  http.StatusCreated,
		Handler: m.create,
	})

	httpez.RegisterAction(ezAuth, httpez.Action[mineQ, []domain.Item]{
		Method: http.MethodGet,
		Path:   "/items/user/my-items",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, s auth.Session, in *mineQ) ([]domain.Item, error) {
			return m.items.ListMine(c.Request.Context(), s, domain.ItemType(in.Type))
		},
	})

	httpez.RegisterAction(ezAuth, httpez.Action[allQ, []domain.Item]{
		Method: http.MethodGet,
		Path:   "/items/admin/all",
		Binder: httpez.BindQuery,
		Roles:  staffRoles,
		Handler: func(c *gin.Context, s auth.Session, in *allQ) ([]domain.Item, error) {
			return m.items.ListAll(c.Request.Context(), s, item.Filter{
				Type:     domain.ItemType(in.Type),
				Status:   domain.ItemStatus(in.Status),
				Category: in.Category,
				Location: in.Location,
				Search:   in.Search,
			})
		},
	})

	// 状态流转类接口共用同一形状：按 :id 操作并返回最新物品
	transition := func(method, path string, roles []domain.Role, op itemOp) {
		httpez.RegisterAction(ezAuth, httpez.Action[struct{}, *domain.Item]{
			Method: method,
			Path:   path,
			Binder: httpez.BindNone,
			Auth:   true,
			Roles:  roles,
			Handler: func(c *gin.Context, s auth.Session, _ *struct{}) (*domain.Item, error) {
				return op(c.Request.Context(), s, c.Param("id"))
			},
		})
	}
	transition(http.MethodPost, "/items/:id/claim", nil, m.items.Claim)
	transition(http.MethodPost, "/items/:id/return", nil, m.items.Return)
	transition(http.MethodPut, "/items/:id/portaria", staffRoles, m.items.MarkPortaria)
	transition(http.MethodPut, "/items/:id/confirm-return", staffRoles, m.items.ConfirmReturn)

	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, gin.H]{
		Method:  http.MethodDelete,
		Path:    "/items/:id",
		Binder:  httpez.BindNone,
		Auth:    true,
		Handler: m.delete,
	})
}

func (m itemModule) create(c *gin.Context, s auth.Session, in *createItemIn) (*domain.Item, error) {
	var image string
	if in.Image != nil {
		url, err := m.store.SaveImage(in.Image)
		switch {
		case errors.Is(err, storage.ErrTooLarge):
			return nil, httpez.TooLarge("image too large")
		case errors.Is(err, storage.ErrUnsupported):
			return nil, domain.Validation("image must be jpeg, png, gif or webp")
		case err != nil:
			return nil, domain.Internal("save image failed", err)
		}
		image = url
	}

	it, err := m.items.Create(c.Request.Context(), s, item.CreateInput{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Type:        domain.ItemType(in.Type),
		Location:    in.Location,
		InPortaria:  in.InPortaria,
		Image:       image,
	})
	if err != nil && image != "" {
		m.removeImage(image)
	}
	return it, err
}

func (m itemModule) delete(c *gin.Context, s auth.Session, _ *struct{}) (gin.H, error) {
	it, err := m.items.Delete(c.Request.Context(), s, c.Param("id"))
	if err != nil {
		return nil, err
	}
	m.removeImage(it.Image)
	return gin.H{"id": it.ID, "message": "item deleted"}, nil
}

func (m itemModule) removeImage(url string) {
	if err := m.store.Remove(url); err != nil {
		m.log.Warn("remove image failed", zap.String("image", url), zap.Error(err))
	}
}
