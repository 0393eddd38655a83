package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lostfound-api/internal/core/auth"
	"lostfound-api/internal/domain"
	"lostfound-api/internal/feature/conversation"
	httpez "lostfound-api/internal/transport/http/ez"
)

type conversationModule struct {
	convs *conversation.Service
	log   *zap.Logger
}

func (conversationModule) Priority() int { return 40 }

type openConversationIn struct {
	ItemID string `json:"itemId" binding:"required"`
}

type sendMessageIn struct {
	Text string `json:"text" binding:"max=2000"`
}

func (m conversationModule) MountAPI(_, authed *gin.RouterGroup) {
	ez := httpez.New(authed.Group("/conversations"), m.log)

	httpez.RegisterAction(ez, httpez.Action[openConversationIn, *domain.Conversation]{
		Method: http.MethodPost,
		Path:   "",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, s auth.Session, in *openConversationIn) (*domain.Conversation, error) {
			return m.convs.GetOrCreate(c.Request.Context(), s, in.ItemID)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, []domain.Conversation]{
		Method: http.MethodGet,
		Path:   "",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, s auth.Session, _ *struct{}) ([]domain.Conversation, error) {
			return m.convs.ListMine(c.Request.Context(), s)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, []domain.Message]{
		Method: http.MethodGet,
		Path:   "/:id/messages",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, s auth.Session, _ *struct{}) ([]domain.Message, error) {
			return m.convs.Messages(c.Request.Context(), s, c.Param("id"))
		},
	})

	// 空白文本由业务层判定，保证返回统一的校验错误
	httpez.RegisterAction(ez, httpez.Action[sendMessageIn, *domain.Message]{
		Method: http.MethodPost,
		Path:   "/:id/messages",
		Binder: httpez.BindJSON,
		Auth:   true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, s auth.Session, in *sendMessageIn) (*domain.Message, error) {
			return m.convs.Send(c.Request.Context(), s, c.Param("id"), in.Text)
		},
	})
}
