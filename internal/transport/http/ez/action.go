package ez

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"lostfound-api/internal/core/auth"
	"lostfound-api/internal/domain"
	resp "lostfound-api/internal/transport/http/response"
)

type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ { return EZ{g: g, log: l} }

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindForm  Binder = "form"  // 按 Content-Type 绑定，支持 multipart 文件
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

// 传输层错误；业务错误用 domain.Error
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func TooLarge(msg string) error     { return &AErr{Code: resp.CodeTooLarge, Msg: msg} }

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string        // "GET" | "POST" | "PUT" | "DELETE"
	Path    string        // 例："/items/:id/claim"
	Binder  Binder        // 绑定方式
	Auth    bool          // 是否要求登录
	Roles   []domain.Role // 限定角色（可选）
	Status  int           // 成功时的 HTTP 状态，默认 200
	Handler func(c *gin.Context, s auth.Session, in *I) (O, error)
}

// RegisterAction 在当前 EZ 下注册动作接口
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}

	h := func(c *gin.Context) {
		// 1) 鉴权/角色
		sess, ok := auth.SessionFrom(c)
		if (a.Auth || len(a.Roles) > 0) && !ok {
			resp.Abort(c, resp.CodeUnauthorized, "unauthorized")
			return
		}
		if len(a.Roles) > 0 && !slices.Contains(a.Roles, sess.Role) {
			resp.Abort(c, resp.CodeForbidden, "forbidden")
			return
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		case BindForm:
			bindErr = c.ShouldBind(&in)
		default: // BindNone: 不绑定
		}
		if bindErr != nil {
			e.fail(c, bindError(bindErr))
			return
		}

		// 3) 执行
		out, err := a.Handler(c, sess, &in)
		if err != nil {
			e.fail(c, err)
			return
		}
		c.JSON(status, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}

// fail 统一错误映射；500 不回显内部信息
func (e EZ) fail(c *gin.Context, err error) {
	code, msg := Classify(err)
	if code >= resp.CodeServerError {
		e.log.Error("action failed",
			zap.String("path", c.FullPath()),
			zap.String("rid", c.GetString("rid")),
			zap.Error(err))
	}
	resp.Abort(c, code, msg)
}

// Classify 错误 → (code, msg)
func Classify(err error) (int, string) {
	var ae *AErr
	if errors.As(err, &ae) {
		return ae.Code, ae.Error()
	}
	var de *domain.Error
	if errors.As(err, &de) {
		switch de.Kind {
		case domain.KindValidation, domain.KindInvalidState:
			return resp.CodeBadRequest, de.Error()
		case domain.KindAuthentication:
			return resp.CodeUnauthorized, de.Error()
		case domain.KindForbidden:
			return resp.CodeForbidden, de.Error()
		case domain.KindNotFound:
			return resp.CodeNotFound, de.Error()
		}
	}
	return resp.CodeServerError, resp.CodeMsgMap[resp.CodeServerError]
}

func bindError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return TooLarge("request body too large")
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe := ves[0]
		return &AErr{
			Code: resp.CodeBadRequest,
			Msg:  fmt.Sprintf("%s failed on '%s' validation", lowerFirst(fe.Field()), fe.Tag()),
			Err:  err,
		}
	}
	return &AErr{Code: resp.CodeBadRequest, Msg: "invalid request body", Err: err}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
