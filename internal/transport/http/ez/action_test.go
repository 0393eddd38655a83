package ez

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lostfound-api/internal/core/auth"
	"lostfound-api/internal/domain"
	resp "lostfound-api/internal/transport/http/response"
)

func init() { gin.SetMode(gin.TestMode) }

type echoIn struct {
	Text string `json:"text" binding:"required"`
}

func newEngine(withSession *auth.Session) (*gin.Engine, EZ) {
	r := gin.New()
	g := r.Group("")
	if withSession != nil {
		g.Use(func(c *gin.Context) { auth.SetSession(c, *withSession) })
	}
	return r, New(g, zap.NewNop())
}

func do(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, resp.Resp) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out resp.Resp
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestActionBindAndStatus(t *testing.T) {
	r, e := newEngine(&auth.Session{UserID: "u1", Role: domain.RoleStudent})
	RegisterAction(e, Action[echoIn, string]{
		Method: http.MethodPost, Path: "/echo", Binder: BindJSON, Auth: true, Status: http.StatusCreated,
		Handler: func(_ *gin.Context, s auth.Session, in *echoIn) (string, error) {
			return s.UserID + ":" + in.Text, nil
		},
	})

	w, out := do(r, http.MethodPost, "/echo", `{"text":"oi"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, out.Success)
	assert.Equal(t, "u1:oi", out.Data)

	w, out = do(r, http.MethodPost, "/echo", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, out.Success)
	assert.Contains(t, out.Msg, "text")
}

func TestActionAuthAndRoles(t *testing.T) {
	anon, e := newEngine(nil)
	RegisterAction(e, Action[struct{}, string]{
		Method: http.MethodGet, Path: "/staff", Roles: []domain.Role{domain.RoleStaff},
		Handler: func(*gin.Context, auth.Session, *struct{}) (string, error) { return "ok", nil },
	})
	w, _ := do(anon, http.MethodGet, "/staff", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	student, e := newEngine(&auth.Session{UserID: "u1", Role: domain.RoleStudent})
	RegisterAction(e, Action[struct{}, string]{
		Method: http.MethodGet, Path: "/staff", Roles: []domain.Role{domain.RoleStaff},
		Handler: func(*gin.Context, auth.Session, *struct{}) (string, error) { return "ok", nil },
	})
	w, _ = do(student, http.MethodGet, "/staff", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.Validation("bad"), http.StatusBadRequest},
		{domain.InvalidState("gone"), http.StatusBadRequest},
		{domain.Authentication("who"), http.StatusUnauthorized},
		{domain.Forbidden("no"), http.StatusForbidden},
		{domain.NotFound("none"), http.StatusNotFound},
		{domain.Internal("db down", errors.New("dial")), http.StatusInternalServerError},
		{TooLarge("big"), http.StatusRequestEntityTooLarge},
		{errors.New("raw"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		code, _ := Classify(c.err)
		assert.Equal(t, c.code, code, c.err.Error())
	}

	_, msg := Classify(domain.Internal("db down", errors.New("dial tcp 10.0.0.1")))
	require.Equal(t, "Internal Server Error", msg)
}
