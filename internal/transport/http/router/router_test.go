package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"lostfound-api/internal/core/auth"
	"lostfound-api/internal/core/config"
	"lostfound-api/internal/core/database"
	"lostfound-api/internal/core/storage"
	"lostfound-api/internal/domain"
	"lostfound-api/internal/feature/conversation"
	"lostfound-api/internal/feature/item"
	"lostfound-api/internal/feature/notification"
	"lostfound-api/internal/feature/user"
	"lostfound-api/internal/repo"
)

func init() { gin.SetMode(gin.TestMode) }

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

type harness struct {
	t     *testing.T
	api   *gin.Engine
	admin *gin.Engine
	users *repo.UserRepo
	db    *gorm.DB
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := database.OpenTest(t)
	l := zap.NewNop()
	j := &auth.JWTer{Secret: []byte("test"), Issuer: "lostfound-test", TTL: time.Hour}

	users := repo.NewUserRepo(db)
	items := repo.NewItemRepo(db)
	notes := repo.NewNotificationRepo(db)
	pub := notification.Inline{W: notification.NewWriter(notes, l)}
	store, err := storage.NewLocal(t.TempDir(), "/uploads", 1<<20)
	require.NoError(t, err)

	d := Deps{
		Log:           l,
		JWT:           j,
		Accounts:      users,
		Users:         user.NewService(users, j, nil, l, user.Options{EmailDomain: "alu.ufc.br"}),
		Items:         item.NewService(items, pub, l, item.Reputation{Points: 10}),
		Conversations: conversation.NewService(repo.NewConversationRepo(db), items, pub, l),
		Notifications: notification.NewService(notes),
		Store:         store,
		Limits:        config.Limits{AuthRPS: 1000, AuthBurst: 1000},
		Health: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	return &harness{t: t, api: NewAPIEngine(d), admin: NewAdminEngine(d), users: users, db: db}
}

func (h *harness) call(engine http.Handler, method, path, token string, body any) (int, envelope) {
	h.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return h.serve(engine, req)
}

func (h *harness) serve(engine http.Handler, req *http.Request) (int, envelope) {
	h.t.Helper()
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	var env envelope
	if w.Header().Get("Content-Type") != "" && bytes.HasPrefix(w.Body.Bytes(), []byte("{")) {
		require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v), string(env.Data))
	return v
}

// register 注册并返回 (uid, token)
func (h *harness) register(name, matricula string) (string, string) {
	h.t.Helper()
	code, env := h.call(h.api, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": name, "email": name + "@alu.ufc.br", "password": "segredo1",
		"matricula": matricula, "curso": "Engenharia de Software", "semestre": "2",
	})
	require.Equal(h.t, http.StatusCreated, code, env.Msg)
	res := decode[user.AuthResult](h.t, env)
	return res.User.ID, res.Token
}

func (h *harness) promote(uid, name string, role domain.Role) string {
	h.t.Helper()
	require.NoError(h.t, h.users.SetRole(context.Background(), uid, role))
	code, env := h.call(h.api, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": name + "@alu.ufc.br", "password": "segredo1",
	})
	require.Equal(h.t, http.StatusOK, code, env.Msg)
	return decode[user.AuthResult](h.t, env).Token
}

func (h *harness) createItem(token string) domain.Item {
	h.t.Helper()
	code, env := h.call(h.api, http.MethodPost, "/api/v1/items", token, gin.H{
		"title": "Fone JBL Preto", "description": "fone bluetooth", "category": "Eletrônicos",
		"type": "found", "location": "Biblioteca",
	})
	require.Equal(h.t, http.StatusCreated, code, env.Msg)
	return decode[domain.Item](h.t, env)
}

func TestFoundItemClaimAndStaffReturn(t *testing.T) {
	h := newHarness(t)
	_, aTok := h.register("alice", "1001")
	bID, bTok := h.register("bruno", "1002")
	sID, _ := h.register("sara", "1003")
	sTok := h.promote(sID, "sara", domain.RoleStaff)

	it := h.createItem(aTok)
	assert.Equal(t, domain.StatusActive, it.Status)

	code, env := h.call(h.api, http.MethodGet, "/api/v1/items/found?category=Eletr%C3%B4nicos&search=jbl", "", nil)
	require.Equal(t, http.StatusOK, code)
	found := decode[[]domain.Item](t, env)
	require.Len(t, found, 1)
	assert.Equal(t, it.ID, found[0].ID)
	require.NotNil(t, found[0].User)
	assert.Equal(t, "alice", found[0].User.Name)

	code, env = h.call(h.api, http.MethodPost, "/api/v1/items/"+it.ID+"/claim", bTok, nil)
	require.Equal(t, http.StatusOK, code, env.Msg)
	claimed := decode[domain.Item](t, env)
	assert.Equal(t, domain.StatusClaimed, claimed.Status)
	require.NotNil(t, claimed.ClaimedByID)
	assert.Equal(t, bID, *claimed.ClaimedByID)

	code, _ = h.call(h.api, http.MethodPut, "/api/v1/items/"+it.ID+"/confirm-return", bTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = h.call(h.api, http.MethodPut, "/api/v1/items/"+it.ID+"/confirm-return", sTok, nil)
	require.Equal(t, http.StatusOK, code, env.Msg)
	assert.Equal(t, domain.StatusReturned, decode[domain.Item](t, env).Status)

	for _, tok := range []string{aTok, bTok} {
		code, env = h.call(h.api, http.MethodGet, "/api/v1/notifications", tok, nil)
		require.Equal(t, http.StatusOK, code)
		inbox := decode[notification.Inbox](t, env)
		var got bool
		for _, n := range inbox.Items {
			got = got || n.Type == domain.NotifyReturn
		}
		assert.True(t, got)
	}

	code, env = h.call(h.api, http.MethodGet, "/api/v1/items/found", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]domain.Item](t, env))
}

func TestPublicItemRoutesHidePersonalData(t *testing.T) {
	h := newHarness(t)
	_, aTok := h.register("alice", "3001")
	_, bTok := h.register("bruno", "3002")
	it := h.createItem(aTok)

	code, env := h.call(h.api, http.MethodGet, "/api/v1/items/found", "", nil)
	require.Equal(t, http.StatusOK, code)
	for _, leak := range []string{"email", "@alu.ufc.br", "matricula", "3001", `"role"`} {
		assert.NotContains(t, string(env.Data), leak)
	}
	found := decode[[]domain.Item](t, env)
	require.Len(t, found, 1)
	require.NotNil(t, found[0].User)
	assert.Equal(t, "alice", found[0].User.Name)
	assert.Equal(t, "Engenharia de Software", found[0].User.Curso)

	code, env = h.call(h.api, http.MethodPost, "/api/v1/items/"+it.ID+"/claim", bTok, nil)
	require.Equal(t, http.StatusOK, code, env.Msg)

	code, env = h.call(h.api, http.MethodGet, "/api/v1/items/"+it.ID, "", nil)
	require.Equal(t, http.StatusOK, code)
	for _, leak := range []string{"email", "@alu.ufc.br", "matricula", "3001", "3002", `"role"`} {
		assert.NotContains(t, string(env.Data), leak)
	}
	got := decode[domain.Item](t, env)
	require.NotNil(t, got.ClaimedBy)
	assert.Equal(t, "bruno", got.ClaimedBy.Name)
}

func TestDemotedStaffLosesDeskRights(t *testing.T) {
	h := newHarness(t)
	_, aTok := h.register("alice", "4001")
	_, bTok := h.register("bruno", "4002")
	sID, _ := h.register("sara", "4003")
	sTok := h.promote(sID, "sara", domain.RoleStaff)

	it := h.createItem(aTok)
	code, env := h.call(h.api, http.MethodPost, "/api/v1/items/"+it.ID+"/claim", bTok, nil)
	require.Equal(t, http.StatusOK, code, env.Msg)

	// 旧 token 仍声明 staff，但库中已降级
	require.NoError(t, h.users.SetRole(context.Background(), sID, domain.RoleStudent))

	code, _ = h.call(h.api, http.MethodPut, "/api/v1/items/"+it.ID+"/confirm-return", sTok, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = h.call(h.api, http.MethodPut, "/api/v1/items/"+it.ID+"/portaria", sTok, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = h.call(h.admin, http.MethodGet, "/admin/v1/users", sTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	// 用户被删除后 token 失效
	require.NoError(t, h.db.Delete(&domain.User{}, "id = ?", sID).Error)
	code, _ = h.call(h.api, http.MethodGet, "/api/v1/auth/me", sTok, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestConversationFlow(t *testing.T) {
	h := newHarness(t)
	aID, aTok := h.register("alice", "2001")
	bID, bTok := h.register("bruno", "2002")
	it := h.createItem(aTok)

	code, env := h.call(h.api, http.MethodPost, "/api/v1/conversations", aTok, gin.H{"itemId": it.ID})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "cannot message yourself", env.Msg)

	code, env = h.call(h.api, http.MethodPost, "/api/v1/conversations", bTok, gin.H{"itemId": it.ID})
	require.Equal(t, http.StatusOK, code, env.Msg)
	conv := decode[domain.Conversation](t, env)
	require.Len(t, conv.Participants, 2)
	ids := []string{conv.Participants[0].ID, conv.Participants[1].ID}
	assert.ElementsMatch(t, []string{aID, bID}, ids)
	assert.True(t, ids[0] < ids[1], "participants are sorted")

	code, env = h.call(h.api, http.MethodPost, "/api/v1/conversations", bTok, gin.H{"itemId": it.ID})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, conv.ID, decode[domain.Conversation](t, env).ID)

	code, _ = h.call(h.api, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/messages", bTok, gin.H{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = h.call(h.api, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/messages", bTok, gin.H{"text": "Is this mine?"})
	require.Equal(t, http.StatusCreated, code, env.Msg)
	assert.Equal(t, "Is this mine?", decode[domain.Message](t, env).Text)

	code, env = h.call(h.api, http.MethodGet, "/api/v1/conversations", aTok, nil)
	require.Equal(t, http.StatusOK, code)
	convs := decode[[]domain.Conversation](t, env)
	require.Len(t, convs, 1)
	assert.Equal(t, "Is this mine?", convs[0].LastMessage)

	code, env = h.call(h.api, http.MethodGet, "/api/v1/conversations/"+conv.ID+"/messages", aTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]domain.Message](t, env), 1)

	_, cTok := h.register("carla", "2003")
	code, _ = h.call(h.api, http.MethodGet, "/api/v1/conversations/"+conv.ID+"/messages", cTok, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestNotificationReadState(t *testing.T) {
	h := newHarness(t)
	_, aTok := h.register("alice", "3001")
	_, bTok := h.register("bruno", "3002")
	it := h.createItem(aTok)
	code, _ := h.call(h.api, http.MethodPost, "/api/v1/items/"+it.ID+"/claim", bTok, nil)
	require.Equal(t, http.StatusOK, code)

	code, env := h.call(h.api, http.MethodGet, "/api/v1/notifications", aTok, nil)
	require.Equal(t, http.StatusOK, code)
	inbox := decode[notification.Inbox](t, env)
	require.Len(t, inbox.Items, 1)
	assert.Equal(t, int64(1), inbox.Unread)
	nid := inbox.Items[0].ID

	code, _ = h.call(h.api, http.MethodPut, "/api/v1/notifications/"+nid+"/read", bTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	for i, want := range []float64{1, 0} {
		code, env = h.call(h.api, http.MethodPut, "/api/v1/notifications/read-all", aTok, nil)
		require.Equal(t, http.StatusOK, code, "call %d", i)
		assert.Equal(t, want, decode[map[string]float64](t, env)["updated"])
	}

	code, _ = h.call(h.api, http.MethodDelete, "/api/v1/notifications/"+nid, aTok, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = h.call(h.api, http.MethodDelete, "/api/v1/notifications/"+nid, aTok, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestErrorStatuses(t *testing.T) {
	h := newHarness(t)
	_, aTok := h.register("alice", "4001")
	_, bTok := h.register("bruno", "4002")

	code, _ := h.call(h.api, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = h.call(h.api, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@alu.ufc.br", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = h.call(h.api, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": "alice", "email": "alice@alu.ufc.br", "password": "segredo1",
		"matricula": "9999", "curso": "Engenharia de Software",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = h.call(h.api, http.MethodGet, "/api/v1/items/admin/all", aTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = h.call(h.api, http.MethodGet, "/api/v1/items/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = h.call(h.api, http.MethodPost, "/api/v1/items", aTok, gin.H{
		"title": "x", "category": "Eletrônicos", "type": "stolen", "location": "RU",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	it := h.createItem(aTok)
	code, _ = h.call(h.api, http.MethodPost, "/api/v1/items/"+it.ID+"/claim", aTok, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = h.call(h.api, http.MethodPost, "/api/v1/items/"+it.ID+"/claim", bTok, nil)
	require.Equal(t, http.StatusOK, code)
	code, env := h.call(h.api, http.MethodPost, "/api/v1/items/"+it.ID+"/claim", bTok, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)

	code, _ = h.call(h.api, http.MethodDelete, "/api/v1/items/"+it.ID, bTok, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = h.call(h.api, http.MethodDelete, "/api/v1/items/"+it.ID, aTok, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestCreateItemWithImageAndProfile(t *testing.T) {
	h := newHarness(t)
	aID, aTok := h.register("alice", "5001")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"title": "Carteira", "category": "Documentos", "type": "lost", "location": "RU", "inPortaria": "true",
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("image", "carteira.png")
	require.NoError(t, err)
	_, err = fw.Write(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/items", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+aTok)
	code, env := h.serve(h.api, req)
	require.Equal(t, http.StatusCreated, code, env.Msg)
	it := decode[domain.Item](t, env)
	assert.True(t, it.InPortaria)
	assert.Equal(t, domain.ItemLost, it.Type)
	require.NotEmpty(t, it.Image)

	w := httptest.NewRecorder()
	h.api.ServeHTTP(w, httptest.NewRequest(http.MethodGet, it.Image, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	code, env = h.call(h.api, http.MethodGet, "/api/v1/items/user/my-items?type=lost", aTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]domain.Item](t, env), 1)

	code, env = h.call(h.api, http.MethodPut, "/api/v1/users/me", aTok, gin.H{"semestre": "5"})
	require.Equal(t, http.StatusOK, code, env.Msg)
	code, env = h.call(h.api, http.MethodGet, "/api/v1/users/"+aID, "", nil)
	require.Equal(t, http.StatusOK, code)
	p := decode[user.PublicProfile](t, env)
	assert.Equal(t, "5", p.Semestre)
	assert.NotContains(t, string(env.Data), "alice@alu.ufc.br")
}

func TestAdminEngine(t *testing.T) {
	h := newHarness(t)
	_, aTok := h.register("alice", "6001")
	rootID, _ := h.register("root", "6002")
	rootTok := h.promote(rootID, "root", domain.RoleAdmin)

	code, _ := h.call(h.admin, http.MethodGet, "/admin/v1/users", aTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := h.call(h.admin, http.MethodGet, "/admin/v1/users?q=alice", rootTok, nil)
	require.Equal(t, http.StatusOK, code, env.Msg)
	page := decode[user.Page](t, env)
	require.Equal(t, int64(1), page.Total)

	code, env = h.call(h.admin, http.MethodPut, "/admin/v1/users/"+page.Items[0].ID+"/role", rootTok, gin.H{"role": "staff"})
	require.Equal(t, http.StatusOK, code, env.Msg)
	assert.Equal(t, domain.RoleStaff, decode[domain.User](t, env).Role)

	code, _ = h.call(h.admin, http.MethodPut, "/admin/v1/users/"+page.Items[0].ID+"/role", rootTok, gin.H{"role": "root"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = h.call(h.admin, http.MethodGet, "/admin/v1/stats", rootTok, nil)
	require.Equal(t, http.StatusOK, code)
	stats := decode[statsOut](t, env)
	assert.Equal(t, int64(1), stats.Users[domain.RoleStaff])

	w := httptest.NewRecorder()
	h.admin.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")

	code, _ = h.call(h.api, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
}
