package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"lostfound-api/internal/core/auth"
	"lostfound-api/internal/core/cache"
	"lostfound-api/internal/domain"
	"lostfound-api/pkg/utils"
)

const minPasswordLen = 6

type Options struct {
	EmailDomain string // 为空不限制
	ProfileTTL  time.Duration
}

type Service struct {
	users domain.UserRepository
	jwt   *auth.JWTer
	cache *cache.Cache
	log   *zap.Logger
	opt   Options
}

// NewService c 可为 nil（未配置 redis）
func NewService(users domain.UserRepository, j *auth.JWTer, c *cache.Cache, l *zap.Logger, opt Options) *Service {
	if opt.ProfileTTL <= 0 {
		opt.ProfileTTL = 5 * time.Minute
	}
	return &Service{users: users, jwt: j, cache: c, log: l, opt: opt}
}

type RegisterInput struct {
	Name      string
	Email     string
	Password  string
	Matricula string
	Curso     string
	Semestre  string
}

// Summary 注册/登录返回的用户摘要
type Summary struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Matricula *string     `json:"matricula,omitempty"`
	Curso     string      `json:"curso,omitempty"`
	Role      domain.Role `json:"role"`
}

type AuthResult struct {
	User  Summary `json:"user"`
	Token string  `json:"token"`
}

// PublicProfile GET /users/:id 的公开字段
type PublicProfile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Curso        string    `json:"curso,omitempty"`
	Semestre     string    `json:"semestre,omitempty"`
	Reputation   int       `json:"reputation"`
	TotalReturns int       `json:"totalReturns"`
	CreatedAt    time.Time `json:"createdAt"`
}

func summarize(u *domain.User) Summary {
	return Summary{ID: u.ID, Name: u.Name, Email: u.Email, Matricula: u.Matricula, Curso: u.Curso, Role: u.Role}
}

func profileKey(id string) string { return "user:" + id }

func (s *Service) validateRegister(in *RegisterInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Matricula = strings.TrimSpace(in.Matricula)
	in.Semestre = strings.TrimSpace(in.Semestre)

	switch {
	case in.Name == "":
		return domain.Validation("name is required")
	case in.Email == "":
		return domain.Validation("email is required")
	case len(in.Password) < minPasswordLen:
		return domain.Validation(fmt.Sprintf("password must have at least %d characters", minPasswordLen))
	case in.Matricula == "":
		return domain.Validation("matricula is required")
	case !slices.Contains(domain.Cursos, in.Curso):
		return domain.Validation("invalid curso")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return domain.Validation("invalid email")
	}
	if d := s.opt.EmailDomain; d != "" && !strings.HasSuffix(in.Email, "@"+strings.ToLower(d)) {
		return domain.Validation("use your institutional email (@" + d + ")")
	}
	return nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := s.validateRegister(&in); err != nil {
		return nil, err
	}
	exists, err := s.users.ExistsByEmailOrMatricula(ctx, in.Email, in.Matricula)
	if err != nil {
		return nil, domain.Internal("check user failed", err)
	}
	if exists {
		return nil, domain.Validation("email or matricula already registered")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, domain.Internal("hash password failed", err)
	}
	u := &domain.User{
		ID:           utils.NewID(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Matricula:    &in.Matricula,
		Curso:        in.Curso,
		Semestre:     in.Semestre,
		Role:         domain.RoleStudent,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// 并发注册由唯一索引兜底
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.Validation("email or matricula already registered")
		}
		return nil, domain.Internal("create user failed", err)
	}
	s.log.Info("user registered", zap.String("uid", u.ID))
	return s.issue(u)
}

func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Authentication("invalid email or password")
	}
	if err != nil {
		return nil, domain.Internal("load user failed", err)
	}
	if !utils.CheckPassword(password, u.PasswordHash) {
		return nil, domain.Authentication("invalid email or password")
	}
	return s.issue(u)
}

func (s *Service) issue(u *domain.User) (*AuthResult, error) {
	tok, err := s.jwt.Issue(u.ID, string(u.Role))
	if err != nil {
		return nil, domain.Internal("issue token failed", err)
	}
	return &AuthResult{User: summarize(u), Token: tok}, nil
}

func (s *Service) find(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("user not found")
	}
	if err != nil {
		return nil, domain.Internal("load user failed", err)
	}
	return u, nil
}

func (s *Service) Me(ctx context.Context, sess auth.Session) (*domain.User, error) {
	return s.find(ctx, sess.UserID)
}

// Profile 公开资料，走 redis 缓存
func (s *Service) Profile(ctx context.Context, id string) (*PublicProfile, error) {
	p, err := cache.GetOrLoadJSON(s.cache, ctx, profileKey(id), s.opt.ProfileTTL,
		func(ctx context.Context) (*PublicProfile, error) {
			u, err := s.find(ctx, id)
			if err != nil {
				return nil, err
			}
			return &PublicProfile{
				ID: u.ID, Name: u.Name, Curso: u.Curso, Semestre: u.Semestre,
				Reputation: u.Reputation, TotalReturns: u.TotalReturns, CreatedAt: u.CreatedAt,
			}, nil
		})
	if err != nil {
		if domain.KindOf(err) != domain.KindInternal {
			return nil, err
		}
		return nil, domain.Internal("load profile failed", err)
	}
	return p, nil
}

type UpdateInput struct {
	Name     string
	Semestre string
}

func (s *Service) UpdateProfile(ctx context.Context, sess auth.Session, in UpdateInput) (*domain.User, error) {
	if _, err := s.find(ctx, sess.UserID); err != nil {
		return nil, err
	}
	name, sem := strings.TrimSpace(in.Name), strings.TrimSpace(in.Semestre)
	if err := s.users.UpdateProfile(ctx, sess.UserID, name, sem); err != nil {
		return nil, domain.Internal("update profile failed", err)
	}
	s.invalidate(ctx, sess.UserID)
	return s.find(ctx, sess.UserID)
}

func (s *Service) invalidate(ctx context.Context, uid string) {
	if err := s.cache.Invalidate(ctx, profileKey(uid)); err != nil {
		s.log.Warn("profile cache invalidate failed", zap.String("uid", uid), zap.Error(err))
	}
}

// ---- 后台 ----

type Page struct {
	Items []domain.User `json:"items"`
	Total int64         `json:"total"`
}

func (s *Service) List(ctx context.Context, sess auth.Session, f domain.UserFilter) (*Page, error) {
	if !sess.IsStaff() {
		return nil, domain.Forbidden("staff only")
	}
	if f.Role != "" && !f.Role.Valid() {
		return nil, domain.Validation("invalid role")
	}
	us, total, err := s.users.List(ctx, f)
	if err != nil {
		return nil, domain.Internal("list users failed", err)
	}
	return &Page{Items: us, Total: total}, nil
}

// SetRole 仅 admin；新角色在下次登录签发 token 后生效
func (s *Service) SetRole(ctx context.Context, sess auth.Session, id string, role domain.Role) (*domain.User, error) {
	if sess.Role != domain.RoleAdmin {
		return nil, domain.Forbidden("admin only")
	}
	if !role.Valid() {
		return nil, domain.Validation("invalid role")
	}
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	if err := s.users.SetRole(ctx, id, role); err != nil {
		return nil, domain.Internal("set role failed", err)
	}
	s.log.Info("role changed", zap.String("uid", id), zap.String("role", string(role)), zap.String("by", sess.UserID))
	return s.find(ctx, id)
}

func (s *Service) CountByRole(ctx context.Context) (map[domain.Role]int64, error) {
	m, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, domain.Internal("count users failed", err)
	}
	return m, nil
}
