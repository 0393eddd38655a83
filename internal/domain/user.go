package domain

import (
	"context"
	"time"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// IsStaff 前台（portaria）人员或管理员
func (r Role) IsStaff() bool { return r == RoleStaff || r == RoleAdmin }

// Cursos 可选专业
var Cursos = []string{
	"Engenharia de Software",
	"Ciência da Computação",
	"Engenharia de Produção",
	"Engenharia Mecânica",
	"Engenharia Civil",
}

type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `gorm:"size:120;not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;size:191;not null" json:"email"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	Matricula    *string   `gorm:"uniqueIndex;size:32" json:"matricula,omitempty"` // staff 可为空
	Curso        string    `gorm:"size:64" json:"curso,omitempty"`
	Semestre     string    `gorm:"size:16" json:"semestre,omitempty"`
	Role         Role      `gorm:"size:16;not null;default:student" json:"role"`
	Reputation   int       `gorm:"not null;default:0" json:"reputation"`
	TotalReturns int       `gorm:"not null;default:0" json:"totalReturns"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// PublicUserColumns 预加载关联用户时只取公开列
var PublicUserColumns = []string{"id", "name", "curso", "semestre", "reputation", "total_returns"}

// UserRef 嵌在物品、会话、消息里对外展示的用户摘要，不含邮箱、学号与角色
type UserRef struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Curso        string `json:"curso,omitempty"`
	Semestre     string `json:"semestre,omitempty"`
	Reputation   int    `json:"reputation"`
	TotalReturns int    `json:"totalReturns"`
}

// Ref nil 安全
func (u *User) Ref() *UserRef {
	if u == nil {
		return nil
	}
	return &UserRef{
		ID: u.ID, Name: u.Name, Curso: u.Curso, Semestre: u.Semestre,
		Reputation: u.Reputation, TotalReturns: u.TotalReturns,
	}
}

// UserFilter 后台用户列表
type UserFilter struct {
	Q      string
	Role   Role
	Offset int
	Limit  int
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmailOrMatricula(ctx context.Context, email, matricula string) (bool, error)
	List(ctx context.Context, f UserFilter) ([]User, int64, error)
	UpdateProfile(ctx context.Context, id, name, semestre string) error
	SetRole(ctx context.Context, id string, role Role) error
	CountByRole(ctx context.Context) (map[Role]int64, error)
}
