package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"lostfound-api/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	return mapErr(r.db.WithContext(ctx).Create(u).Error)
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, "email = ?", strings.ToLower(email)).Error; err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *UserRepo) ExistsByEmailOrMatricula(ctx context.Context, email, matricula string) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", strings.ToLower(email))
	if matricula != "" {
		q = q.Or("matricula = ?", matricula)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *UserRepo) List(ctx context.Context, f domain.UserFilter) ([]domain.User, int64, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	q := r.db.WithContext(ctx).Model(&domain.User{})
	if s := strings.TrimSpace(f.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ? OR matricula LIKE ?", like, like, like)
	}
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var us []domain.User
	if err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&us).Error; err != nil {
		return nil, 0, err
	}
	return us, total, nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id, name, semestre string) error {
	updates := map[string]any{}
	if name != "" {
		updates["name"] = name
	}
	if semestre != "" {
		updates["semestre"] = semestre
	}
	if len(updates) == 0 {
		return nil
	}
	// MySQL 值未变化时 RowsAffected 为 0，存在性由调用方先校验
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(updates).Error
}

func (r *UserRepo) SetRole(ctx context.Context, id string, role domain.Role) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("role", role).Error
}

func (r *UserRepo) CountByRole(ctx context.Context) (map[domain.Role]int64, error) {
	var rows []struct {
		Role  domain.Role
		Total int64
	}
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Select("role, COUNT(*) AS total").Group("role").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Role]int64, len(rows))
	for _, row := range rows {
		out[row.Role] = row.Total
	}
	return out, nil
}
