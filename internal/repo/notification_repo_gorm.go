package repo

import (
	"context"

	"gorm.io/gorm"

	"lostfound-api/internal/domain"
)

type NotificationRepo struct{ db *gorm.DB }

func NewNotificationRepo(db *gorm.DB) *NotificationRepo { return &NotificationRepo{db: db} }

var _ domain.NotificationRepository = (*NotificationRepo)(nil)

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	return mapErr(r.db.WithContext(ctx).Create(n).Error)
}

func (r *NotificationRepo) FindByID(ctx context.Context, id string) (*domain.Notification, error) {
	var n domain.Notification
	if err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &n, nil
}

func (r *NotificationRepo) ListForUser(ctx context.Context, uid string, limit int) ([]domain.Notification, error) {
	var ns []domain.Notification
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("user_id = ?", uid).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&ns).Error
	return ns, err
}

// read 在 MySQL 中是保留字，条件统一用 map 让 gorm 加引号
func (r *NotificationRepo) CountUnread(ctx context.Context, uid string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where(map[string]any{"user_id": uid, "read": false}).
		Count(&n).Error
	return n, err
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ?", id).
		Update("read", true).Error
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, uid string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where(map[string]any{"user_id": uid, "read": false}).
		Update("read", true)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
