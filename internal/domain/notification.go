package domain

import (
	"context"
	"time"
)

type NotificationType string

const (
	NotifyMatch    NotificationType = "match"
	NotifyMessage  NotificationType = "message"
	NotifyClaim    NotificationType = "claim"
	NotifyReturn   NotificationType = "return"
	NotifyPortaria NotificationType = "portaria"
	NotifySystem   NotificationType = "system"
)

type Notification struct {
	ID             string           `gorm:"primaryKey;size:36" json:"id"`
	UserID         string           `gorm:"size:36;not null;index:idx_notifications_user_read_created,priority:1" json:"userId"`
	Type           NotificationType `gorm:"size:16;not null" json:"type"`
	Title          string           `gorm:"size:200;not null" json:"title"`
	Message        string           `gorm:"type:text;not null" json:"message"`
	ItemID         *string          `gorm:"size:36;index" json:"itemId,omitempty"`
	Item           *Item            `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	ConversationID *string          `gorm:"size:36;index" json:"conversationId,omitempty"`
	Read           bool             `gorm:"not null;default:false;index:idx_notifications_user_read_created,priority:2" json:"read"`
	CreatedAt      time.Time        `gorm:"index:idx_notifications_user_read_created,priority:3" json:"createdAt"`
}

func (Notification) TableName() string { return "notifications" }

type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	FindByID(ctx context.Context, id string) (*Notification, error)
	ListForUser(ctx context.Context, uid string, limit int) ([]Notification, error)
	CountUnread(ctx context.Context, uid string) (int64, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, uid string) (int64, error)
	Delete(ctx context.Context, id string) error
}
