package notification

import (
	"context"

	"lostfound-api/internal/domain"
)

// Event 业务事务提交后发布，由 Writer 异步落库
type Event struct {
	Recipient      string
	Type           domain.NotificationType
	Title          string
	Message        string
	ItemID         string
	ConversationID string
}

// Publisher 发布永不向调用方返回错误
type Publisher interface {
	Publish(ctx context.Context, evs ...Event)
}

// Discard 丢弃所有事件
type Discard struct{}

func (Discard) Publish(context.Context, ...Event) {}
