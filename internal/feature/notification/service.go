package notification

import (
	"context"
	"errors"

	"lostfound-api/internal/core/auth"
	"lostfound-api/internal/domain"
)

const listLimit = 50

type Service struct {
	repo domain.NotificationRepository
}

func NewService(repo domain.NotificationRepository) *Service { return &Service{repo: repo} }

type Inbox struct {
	Items  []domain.Notification `json:"notifications"`
	Unread int64                 `json:"unreadCount"`
}

func (s *Service) List(ctx context.Context, sess auth.Session) (*Inbox, error) {
	items, err := s.repo.ListForUser(ctx, sess.UserID, listLimit)
	if err != nil {
		return nil, domain.Internal("list notifications failed", err)
	}
	unread, err := s.repo.CountUnread(ctx, sess.UserID)
	if err != nil {
		return nil, domain.Internal("count unread failed", err)
	}
	return &Inbox{Items: items, Unread: unread}, nil
}

// owned 仅接收人可操作
func (s *Service) owned(ctx context.Context, sess auth.Session, id string) (*domain.Notification, error) {
	n, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("notification not found")
	}
	if err != nil {
		return nil, domain.Internal("load notification failed", err)
	}
	if n.UserID != sess.UserID {
		return nil, domain.Forbidden("access denied")
	}
	return n, nil
}

func (s *Service) MarkRead(ctx context.Context, sess auth.Session, id string) (*domain.Notification, error) {
	n, err := s.owned(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if n.Read {
		return n, nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return nil, domain.Internal("mark read failed", err)
	}
	n.Read = true
	return n, nil
}

func (s *Service) MarkAllRead(ctx context.Context, sess auth.Session) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, sess.UserID)
	if err != nil {
		return 0, domain.Internal("mark all read failed", err)
	}
	return n, nil
}

func (s *Service) Delete(ctx context.Context, sess auth.Session, id string) error {
	if _, err := s.owned(ctx, sess, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Internal("delete notification failed", err)
	}
	return nil
}
