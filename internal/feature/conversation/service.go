package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"lostfound-api/internal/core/auth"
	"lostfound-api/internal/domain"
	"lostfound-api/internal/feature/notification"
	"lostfound-api/pkg/utils"
)

type Service struct {
	convs  domain.ConversationRepository
	items  domain.ItemRepository
	events notification.Publisher
	log    *zap.Logger
	now    func() time.Time
}

func NewService(convs domain.ConversationRepository, items domain.ItemRepository, events notification.Publisher, l *zap.Logger) *Service {
	return &Service{convs: convs, items: items, events: events, log: l, now: time.Now}
}

// GetOrCreate 按 (有序参与者对, 物品) 取会话，不存在则创建；唯一索引兜底并发首次联系
func (s *Service) GetOrCreate(ctx context.Context, sess auth.Session, itemID string) (*domain.Conversation, error) {
	it, err := s.items.FindByID(ctx, itemID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("item not found")
	}
	if err != nil {
		return nil, domain.Internal("load item failed", err)
	}
	if it.IsOwner(sess.UserID) {
		return nil, domain.Validation("cannot message yourself")
	}

	a, b := domain.SortedPair(sess.UserID, it.UserID)
	c, err := s.convs.FindByPair(ctx, a, b, it.ID)
	switch {
	case err == nil:
		return s.load(ctx, c.ID)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, domain.Internal("find conversation failed", err)
	}

	now := s.now()
	c = &domain.Conversation{
		ID:             utils.NewID(),
		ParticipantAID: a,
		ParticipantBID: b,
		ItemID:         it.ID,
		LastMessage:    domain.ConversationOpening,
		LastMessageAt:  now,
		CreatedAt:      now,
	}
	if err := s.convs.Create(ctx, c); err != nil {
		if !errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.Internal("create conversation failed", err)
		}
		// 并发请求先插入成功，读回胜者
		winner, ferr := s.convs.FindByPair(ctx, a, b, it.ID)
		if ferr != nil {
			return nil, domain.Internal("find conversation failed", ferr)
		}
		s.log.Debug("conversation insert lost race", zap.String("conversation", winner.ID))
		c = winner
	}
	return s.load(ctx, c.ID)
}

func (s *Service) load(ctx context.Context, id string) (*domain.Conversation, error) {
	c, err := s.convs.Load(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("conversation not found")
	}
	if err != nil {
		return nil, domain.Internal("load conversation failed", err)
	}
	return c, nil
}

// ListMine 按最近活动倒序
func (s *Service) ListMine(ctx context.Context, sess auth.Session) ([]domain.Conversation, error) {
	cs, err := s.convs.ListForUser(ctx, sess.UserID)
	if err != nil {
		return nil, domain.Internal("list conversations failed", err)
	}
	return cs, nil
}

func (s *Service) participantOf(ctx context.Context, sess auth.Session, id string) (*domain.Conversation, error) {
	c, err := s.convs.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("conversation not found")
	}
	if err != nil {
		return nil, domain.Internal("load conversation failed", err)
	}
	if !c.HasParticipant(sess.UserID) {
		return nil, domain.Forbidden("you are not a participant of this conversation")
	}
	return c, nil
}

// Messages 按时间正序
func (s *Service) Messages(ctx context.Context, sess auth.Session, id string) ([]domain.Message, error) {
	if _, err := s.participantOf(ctx, sess, id); err != nil {
		return nil, err
	}
	ms, err := s.convs.Messages(ctx, id)
	if err != nil {
		return nil, domain.Internal("list messages failed", err)
	}
	return ms, nil
}

func (s *Service) Send(ctx context.Context, sess auth.Session, id, text string) (*domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.Validation("message text is required")
	}
	c, err := s.participantOf(ctx, sess, id)
	if err != nil {
		return nil, err
	}

	m := &domain.Message{
		ID:             utils.NewID(),
		ConversationID: c.ID,
		SenderID:       sess.UserID,
		Text:           text,
		CreatedAt:      s.now(),
	}
	if err := s.convs.AppendMessage(ctx, m, preview(text)); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("conversation not found")
		}
		return nil, domain.Internal("send message failed", err)
	}

	s.events.Publish(ctx, notification.Event{
		Recipient:      c.Other(sess.UserID),
		Type:           domain.NotifyMessage,
		Title:          "Nova mensagem",
		Message:        fmt.Sprintf("Você recebeu uma nova mensagem: %s", preview(text)),
		ItemID:         c.ItemID,
		ConversationID: c.ID,
	})
	return m, nil
}

// preview 按字符而非字节截断
func preview(text string) string {
	r := []rune(text)
	if len(r) <= domain.PreviewLen {
		return text
	}
	return string(r[:domain.PreviewLen])
}
