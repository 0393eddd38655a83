package item

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

const (
	foundLimit = 50
	adminLimit = 100
	mineLimit  = 200
)

// Reputation 确认归还时的加分策略
type Reputation struct {
	Points int
	Apply  bool // false 时只写进通知文案
}

type Service struct {
	items  domain.ItemRepository
	events notification.Publisher
	log    *zap.Logger
	rep    Reputation
	now    func() time.Time
}

func NewService(items domain.ItemRepository, events notification.Publisher, l *zap.Logger, rep Reputation) *Service {
	return &Service{items: items, events: events, log: l, rep: rep, now: time.Now}
}

type CreateInput struct {
	Title       string
	Description string
	Category    string
	Type        domain.ItemType
	Location    string
	InPortaria  bool
	Image       string
}

func (s *Service) Create(ctx context.Context, sess auth.Session, in CreateInput) (*domain.Item, error) {
	if !in.Type.Valid() {
		return nil, domain.Validation(`invalid type, use "lost" or "found"`)
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	switch {
	case in.Title == "":
		return nil, domain.Validation("title is required")
	case in.Location == "":
		return nil, domain.Validation("location is required")
	case !domain.ValidCategory(in.Category):
		return nil, domain.Validation("invalid category")
	}

	it := &domain.Item{
		ID:          utils.NewID(),
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Category:    in.Category,
		Type:        in.Type,
		Status:      domain.StatusActive,
		Location:    in.Location,
		Image:       in.Image,
		InPortaria:  in.InPortaria,
		UserID:      sess.UserID,
		CreatedAt:   s.now(),
	}
	if err := s.items.Create(ctx, it); err != nil {
		return nil, domain.Internal("create item failed", err)
	}
	return s.detailed(ctx, it.ID)
}

// Filter 查询参数；Type/Status 仅后台列表使用
type Filter struct {
	Type     domain.ItemType
	Status   domain.ItemStatus
	Category string
	Location string
	Search   string
}

// ListFound 公开列表：仅 found + active
func (s *Service) ListFound(ctx context.Context, f Filter) ([]domain.Item, error) {
	items, err := s.items.List(ctx, domain.ItemFilter{
		Type:     domain.ItemFound,
		Status:   domain.StatusActive,
		Category: f.Category,
		Location: f.Location,
		Search:   f.Search,
		Limit:    foundLimit,
	})
	if err != nil {
		return nil, domain.Internal("list items failed", err)
	}
	return items, nil
}

func (s *Service) ListAll(ctx context.Context, sess auth.Session, f Filter) ([]domain.Item, error) {
	if !sess.IsStaff() {
		return nil, domain.Forbidden("staff only")
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, domain.Validation("invalid type")
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, domain.Validation("invalid status")
	}
	items, err := s.items.List(ctx, domain.ItemFilter{
		Type:     f.Type,
		Status:   f.Status,
		Category: f.Category,
		Location: f.Location,
		Search:   f.Search,
		Limit:    adminLimit,
	})
	if err != nil {
		return nil, domain.Internal("list items failed", err)
	}
	return items, nil
}

func (s *Service) ListMine(ctx context.Context, sess auth.Session, typ domain.ItemType) ([]domain.Item, error) {
	if typ != "" && !typ.Valid() {
		return nil, domain.Validation("invalid type")
	}
	items, err := s.items.List(ctx, domain.ItemFilter{OwnerID: sess.UserID, Type: typ, Limit: mineLimit})
	if err != nil {
		return nil, domain.Internal("list items failed", err)
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Item, error) {
	return s.detailed(ctx, id)
}

func (s *Service) load(ctx context.Context, id string) (*domain.Item, error) {
	it, err := s.items.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("item not found")
	}
	if err != nil {
		return nil, domain.Internal("load item failed", err)
	}
	return it, nil
}

func (s *Service) detailed(ctx context.Context, id string) (*domain.Item, error) {
	it, err := s.items.FindDetailed(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("item not found")
	}
	if err != nil {
		return nil, domain.Internal("load item failed", err)
	}
	return it, nil
}

// Claim 条件更新 status=active → claimed，并发下只有一个请求成功
func (s *Service) Claim(ctx context.Context, sess auth.Session, id string) (*domain.Item, error) {
	it, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if it.IsOwner(sess.UserID) {
		return nil, domain.Validation("you cannot claim your own item")
	}
	ok, err := s.items.Claim(ctx, id, sess.UserID, s.now())
	if err != nil {
		return nil, domain.Internal("claim item failed", err)
	}
	if !ok {
		return nil, domain.InvalidState("item is no longer available")
	}

	s.events.Publish(ctx, notification.Event{
		Recipient: it.UserID,
		Type:      domain.NotifyClaim,
		Title:     "Item reivindicado",
		Message:   fmt.Sprintf("Alguém reivindicou o item %q.", it.Title),
		ItemID:    it.ID,
	})
	return s.detailed(ctx, id)
}

// Return 登记人或认领人自助确认归还
func (s *Service) Return(ctx context.Context, sess auth.Session, id string) (*domain.Item, error) {
	it, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !it.IsOwner(sess.UserID) && !it.IsClaimant(sess.UserID) {
		return nil, domain.Forbidden("you are not allowed to confirm this return")
	}
	if err := s.markReturned(ctx, id, nil); err != nil {
		return nil, err
	}
	return s.detailed(ctx, id)
}

// ConfirmReturn 前台确认归还，通知登记人与认领人
func (s *Service) ConfirmReturn(ctx context.Context, sess auth.Session, id string) (*domain.Item, error) {
	if !sess.IsStaff() {
		return nil, domain.Forbidden("staff only")
	}
	it, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	var credit *domain.ReturnCredit
	if s.rep.Apply && s.rep.Points > 0 {
		credit = &domain.ReturnCredit{UserID: it.UserID, Points: s.rep.Points}
	}
	if err := s.markReturned(ctx, id, credit); err != nil {
		return nil, err
	}
	// 认领人以归还后的记录为准，读取与 CAS 之间可能有人完成认领
	got, err := s.detailed(ctx, id)
	if err != nil {
		return nil, err
	}

	evs := []notification.Event{{
		Recipient: got.UserID,
		Type:      domain.NotifyReturn,
		Title:     "Devolução confirmada",
		Message:   fmt.Sprintf("A devolução do item %q foi confirmada. Você ganhou +%d pontos de reputação!", got.Title, s.rep.Points),
		ItemID:    got.ID,
	}}
	if got.ClaimedByID != nil {
		evs = append(evs, notification.Event{
			Recipient: *got.ClaimedByID,
			Type:      domain.NotifyReturn,
			Title:     "Item devolvido",
			Message:   fmt.Sprintf("O item %q foi devolvido a você.", got.Title),
			ItemID:    got.ID,
		})
	}
	s.events.Publish(ctx, evs...)
	s.log.Info("return confirmed",
		zap.String("item", id),
		zap.String("staff", sess.UserID),
		zap.Bool("credit_applied", credit != nil))
	return got, nil
}

func (s *Service) markReturned(ctx context.Context, id string, credit *domain.ReturnCredit) error {
	ok, err := s.items.MarkReturned(ctx, id, s.now(), credit)
	if err != nil {
		return domain.Internal("return item failed", err)
	}
	if !ok {
		return domain.InvalidState("item was already returned")
	}
	return nil
}

// MarkPortaria 物品已送达前台
func (s *Service) MarkPortaria(ctx context.Context, sess auth.Session, id string) (*domain.Item, error) {
	if !sess.IsStaff() {
		return nil, domain.Forbidden("staff only")
	}
	it, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.items.SetPortaria(ctx, id); err != nil {
		return nil, domain.Internal("mark portaria failed", err)
	}
	s.events.Publish(ctx, notification.Event{
		Recipient: it.UserID,
		Type:      domain.NotifyPortaria,
		Title:     "Item na portaria",
		Message:   fmt.Sprintf("O item %q está disponível na portaria.", it.Title),
		ItemID:    it.ID,
	})
	return s.detailed(ctx, id)
}

// Delete 仅登记人；级联删除会话/消息/通知，返回被删物品以便清理图片
func (s *Service) Delete(ctx context.Context, sess auth.Session, id string) (*domain.Item, error) {
	it, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !it.IsOwner(sess.UserID) {
		return nil, domain.Forbidden("you are not allowed to delete this item")
	}
	if err := s.items.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("item not found")
		}
		return nil, domain.Internal("delete item failed", err)
	}
	return it, nil
}

func (s *Service) Stats(ctx context.Context) (map[domain.ItemStatus]int64, error) {
	m, err := s.items.CountByStatus(ctx)
	if err != nil {
		return nil, domain.Internal("count items failed", err)
	}
	return m, nil
}
