package repo

import (
	"context"

	"gorm.io/gorm"

	"lostfound-api/internal/domain"
)

type ConversationRepo struct{ db *gorm.DB }

func NewConversationRepo(db *gorm.DB) *ConversationRepo { return &ConversationRepo{db: db} }

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

func (r *ConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	return mapErr(r.db.WithContext(ctx).Create(c).Error)
}

func (r *ConversationRepo) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (r *ConversationRepo) FindByPair(ctx context.Context, a, b, itemID string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := r.db.WithContext(ctx).
		Where("participant_a_id = ? AND participant_b_id = ? AND item_id = ?", a, b, itemID).
		First(&c).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (r *ConversationRepo) populated(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("ParticipantA", publicUser).
		Preload("ParticipantB", publicUser).
		Preload("Item")
}

func (r *ConversationRepo) Load(ctx context.Context, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := r.populated(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	c.FillParticipants()
	return &c, nil
}

func (r *ConversationRepo) ListForUser(ctx context.Context, uid string) ([]domain.Conversation, error) {
	var cs []domain.Conversation
	err := r.populated(ctx).
		Where("participant_a_id = ? OR participant_b_id = ?", uid, uid).
		Order("last_message_at DESC").
		Find(&cs).Error
	if err != nil {
		return nil, err
	}
	for i := range cs {
		cs[i].FillParticipants()
	}
	return cs, nil
}

func (r *ConversationRepo) AppendMessage(ctx context.Context, m *domain.Message, preview string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return mapErr(err)
		}
		res := tx.Model(&domain.Conversation{}).
			Where("id = ?", m.ConversationID).
			Updates(map[string]any{"last_message": preview, "last_message_at": m.CreatedAt})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *ConversationRepo) Messages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	var ms []domain.Message
	err := r.db.WithContext(ctx).
		Preload("Sender", publicUser).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&ms).Error
	return ms, err
}
