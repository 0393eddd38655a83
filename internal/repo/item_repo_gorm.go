package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"lostfound-api/internal/domain"
)

const defaultItemLimit = 50

type ItemRepo struct{ db *gorm.DB }

func NewItemRepo(db *gorm.DB) *ItemRepo { return &ItemRepo{db: db} }

var _ domain.ItemRepository = (*ItemRepo)(nil)

// likePattern 对 *_key 列做子串匹配；用 ! 作转义符，三种方言通用
func likePattern(s string) string {
	s = domain.FoldKey(s)
	s = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
	return "%" + s + "%"
}

// publicUser 关联用户只查公开列，邮箱、学号与密码哈希不出库
func publicUser(db *gorm.DB) *gorm.DB { return db.Select(domain.PublicUserColumns) }

func (r *ItemRepo) Create(ctx context.Context, it *domain.Item) error {
	return mapErr(r.db.WithContext(ctx).Create(it).Error)
}

func (r *ItemRepo) FindByID(ctx context.Context, id string) (*domain.Item, error) {
	var it domain.Item
	if err := r.db.WithContext(ctx).First(&it, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &it, nil
}

func (r *ItemRepo) FindDetailed(ctx context.Context, id string) (*domain.Item, error) {
	var it domain.Item
	err := r.db.WithContext(ctx).
		Preload("User", publicUser).
		Preload("ClaimedBy", publicUser).
		First(&it, "id = ?", id).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &it, nil
}

func (r *ItemRepo) List(ctx context.Context, f domain.ItemFilter) ([]domain.Item, error) {
	q := r.db.WithContext(ctx).Model(&domain.Item{}).Preload("User", publicUser)
	if f.OwnerID != "" {
		q = q.Where("user_id = ?", f.OwnerID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if c := strings.TrimSpace(f.Category); c != "" && c != domain.CategoryAll {
		q = q.Where("category = ?", c)
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		q = q.Where("location_key LIKE ? ESCAPE '!'", likePattern(loc))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q = q.Where("search_key LIKE ? ESCAPE '!'", likePattern(s))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultItemLimit
	}
	var items []domain.Item
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ItemRepo) Claim(ctx context.Context, id, claimant string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Item{}).
		Where("id = ? AND status = ?", id, domain.StatusActive).
		Updates(map[string]any{
			"status":        domain.StatusClaimed,
			"claimed_by_id": claimant,
			"claimed_at":    at,
			"updated_at":    at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ItemRepo) MarkReturned(ctx context.Context, id string, at time.Time, credit *domain.ReturnCredit) (bool, error) {
	var hit bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Item{}).
			Where("id = ? AND status IN ?", id, []domain.ItemStatus{domain.StatusActive, domain.StatusClaimed}).
			Updates(map[string]any{
				"status":      domain.StatusReturned,
				"returned_at": at,
				"updated_at":  at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		hit = true
		if credit == nil {
			return nil
		}
		return tx.Model(&domain.User{}).Where("id = ?", credit.UserID).Updates(map[string]any{
			"reputation":    gorm.Expr("reputation + ?", credit.Points),
			"total_returns": gorm.Expr("total_returns + 1"),
		}).Error
	})
	return hit, err
}

func (r *ItemRepo) SetPortaria(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&domain.Item{}).
		Where("id = ?", id).
		Updates(map[string]any{"in_portaria": true, "updated_at": time.Now()}).Error
}

func (r *ItemRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var convIDs []string
		if err := tx.Model(&domain.Conversation{}).Where("item_id = ?", id).Pluck("id", &convIDs).Error; err != nil {
			return err
		}
		if len(convIDs) > 0 {
			if err := tx.Where("conversation_id IN ?", convIDs).Delete(&domain.Message{}).Error; err != nil {
				return err
			}
			if err := tx.Where("conversation_id IN ?", convIDs).Delete(&domain.Notification{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("item_id = ?", id).Delete(&domain.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", id).Delete(&domain.Conversation{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Item{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *ItemRepo) CountByStatus(ctx context.Context) (map[domain.ItemStatus]int64, error) {
	var rows []struct {
		Status domain.ItemStatus
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&domain.Item{}).
		Select("status, COUNT(*) AS total").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.ItemStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}
