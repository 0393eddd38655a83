package domain

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/gorm"
)

type ItemType string

const (
	ItemLost  ItemType = "lost"
	ItemFound ItemType = "found"
)

func (t ItemType) Valid() bool { return t == ItemLost || t == ItemFound }

type ItemStatus string

const (
	StatusActive   ItemStatus = "active"
	StatusClaimed  ItemStatus = "claimed"
	StatusReturned ItemStatus = "returned"
	StatusArchived ItemStatus = "archived" // 预留，当前没有任何操作会进入该状态
)

func (s ItemStatus) Valid() bool {
	switch s {
	case StatusActive, StatusClaimed, StatusReturned, StatusArchived:
		return true
	}
	return false
}

// CategoryAll 列表筛选时表示“不过滤分类”
const CategoryAll = "Todos"

var Categories = []string{
	"Eletrônicos", "Documentos", "Chaves", "Acessórios", "Roupas", "Livros", "Outros",
}

func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

type Item struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Category    string     `gorm:"size:32;not null;index" json:"category"`
	Type        ItemType   `gorm:"size:8;not null;index:idx_items_type_status_created,priority:1" json:"type"`
	Status      ItemStatus `gorm:"size:16;not null;default:active;index:idx_items_type_status_created,priority:2" json:"status"`
	Location    string     `gorm:"size:200;not null" json:"location"`
	Image       string     `gorm:"size:255" json:"image,omitempty"`
	InPortaria  bool       `gorm:"not null;default:false" json:"inPortaria"`

	// 小写检索键：在 Go 里做大小写折叠，SQLite 的 LOWER 只处理 ASCII
	SearchKey   string `gorm:"type:text;not null;default:''" json:"-"`
	LocationKey string `gorm:"size:200;not null;default:''" json:"-"`

	UserID      string  `gorm:"size:36;not null;index" json:"userId"`
	User        *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ClaimedByID *string `gorm:"size:36;index" json:"claimedById,omitempty"`
	ClaimedBy   *User   `gorm:"foreignKey:ClaimedByID" json:"claimedBy,omitempty"`

	ClaimedAt  *time.Time `json:"claimedAt,omitempty"`
	ReturnedAt *time.Time `json:"returnedAt,omitempty"`
	CreatedAt  time.Time  `gorm:"index:idx_items_type_status_created,priority:3" json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (Item) TableName() string { return "items" }

// FoldKey 检索键与查询词统一用这一种折叠方式
func FoldKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// BeforeCreate 标题、描述与地点创建后不再修改，检索键只在插入时生成
func (it *Item) BeforeCreate(*gorm.DB) error {
	it.SearchKey = FoldKey(it.Title + "\n" + it.Description)
	it.LocationKey = FoldKey(it.Location)
	return nil
}

type itemJSON Item

// MarshalJSON 关联用户只输出 UserRef
func (it Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		itemJSON
		User      *UserRef `json:"user,omitempty"`
		ClaimedBy *UserRef `json:"claimedBy,omitempty"`
	}{itemJSON(it), it.User.Ref(), it.ClaimedBy.Ref()})
}

// IsOwner 是否物品登记人
func (it *Item) IsOwner(uid string) bool { return it.UserID == uid }

// IsClaimant 是否认领人
func (it *Item) IsClaimant(uid string) bool {
	return it.ClaimedByID != nil && *it.ClaimedByID == uid
}

// ItemFilter 所有字段可选；Limit<=0 由仓储给默认值
type ItemFilter struct {
	OwnerID  string
	Type     ItemType
	Status   ItemStatus
	Category string
	Location string
	Search   string
	Limit    int
}

// ReturnCredit 确认归还时给登记人加的信誉分
type ReturnCredit struct {
	UserID string
	Points int
}

type ItemRepository interface {
	Create(ctx context.Context, it *Item) error
	FindByID(ctx context.Context, id string) (*Item, error)
	// FindDetailed 预加载登记人/认领人
	FindDetailed(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context, f ItemFilter) ([]Item, error)
	// Claim CAS：仅当 status=active 时更新，返回是否命中
	Claim(ctx context.Context, id, claimant string, at time.Time) (bool, error)
	// MarkReturned CAS：仅当 status 属于 active/claimed 时更新；credit 非空时同一事务加分
	MarkReturned(ctx context.Context, id string, at time.Time, credit *ReturnCredit) (bool, error)
	SetPortaria(ctx context.Context, id string) error
	// Delete 级联删除会话、消息与相关通知
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[ItemStatus]int64, error)
}
