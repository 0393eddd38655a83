package domain

import (
	"context"
	"encoding/json"
	"time"
)

// ConversationOpening 新会话的 lastMessage 占位
const ConversationOpening = "Nova conversa iniciada"

// PreviewLen lastMessage 最多保留的字符数
const PreviewLen = 100

type Conversation struct {
	ID             string `gorm:"primaryKey;size:36" json:"id"`
	ParticipantAID string `gorm:"column:participant_a_id;size:36;not null;uniqueIndex:ux_conversations_pair_item,priority:1" json:"-"`
	ParticipantBID string `gorm:"column:participant_b_id;size:36;not null;index;uniqueIndex:ux_conversations_pair_item,priority:2" json:"-"`
	ItemID         string `gorm:"size:36;not null;index;uniqueIndex:ux_conversations_pair_item,priority:3" json:"itemId"`

	ParticipantA *User `gorm:"foreignKey:ParticipantAID" json:"-"`
	ParticipantB *User `gorm:"foreignKey:ParticipantBID" json:"-"`
	Item         *Item `gorm:"foreignKey:ItemID" json:"item,omitempty"`

	LastMessage   string    `gorm:"type:text" json:"lastMessage"`
	LastMessageAt time.Time `gorm:"index" json:"lastMessageAt"`
	CreatedAt     time.Time `json:"createdAt"`

	Participants []*User `gorm:"-" json:"participants"`
}

func (Conversation) TableName() string { return "conversations" }

// SortedPair 规范化参与者顺序，保证 (A,B) 与 (B,A) 落到同一唯一键
func SortedPair(x, y string) (string, string) {
	if y < x {
		return y, x
	}
	return x, y
}

func (c *Conversation) HasParticipant(uid string) bool {
	return c.ParticipantAID == uid || c.ParticipantBID == uid
}

// Other 返回另一位参与者
func (c *Conversation) Other(uid string) string {
	if c.ParticipantAID == uid {
		return c.ParticipantBID
	}
	return c.ParticipantAID
}

// FillParticipants 将预加载的 A/B 展开为 participants
func (c *Conversation) FillParticipants() {
	c.Participants = c.Participants[:0]
	for _, u := range []*User{c.ParticipantA, c.ParticipantB} {
		if u != nil {
			c.Participants = append(c.Participants, u)
		}
	}
}

type conversationJSON Conversation

func (c Conversation) MarshalJSON() ([]byte, error) {
	refs := make([]*UserRef, 0, len(c.Participants))
	for _, u := range c.Participants {
		refs = append(refs, u.Ref())
	}
	return json.Marshal(struct {
		conversationJSON
		Participants []*UserRef `json:"participants"`
	}{conversationJSON(c), refs})
}

type Message struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string    `gorm:"size:36;not null;index:idx_messages_conv_created,priority:1" json:"conversationId"`
	SenderID       string    `gorm:"size:36;not null" json:"senderId"`
	Sender         *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Text           string    `gorm:"type:text;not null" json:"text"`
	CreatedAt      time.Time `gorm:"index:idx_messages_conv_created,priority:2" json:"createdAt"`
}

func (Message) TableName() string { return "messages" }

type messageJSON Message

func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		messageJSON
		Sender *UserRef `json:"sender,omitempty"`
	}{messageJSON(m), m.Sender.Ref()})
}

type ConversationRepository interface {
	// Create 唯一键冲突时返回 ErrDuplicate
	Create(ctx context.Context, c *Conversation) error
	FindByID(ctx context.Context, id string) (*Conversation, error)
	FindByPair(ctx context.Context, a, b, itemID string) (*Conversation, error)
	// Load 预加载参与者与物品摘要
	Load(ctx context.Context, id string) (*Conversation, error)
	ListForUser(ctx context.Context, uid string) ([]Conversation, error)
	// AppendMessage 同一事务内写消息并刷新会话缓存字段
	AppendMessage(ctx context.Context, m *Message, preview string) error
	Messages(ctx context.Context, conversationID string) ([]Message, error)
}
