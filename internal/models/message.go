package models

import "time"

type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusSeen      Status = "seen"
)

// Message is either direct (RecipientID set) or group (GroupID set), never both.
type Message struct {
	ID          string            `bson:"_id,omitempty" json:"id"`
	SenderID    string            `bson:"sender_id" json:"sender_id"`
	RecipientID string            `bson:"recipient_id,omitempty" json:"recipient_id,omitempty"`
	GroupID     string            `bson:"group_id,omitempty" json:"group_id,omitempty"`
	Text        string            `bson:"text,omitempty" json:"text,omitempty"`
	Image       string            `bson:"image,omitempty" json:"image,omitempty"`
	Video       string            `bson:"video,omitempty" json:"video,omitempty"`
	ReplyTo     string            `bson:"reply_to,omitempty" json:"reply_to,omitempty"`
	Status      Status            `bson:"status" json:"status"`
	DeliveredAt *time.Time        `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	SeenAt      *time.Time        `bson:"seen_at,omitempty" json:"seen_at,omitempty"`
	IsPinned    bool              `bson:"is_pinned" json:"is_pinned"`
	Reactions   map[string]string `bson:"reactions,omitempty" json:"reactions,omitempty"` // userID -> emoji
	CreatedAt   time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `bson:"updated_at" json:"updated_at"`
}

func (m *Message) IsDirect() bool { return m.RecipientID != "" }
func (m *Message) IsGroup() bool  { return m.GroupID != "" }

// IsParticipant reports whether userID may react to or pin this message.
// Group membership must be checked by the caller for group messages.
func (m *Message) IsParticipant(userID string) bool {
	return userID == m.SenderID || (m.IsDirect() && userID == m.RecipientID)
}
