package chat

import (
	"time"

	"github.com/yourorg/chat-app/services/realtime-service/internal/models"
)

// Outbound event names pushed to client connections.
const (
	EventOnlineUsers = "getOnlineUsers"

	EventNewMessage       = "newMessage"
	EventMessageDelivered = "messageDelivered"
	EventMessageSeen      = "messageSeen"
	EventMessageReacted   = "messageReacted"
	EventMessagePinned    = "messagePinned"
	EventMessageEdited    = "messageEdited"
	EventMessageDeleted   = "messageDeleted"

	EventTyping       = "typing"
	EventStopTyping   = "stopTyping"
	EventThemeChanged = "themeChanged"

	EventUserBlocked    = "userBlocked"
	EventUserUnblocked  = "userUnblocked"
	EventBlockSuccess   = "blockSuccess"
	EventUnblockSuccess = "unblockSuccess"

	EventNewGroupMessage   = "newGroupMessage"
	EventAddedToGroup      = "addedToGroup"
	EventGroupMembersAdded = "groupMembersAdded"
	EventMemberLeftGroup   = "memberLeftGroup"
	EventRemovedFromGroup  = "removedFromGroup"
	EventMemberRemoved     = "memberRemovedFromGroup"
	EventGroupUpdated      = "groupUpdated"
	EventNewMemberJoined   = "newMemberJoined"
)

type StatusPayload struct {
	MessageID   string     `json:"message_id"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	SeenAt      *time.Time `json:"seen_at,omitempty"`
}

type ReactionPayload struct {
	MessageID string            `json:"message_id"`
	Reactions map[string]string `json:"reactions"`
}

type PinPayload struct {
	MessageID string `json:"message_id"`
	IsPinned  bool   `json:"is_pinned"`
}

type EditPayload struct {
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
}

type DeletePayload struct {
	MessageID string `json:"message_id"`
}

type ThemePayload struct {
	UserID string `json:"user_id"`
	Theme  string `json:"theme"`
}

type BlockPayload struct {
	UserID string `json:"user_id"`
}

type MembersAddedPayload struct {
	GroupID    string               `json:"group_id"`
	NewMembers []models.GroupMember `json:"new_members"`
}

type MemberLeftPayload struct {
	GroupID    string `json:"group_id"`
	UserID     string `json:"user_id"`
	NewAdminID string `json:"new_admin_id"`
}

type RemovedPayload struct {
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name,omitempty"`
	// RemovedUserID is set on the event seen by remaining members.
	RemovedUserID string `json:"removed_user_id,omitempty"`
}

type MemberJoinedPayload struct {
	GroupID   string `json:"group_id"`
	NewMember string `json:"new_member"`
}
