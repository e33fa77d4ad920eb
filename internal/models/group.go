package models

import "time"

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
)

// CanManageMembers reports whether the role may add members or edit group info.
// Removing members is reserved for the group's admin, an intentional asymmetry.
func (r Role) CanManageMembers() bool {
	return r == RoleAdmin || r == RoleModerator
}

type GroupMember struct {
	UserID   string    `bson:"user_id" json:"user_id"`
	Role     Role      `bson:"role" json:"role"`
	JoinedAt time.Time `bson:"joined_at" json:"joined_at"`
}

type Group struct {
	ID            string        `bson:"_id,omitempty" json:"id"`
	Name          string        `bson:"name" json:"name"`
	Description   string        `bson:"description,omitempty" json:"description,omitempty"`
	Avatar        string        `bson:"avatar,omitempty" json:"avatar,omitempty"`
	AdminID       string        `bson:"admin_id" json:"admin_id"`
	Members       []GroupMember `bson:"members" json:"members"`
	MaxMembers    int           `bson:"max_members" json:"max_members"`
	IsPrivate     bool          `bson:"is_private" json:"is_private"`
	LastMessageID string        `bson:"last_message_id,omitempty" json:"last_message_id,omitempty"`
	LastActivity  time.Time     `bson:"last_activity" json:"last_activity"`
	CreatedAt     time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `bson:"updated_at" json:"updated_at"`
}

// Member returns the membership entry for userID, or nil.
func (g *Group) Member(userID string) *GroupMember {
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			return &g.Members[i]
		}
	}
	return nil
}

func (g *Group) IsMember(userID string) bool { return g.Member(userID) != nil }

// MemberIDs returns the ids of all current members.
func (g *Group) MemberIDs() []string {
	out := make([]string, 0, len(g.Members))
	for i := range g.Members {
		out = append(out, g.Members[i].UserID)
	}
	return out
}

// RemoveMember drops userID from the member list, reporting whether it was present.
func (g *Group) RemoveMember(userID string) bool {
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			return true
		}
	}
	return false
}
