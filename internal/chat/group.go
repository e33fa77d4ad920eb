package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourorg/chat-app/services/realtime-service/internal/apperr"
	"github.com/yourorg/chat-app/services/realtime-service/internal/events"
	"github.com/yourorg/chat-app/services/realtime-service/internal/hub"
	"github.com/yourorg/chat-app/services/realtime-service/internal/metrics"
	"github.com/yourorg/chat-app/services/realtime-service/internal/models"
	"github.com/yourorg/chat-app/services/realtime-service/internal/repository"
	"github.com/yourorg/chat-app/services/realtime-service/internal/storage"
)

const defaultMaxMembers = 100

// GroupRouter fans messages and membership events out to group members and
// maintains the membership invariants: exactly one admin, size capped at
// maxMembers, and no empty groups.
type GroupRouter struct {
	groups   repository.GroupRepository
	messages repository.MessageRepository
	users    repository.UserRepository
	hub      *hub.Hub
	media    storage.MediaStore
	sink     events.Sink
	locks    *keyedLocks
	logger   *zap.SugaredLogger
}

func NewGroupRouter(groups repository.GroupRepository, messages repository.MessageRepository, users repository.UserRepository, h *hub.Hub, media storage.MediaStore, sink events.Sink, logger *zap.SugaredLogger) *GroupRouter {
	return &GroupRouter{
		groups:   groups,
		messages: messages,
		users:    users,
		hub:      h,
		media:    media,
		sink:     sink,
		locks:    newKeyedLocks(),
		logger:   logger,
	}
}

func (r *GroupRouter) get(ctx context.Context, id string) (*models.Group, error) {
	g, err := r.groups.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "group not found")
	}
	if err != nil {
		return nil, apperr.Unavailable("load group", err)
	}
	return g, nil
}

// Create makes a new group with the creator as sole admin. Every other member
// who is online is told they were added.
func (r *GroupRouter) Create(ctx context.Context, creatorID, name string, memberIDs []string, maxMembers int, isPrivate bool) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.KindEmptyName, "group name cannot be empty")
	}
	if maxMembers <= 0 {
		maxMembers = defaultMaxMembers
	}

	// Dedup and drop the creator: they are inserted as admin regardless.
	others := dedup(memberIDs, creatorID)
	if len(others) > 0 {
		found, err := r.users.FindByIDs(ctx, others)
		if err != nil {
			return nil, apperr.Unavailable("resolve members", err)
		}
		if len(found) != len(others) {
			return nil, apperr.New(apperr.KindUnknownMembers, "some members do not exist")
		}
	}
	if 1+len(others) > maxMembers {
		return nil, apperr.Newf(apperr.KindCapacityExceeded, "group can have at most %d members", maxMembers)
	}

	now := time.Now().UTC()
	g := &models.Group{
		ID:           uuid.New().String(),
		Name:         name,
		AdminID:      creatorID,
		MaxMembers:   maxMembers,
		IsPrivate:    isPrivate,
		LastActivity: now,
		Members:      []models.GroupMember{{UserID: creatorID, Role: models.RoleAdmin, JoinedAt: now}},
	}
	for _, id := range others {
		g.Members = append(g.Members, models.GroupMember{UserID: id, Role: models.RoleMember, JoinedAt: now})
	}

	if err := r.groups.Create(ctx, g); err != nil {
		return nil, apperr.Unavailable("create group", err)
	}
	r.sink.Publish(ctx, "group.created", g)

	for _, id := range others {
		r.hub.Notify(id, EventAddedToGroup, g)
	}
	r.logger.Infow("group created", "group", g.ID, "admin", creatorID, "members", len(g.Members))
	return g, nil
}

// Send creates a group message, bumps the group's last-activity bookkeeping,
// and fans the message out to every online member except the sender. Returns
// the message and how many live connections received it.
func (r *GroupRouter) Send(ctx context.Context, senderID, groupID string, content SendContent) (*models.Message, int, error) {
	// Cheap pre-check before any media upload.
	g, err := r.get(ctx, groupID)
	if err != nil {
		return nil, 0, err
	}
	if !g.IsMember(senderID) {
		return nil, 0, apperr.New(apperr.KindNotMember, "you are not a member of this group")
	}

	m := &models.Message{
		ID:       uuid.New().String(),
		SenderID: senderID,
		GroupID:  groupID,
		Text:     content.Text,
		Status:   models.StatusSent,
	}
	if err := r.attachMedia(ctx, m, content); err != nil {
		return nil, 0, err
	}
	if content.ReplyTo != "" {
		if _, err := r.messages.GetByID(ctx, content.ReplyTo); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, 0, apperr.New(apperr.KindNotFound, "replied-to message not found")
			}
			return nil, 0, apperr.Unavailable("load replied-to message", err)
		}
		m.ReplyTo = content.ReplyTo
	}

	// Group lock before message create: fixed lock order for cross-entity ops.
	unlock := r.locks.lock(groupID)
	defer unlock()

	// Re-validate under the lock; membership may have changed during upload.
	g, err = r.get(ctx, groupID)
	if err != nil {
		return nil, 0, err
	}
	if !g.IsMember(senderID) {
		return nil, 0, apperr.New(apperr.KindNotMember, "you are not a member of this group")
	}

	if err := r.messages.Create(ctx, m); err != nil {
		return nil, 0, apperr.Unavailable("create message", err)
	}
	g.LastMessageID = m.ID
	g.LastActivity = time.Now().UTC()
	if err := r.groups.Update(ctx, g); err != nil {
		// Roll the message back so a retried send cannot duplicate it.
		if derr := r.messages.Delete(ctx, m.ID); derr != nil {
			r.logger.Warnw("orphaned message after failed group update", "message", m.ID, "err", derr)
		}
		return nil, 0, apperr.Unavailable("update group", err)
	}
	metrics.MessagesRouted.WithLabelValues("group").Inc()
	r.sink.Publish(ctx, "group.message.sent", m)

	delivered := 0
	for _, id := range g.MemberIDs() {
		if id == senderID {
			continue
		}
		if r.hub.Notify(id, EventNewGroupMessage, m) {
			delivered++
		}
	}
	return m, delivered, nil
}

func (r *GroupRouter) attachMedia(ctx context.Context, m *models.Message, content SendContent) error {
	if len(content.Image) > 0 {
		url, err := r.media.Store(ctx, content.Image, storage.KindImage)
		if err != nil {
			return apperr.Unavailable("store image", err)
		}
		m.Image = url
	}
	if len(content.Video) > 0 {
		url, err := r.media.Store(ctx, content.Video, storage.KindVideo)
		if err != nil {
			return apperr.Unavailable("store video", err)
		}
		m.Video = url
	}
	return nil
}

// AddMembers adds the given users. Admins and moderators may add. The whole
// filtered set is added or none of it.
func (r *GroupRouter) AddMembers(ctx context.Context, requesterID, groupID string, userIDs []string) (*models.Group, error) {
	unlock := r.locks.lock(groupID)
	defer unlock()

	g, err := r.get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	requester := g.Member(requesterID)
	if requester == nil || !requester.Role.CanManageMembers() {
		return nil, apperr.New(apperr.KindForbidden, "you are not allowed to add members")
	}

	candidates := dedup(userIDs)
	if len(candidates) > 0 {
		found, err := r.users.FindByIDs(ctx, candidates)
		if err != nil {
			return nil, apperr.Unavailable("resolve members", err)
		}
		if len(found) != len(candidates) {
			return nil, apperr.New(apperr.KindUnknownMembers, "some members do not exist")
		}
	}
	if len(g.Members)+len(candidates) > g.MaxMembers {
		return nil, apperr.Newf(apperr.KindCapacityExceeded, "group can have at most %d members", g.MaxMembers)
	}

	var fresh []string
	for _, id := range candidates {
		if !g.IsMember(id) {
			fresh = append(fresh, id)
		}
	}
	if len(fresh) == 0 {
		return nil, apperr.New(apperr.KindAllAlreadyMembers, "all given users are already members")
	}

	existing := g.MemberIDs()
	now := time.Now().UTC()
	added := make([]models.GroupMember, 0, len(fresh))
	for _, id := range fresh {
		added = append(added, models.GroupMember{UserID: id, Role: models.RoleMember, JoinedAt: now})
	}
	g.Members = append(g.Members, added...)
	if err := r.groups.Update(ctx, g); err != nil {
		return nil, apperr.Unavailable("update group", err)
	}
	r.sink.Publish(ctx, "group.members.added", MembersAddedPayload{GroupID: groupID, NewMembers: added})

	for _, id := range fresh {
		r.hub.Notify(id, EventAddedToGroup, g)
	}
	for _, id := range existing {
		if id != requesterID {
			r.hub.Notify(id, EventGroupMembersAdded, MembersAddedPayload{GroupID: groupID, NewMembers: added})
		}
	}
	return g, nil
}

// RemoveMember kicks a member out. Admin-only; moderators may add but not
// remove. Removing yourself must go through Leave.
func (r *GroupRouter) RemoveMember(ctx context.Context, requesterID, groupID, targetUserID string) error {
	unlock := r.locks.lock(groupID)
	defer unlock()

	g, err := r.get(ctx, groupID)
	if err != nil {
		return err
	}
	if g.AdminID != requesterID {
		return apperr.New(apperr.KindForbidden, "only the group admin can remove members")
	}
	if targetUserID == requesterID {
		return apperr.New(apperr.KindSelfRemoval, "use leave to remove yourself")
	}
	if !g.RemoveMember(targetUserID) {
		return apperr.New(apperr.KindNotFound, "user is not a member of this group")
	}
	if err := r.groups.Update(ctx, g); err != nil {
		return apperr.Unavailable("update group", err)
	}
	r.sink.Publish(ctx, "group.member.removed", RemovedPayload{GroupID: groupID, RemovedUserID: targetUserID})

	r.hub.Notify(targetUserID, EventRemovedFromGroup, RemovedPayload{GroupID: groupID, GroupName: g.Name})
	for _, id := range g.MemberIDs() {
		r.hub.Notify(id, EventMemberRemoved, RemovedPayload{GroupID: groupID, RemovedUserID: targetUserID})
	}
	return nil
}

// Leave removes the caller from the group. A departing admin hands the role
// to a moderator if one exists, else another admin-role member, else an
// arbitrary remaining member. The last member leaving destroys the group.
func (r *GroupRouter) Leave(ctx context.Context, userID, groupID string) error {
	unlock := r.locks.lock(groupID)
	defer unlock()

	g, err := r.get(ctx, groupID)
	if err != nil {
		return err
	}
	if !g.IsMember(userID) {
		return apperr.New(apperr.KindNotMember, "you are not a member of this group")
	}

	if g.AdminID == userID && len(g.Members) > 1 {
		next := pickNextAdmin(g, userID)
		next.Role = models.RoleAdmin
		g.AdminID = next.UserID
	}
	g.RemoveMember(userID)

	if len(g.Members) == 0 {
		if err := r.groups.Delete(ctx, groupID); err != nil {
			return apperr.Unavailable("delete group", err)
		}
		r.locks.forget(groupID)
		r.sink.Publish(ctx, "group.deleted", RemovedPayload{GroupID: groupID})
		r.logger.Infow("group destroyed, last member left", "group", groupID)
		return nil
	}

	if err := r.groups.Update(ctx, g); err != nil {
		return apperr.Unavailable("update group", err)
	}
	r.sink.Publish(ctx, "group.member.left", MemberLeftPayload{GroupID: groupID, UserID: userID, NewAdminID: g.AdminID})

	for _, id := range g.MemberIDs() {
		r.hub.Notify(id, EventMemberLeftGroup, MemberLeftPayload{GroupID: groupID, UserID: userID, NewAdminID: g.AdminID})
	}
	return nil
}

// pickNextAdmin prefers a moderator, then another admin-role member, then any
// remaining member. The group is known to have more than one member.
func pickNextAdmin(g *models.Group, leaving string) *models.GroupMember {
	var adminRole, arbitrary *models.GroupMember
	for i := range g.Members {
		m := &g.Members[i]
		if m.UserID == leaving {
			continue
		}
		switch m.Role {
		case models.RoleModerator:
			return m
		case models.RoleAdmin:
			if adminRole == nil {
				adminRole = m
			}
		default:
			if arbitrary == nil {
				arbitrary = m
			}
		}
	}
	if adminRole != nil {
		return adminRole
	}
	return arbitrary
}

// UpdateFields carries the mutable group attributes. Nil means unchanged.
type UpdateFields struct {
	Name        *string
	Description *string
	Avatar      []byte // raw image payload, stored via the media collaborator
}

// Update edits name/description/avatar. Admins and moderators only.
func (r *GroupRouter) Update(ctx context.Context, requesterID, groupID string, fields UpdateFields) (*models.Group, error) {
	// Upload outside the group lock; the store call can block.
	var avatarURL string
	if len(fields.Avatar) > 0 {
		url, err := r.media.Store(ctx, fields.Avatar, storage.KindImage)
		if err != nil {
			return nil, apperr.Unavailable("store avatar", err)
		}
		avatarURL = url
	}

	unlock := r.locks.lock(groupID)
	defer unlock()

	g, err := r.get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	requester := g.Member(requesterID)
	if requester == nil || !requester.Role.CanManageMembers() {
		return nil, apperr.New(apperr.KindForbidden, "you are not allowed to update this group")
	}

	if fields.Name != nil {
		name := strings.TrimSpace(*fields.Name)
		if name == "" {
			return nil, apperr.New(apperr.KindEmptyName, "group name cannot be empty")
		}
		g.Name = name
	}
	if fields.Description != nil {
		g.Description = *fields.Description
	}
	if avatarURL != "" {
		g.Avatar = avatarURL
	}

	if err := r.groups.Update(ctx, g); err != nil {
		return nil, apperr.Unavailable("update group", err)
	}
	for _, id := range g.MemberIDs() {
		if id != requesterID {
			r.hub.Notify(id, EventGroupUpdated, g)
		}
	}
	return g, nil
}

// Join adds the caller to a public group and tells the admin.
func (r *GroupRouter) Join(ctx context.Context, userID, groupID string) (*models.Group, error) {
	unlock := r.locks.lock(groupID)
	defer unlock()

	g, err := r.get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g.IsPrivate {
		return nil, apperr.New(apperr.KindPrivate, "this group is private")
	}
	if g.IsMember(userID) {
		return nil, apperr.New(apperr.KindAlreadyMember, "you are already a member of this group")
	}
	if len(g.Members) >= g.MaxMembers {
		return nil, apperr.New(apperr.KindFull, "this group is full")
	}

	g.Members = append(g.Members, models.GroupMember{UserID: userID, Role: models.RoleMember, JoinedAt: time.Now().UTC()})
	if err := r.groups.Update(ctx, g); err != nil {
		return nil, apperr.Unavailable("update group", err)
	}
	r.sink.Publish(ctx, "group.member.joined", MemberJoinedPayload{GroupID: groupID, NewMember: userID})

	r.hub.Notify(g.AdminID, EventNewMemberJoined, MemberJoinedPayload{GroupID: groupID, NewMember: userID})
	return g, nil
}

// dedup keeps order, drops duplicates and any of the excluded ids.
func dedup(ids []string, exclude ...string) []string {
	seen := make(map[string]struct{}, len(ids))
	for _, ex := range exclude {
		seen[ex] = struct{}{}
	}
	var out []string
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
