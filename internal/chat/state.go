package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/chat-app/services/realtime-service/internal/apperr"
	"github.com/yourorg/chat-app/services/realtime-service/internal/hub"
	"github.com/yourorg/chat-app/services/realtime-service/internal/models"
	"github.com/yourorg/chat-app/services/realtime-service/internal/repository"
)

// MessageStateMachine owns the sent -> delivered -> seen lifecycle of a message
// plus its reaction and pin sub-state. Status transitions are conditional
// durable writes, so repeated or racing delivered/seen signals only ever move
// status forward.
type MessageStateMachine struct {
	messages repository.MessageRepository
	groups   repository.GroupRepository
	hub      *hub.Hub
	locks    *keyedLocks
	logger   *zap.SugaredLogger
}

func NewMessageStateMachine(messages repository.MessageRepository, groups repository.GroupRepository, h *hub.Hub, logger *zap.SugaredLogger) *MessageStateMachine {
	return &MessageStateMachine{
		messages: messages,
		groups:   groups,
		hub:      h,
		locks:    newKeyedLocks(),
		logger:   logger,
	}
}

func (s *MessageStateMachine) get(ctx context.Context, id string) (*models.Message, error) {
	m, err := s.messages.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "message not found")
	}
	if err != nil {
		return nil, apperr.Unavailable("load message", err)
	}
	return m, nil
}

// MarkDelivered moves a direct message from sent to delivered. Only the
// recipient may confirm delivery. A message already delivered or seen is left
// untouched and no notification fires.
func (s *MessageStateMachine) MarkDelivered(ctx context.Context, messageID, actingUserID string) error {
	m, err := s.get(ctx, messageID)
	if err != nil {
		return err
	}
	if !m.IsDirect() || m.RecipientID != actingUserID {
		return apperr.New(apperr.KindForbidden, "only the recipient can confirm delivery")
	}

	now := time.Now().UTC()
	applied, err := s.messages.AdvanceStatus(ctx, messageID,
		[]models.Status{models.StatusSent}, models.StatusDelivered, &now, nil)
	if err != nil {
		return apperr.Unavailable("mark delivered", err)
	}
	if !applied {
		return nil
	}
	s.hub.Notify(m.SenderID, EventMessageDelivered, StatusPayload{MessageID: messageID, DeliveredAt: &now})
	return nil
}

// MarkSeen moves a direct message into seen, from either sent or delivered.
// Entering seen straight from sent backfills deliveredAt to the same instant
// so status history stays monotonic.
func (s *MessageStateMachine) MarkSeen(ctx context.Context, messageID, actingUserID string) error {
	m, err := s.get(ctx, messageID)
	if err != nil {
		return err
	}
	if !m.IsDirect() || m.RecipientID != actingUserID {
		return apperr.New(apperr.KindForbidden, "only the recipient can confirm seen")
	}

	// The repository only writes deliveredAt when unset, so passing the
	// backfill unconditionally cannot clobber a racing delivered confirmation.
	now := time.Now().UTC()
	applied, err := s.messages.AdvanceStatus(ctx, messageID,
		[]models.Status{models.StatusSent, models.StatusDelivered}, models.StatusSeen, &now, &now)
	if err != nil {
		return apperr.Unavailable("mark seen", err)
	}
	if !applied {
		return nil
	}
	s.hub.Notify(m.SenderID, EventMessageSeen, StatusPayload{MessageID: messageID, SeenAt: &now})
	return nil
}

// SetReaction sets, replaces, or toggles off the acting user's single
// reaction. Repeating the same emoji removes it. Returns the updated map.
func (s *MessageStateMachine) SetReaction(ctx context.Context, messageID, actingUserID, emoji string) (map[string]string, error) {
	unlock := s.locks.lock(messageID)
	defer unlock()

	m, err := s.get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParticipant(ctx, m, actingUserID); err != nil {
		return nil, err
	}

	reactions := make(map[string]string, len(m.Reactions)+1)
	for k, v := range m.Reactions {
		reactions[k] = v
	}
	if reactions[actingUserID] == emoji {
		delete(reactions, actingUserID)
	} else {
		reactions[actingUserID] = emoji
	}

	if err := s.messages.SetReactions(ctx, messageID, reactions); err != nil {
		return nil, apperr.Unavailable("persist reactions", err)
	}
	s.notifyCounterparts(ctx, m, actingUserID, EventMessageReacted, ReactionPayload{MessageID: messageID, Reactions: reactions})
	return reactions, nil
}

// TogglePin flips the shared pin flag. Any participant may pin.
func (s *MessageStateMachine) TogglePin(ctx context.Context, messageID, actingUserID string) (bool, error) {
	unlock := s.locks.lock(messageID)
	defer unlock()

	m, err := s.get(ctx, messageID)
	if err != nil {
		return false, err
	}
	if err := s.requireParticipant(ctx, m, actingUserID); err != nil {
		return false, err
	}

	pinned := !m.IsPinned
	if err := s.messages.SetPinned(ctx, messageID, pinned); err != nil {
		return false, apperr.Unavailable("persist pin", err)
	}
	s.notifyCounterparts(ctx, m, actingUserID, EventMessagePinned, PinPayload{MessageID: messageID, IsPinned: pinned})
	return pinned, nil
}

// Edit replaces the message text in place. Sender-only; blank text rejected.
func (s *MessageStateMachine) Edit(ctx context.Context, messageID, actingUserID, newText string) error {
	if strings.TrimSpace(newText) == "" {
		return apperr.New(apperr.KindNotEmpty, "text cannot be empty")
	}

	unlock := s.locks.lock(messageID)
	defer unlock()

	m, err := s.get(ctx, messageID)
	if err != nil {
		return err
	}
	if m.SenderID != actingUserID {
		return apperr.New(apperr.KindForbidden, "you can only edit your own messages")
	}
	if err := s.messages.SetText(ctx, messageID, newText); err != nil {
		return apperr.Unavailable("persist edit", err)
	}
	s.notifyCounterparts(ctx, m, actingUserID, EventMessageEdited, EditPayload{MessageID: messageID, Text: newText})
	return nil
}

// Delete removes the message entirely. Sender-only.
func (s *MessageStateMachine) Delete(ctx context.Context, messageID, actingUserID string) error {
	unlock := s.locks.lock(messageID)
	defer unlock()

	m, err := s.get(ctx, messageID)
	if err != nil {
		return err
	}
	if m.SenderID != actingUserID {
		return apperr.New(apperr.KindForbidden, "you can only delete your own messages")
	}
	if err := s.messages.Delete(ctx, messageID); err != nil {
		return apperr.Unavailable("delete message", err)
	}
	s.locks.forget(messageID)
	s.notifyCounterparts(ctx, m, actingUserID, EventMessageDeleted, DeletePayload{MessageID: messageID})
	return nil
}

// requireParticipant checks reaction/pin permission: sender or recipient for
// direct messages, any current member for group messages.
func (s *MessageStateMachine) requireParticipant(ctx context.Context, m *models.Message, userID string) error {
	if m.IsDirect() {
		if !m.IsParticipant(userID) {
			return apperr.New(apperr.KindForbidden, "not a participant of this conversation")
		}
		return nil
	}
	g, err := s.groups.GetByID(ctx, m.GroupID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.New(apperr.KindNotFound, "group not found")
	}
	if err != nil {
		return apperr.Unavailable("load group", err)
	}
	if !g.IsMember(userID) {
		return apperr.New(apperr.KindNotMember, "you are not a member of this group")
	}
	return nil
}

// notifyCounterparts pushes a sub-state change to the other participants so
// connected clients converge without refetching. Best effort.
func (s *MessageStateMachine) notifyCounterparts(ctx context.Context, m *models.Message, actorID, event string, payload any) {
	if m.IsDirect() {
		other := m.RecipientID
		if actorID == m.RecipientID {
			other = m.SenderID
		}
		s.hub.Notify(other, event, payload)
		return
	}
	g, err := s.groups.GetByID(ctx, m.GroupID)
	if err != nil {
		s.logger.Warnw("fanout skipped, group unavailable", "group", m.GroupID, "err", err)
		return
	}
	for _, id := range g.MemberIDs() {
		if id != actorID {
			s.hub.Notify(id, event, payload)
		}
	}
}
