package chat

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/yourorg/chat-app/services/realtime-service/internal/hub"
)

// Envelope is one inbound frame from a connection: a type tag and its payload.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Inbound event types.
const (
	ActionSendMessage       = "sendMessage"
	ActionSendGroupMessage  = "sendGroupMessage"
	ActionMarkDelivered     = "markDelivered"
	ActionMarkSeen          = "markSeen"
	ActionSetReaction       = "setReaction"
	ActionTogglePin         = "togglePin"
	ActionEditMessage       = "editMessage"
	ActionDeleteMessage     = "deleteMessage"
	ActionTyping            = "typing"
	ActionStopTyping        = "stopTyping"
	ActionThemeChanged      = "themeChanged"
	ActionBlockUser         = "blockUser"
	ActionUnblockUser       = "unblockUser"
	ActionCreateGroup       = "createGroup"
	ActionAddGroupMembers   = "addGroupMembers"
	ActionRemoveGroupMember = "removeGroupMember"
	ActionLeaveGroup        = "leaveGroup"
	ActionUpdateGroup       = "updateGroup"
	ActionJoinGroup         = "joinGroup"
)

type sendPayload struct {
	RecipientID string `json:"recipient_id"`
	GroupID     string `json:"group_id"`
	Text        string `json:"text"`
	Image       []byte `json:"image,omitempty"`
	Video       []byte `json:"video,omitempty"`
	ReplyTo     string `json:"reply_to,omitempty"`
}

type messageRefPayload struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji,omitempty"`
	Text      string `json:"text,omitempty"`
}

type peerPayload struct {
	RecipientID string `json:"recipient_id"`
	Theme       string `json:"theme,omitempty"`
	UserID      string `json:"user_id,omitempty"`
}

type groupActionPayload struct {
	GroupID     string   `json:"group_id"`
	Name        string   `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Avatar      []byte   `json:"avatar,omitempty"`
	MemberIDs   []string `json:"member_ids,omitempty"`
	UserIDs     []string `json:"user_ids,omitempty"`
	UserID      string   `json:"user_id,omitempty"`
	MaxMembers  int      `json:"max_members,omitempty"`
	IsPrivate   bool     `json:"is_private,omitempty"`
}

// Dispatcher is the single entry point at the transport boundary. It resolves
// the connection to its user, classifies the envelope, and delegates to
// exactly one handler. Events from connections that never registered or have
// already closed are discarded.
type Dispatcher struct {
	hub    *hub.Hub
	direct *DirectRouter
	group  *GroupRouter
	state  *MessageStateMachine
	block  *BlockRelation
	logger *zap.SugaredLogger
}

func NewDispatcher(h *hub.Hub, direct *DirectRouter, group *GroupRouter, state *MessageStateMachine, block *BlockRelation, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		hub:    h,
		direct: direct,
		group:  group,
		state:  state,
		block:  block,
		logger: logger,
	}
}

// OnConnect registers the announced user's connection. A prior connection for
// the same user is silently replaced.
func (d *Dispatcher) OnConnect(userID string, conn hub.Conn) {
	d.hub.Register(userID, conn)
	d.logger.Infow("connected", "user", userID, "conn", conn.ID())
}

// OnDisconnect drops the registry entry. Duplicate or stale disconnects are
// no-ops.
func (d *Dispatcher) OnDisconnect(connID string) {
	d.hub.Unregister(connID)
	d.logger.Infow("disconnected", "conn", connID)
}

// Handle processes one inbound envelope. The returned value, when non-nil, is
// the success payload for the caller's connection; a returned error is one of
// the apperr kinds.
func (d *Dispatcher) Handle(ctx context.Context, connID string, env Envelope) (any, error) {
	userID, ok := d.hub.UserForConn(connID)
	if !ok {
		d.logger.Debugw("event from unregistered connection discarded", "conn", connID, "type", env.Type)
		return nil, nil
	}

	switch env.Type {
	case ActionSendMessage:
		var p sendPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		m, _, err := d.direct.Send(ctx, userID, p.RecipientID, SendContent{
			Text: p.Text, Image: p.Image, Video: p.Video, ReplyTo: p.ReplyTo,
		})
		return m, err

	case ActionSendGroupMessage:
		var p sendPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		m, _, err := d.group.Send(ctx, userID, p.GroupID, SendContent{
			Text: p.Text, Image: p.Image, Video: p.Video, ReplyTo: p.ReplyTo,
		})
		return m, err

	case ActionMarkDelivered:
		var p messageRefPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return nil, d.state.MarkDelivered(ctx, p.MessageID, userID)

	case ActionMarkSeen:
		var p messageRefPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return nil, d.state.MarkSeen(ctx, p.MessageID, userID)

	case ActionSetReaction:
		var p messageRefPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		reactions, err := d.state.SetReaction(ctx, p.MessageID, userID, p.Emoji)
		if err != nil {
			return nil, err
		}
		return ReactionPayload{MessageID: p.MessageID, Reactions: reactions}, nil

	case ActionTogglePin:
		var p messageRefPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		pinned, err := d.state.TogglePin(ctx, p.MessageID, userID)
		if err != nil {
			return nil, err
		}
		return PinPayload{MessageID: p.MessageID, IsPinned: pinned}, nil

	case ActionEditMessage:
		var p messageRefPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return nil, d.state.Edit(ctx, p.MessageID, userID, p.Text)

	case ActionDeleteMessage:
		var p messageRefPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return nil, d.state.Delete(ctx, p.MessageID, userID)

	case ActionTyping:
		var p peerPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		d.direct.PropagateTyping(userID, p.RecipientID)
		return nil, nil

	case ActionStopTyping:
		var p peerPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		d.direct.PropagateStopTyping(userID, p.RecipientID)
		return nil, nil

	case ActionThemeChanged:
		var p peerPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		d.direct.PropagateTheme(userID, p.RecipientID, p.Theme)
		return nil, nil

	case ActionBlockUser:
		var p peerPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return nil, d.block.Block(ctx, userID, p.UserID)

	case ActionUnblockUser:
		var p peerPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return nil, d.block.Unblock(ctx, userID, p.UserID)

	case ActionCreateGroup:
		var p groupActionPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return d.group.Create(ctx, userID, p.Name, p.MemberIDs, p.MaxMembers, p.IsPrivate)

	case ActionAddGroupMembers:
		var p groupActionPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return d.group.AddMembers(ctx, userID, p.GroupID, p.UserIDs)

	case ActionRemoveGroupMember:
		var p groupActionPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return nil, d.group.RemoveMember(ctx, userID, p.GroupID, p.UserID)

	case ActionLeaveGroup:
		var p groupActionPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return nil, d.group.Leave(ctx, userID, p.GroupID)

	case ActionUpdateGroup:
		var p groupActionPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		fields := UpdateFields{Description: p.Description, Avatar: p.Avatar}
		if p.Name != "" {
			fields.Name = &p.Name
		}
		return d.group.Update(ctx, userID, p.GroupID, fields)

	case ActionJoinGroup:
		var p groupActionPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return d.group.Join(ctx, userID, p.GroupID)

	default:
		d.logger.Debugw("unknown event type discarded", "conn", connID, "type", env.Type)
		return nil, nil
	}
}
