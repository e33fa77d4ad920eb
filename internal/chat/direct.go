package chat

import (
	"context"
	"errors"

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

// SendContent is the inbound body of a send: text and/or raw media payloads.
type SendContent struct {
	Text    string
	Image   []byte
	Video   []byte
	ReplyTo string
}

// DirectRouter routes messages and ephemeral events between exactly two users.
type DirectRouter struct {
	messages repository.MessageRepository
	block    *BlockRelation
	hub      *hub.Hub
	media    storage.MediaStore
	sink     events.Sink
	logger   *zap.SugaredLogger
}

func NewDirectRouter(messages repository.MessageRepository, block *BlockRelation, h *hub.Hub, media storage.MediaStore, sink events.Sink, logger *zap.SugaredLogger) *DirectRouter {
	return &DirectRouter{
		messages: messages,
		block:    block,
		hub:      h,
		media:    media,
		sink:     sink,
		logger:   logger,
	}
}

// Send creates the message durably and, if the recipient is online, pushes a
// newMessage event. The returned bool reports whether a live connection
// received the push; the message status stays "sent" either way, only the
// recipient's explicit confirmation advances it.
func (r *DirectRouter) Send(ctx context.Context, senderID, recipientID string, content SendContent) (*models.Message, bool, error) {
	if r.block.IsBlocked(senderID, recipientID) {
		return nil, false, apperr.New(apperr.KindBlocked, "you cannot message this user")
	}

	m := &models.Message{
		ID:          uuid.New().String(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Text:        content.Text,
		Status:      models.StatusSent,
	}
	if err := r.attachMedia(ctx, m, content); err != nil {
		return nil, false, err
	}
	if err := r.validateReply(ctx, m, content.ReplyTo); err != nil {
		return nil, false, err
	}

	if err := r.messages.Create(ctx, m); err != nil {
		return nil, false, apperr.Unavailable("create message", err)
	}
	metrics.MessagesRouted.WithLabelValues("direct").Inc()
	r.sink.Publish(ctx, "message.sent", m)

	delivered := r.hub.Notify(recipientID, EventNewMessage, m)
	if !delivered {
		r.logger.Debugw("recipient offline, message stored only", "message", m.ID, "recipient", recipientID)
	}
	return m, delivered, nil
}

func (r *DirectRouter) attachMedia(ctx context.Context, m *models.Message, content SendContent) error {
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

func (r *DirectRouter) validateReply(ctx context.Context, m *models.Message, replyTo string) error {
	if replyTo == "" {
		return nil
	}
	_, err := r.messages.GetByID(ctx, replyTo)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.New(apperr.KindNotFound, "replied-to message not found")
	}
	if err != nil {
		return apperr.Unavailable("load replied-to message", err)
	}
	m.ReplyTo = replyTo
	return nil
}

// PropagateTyping relays a transient typing indicator. No state is created;
// an offline recipient simply misses it.
func (r *DirectRouter) PropagateTyping(userID, recipientID string) bool {
	return r.hub.Notify(recipientID, EventTyping, userID)
}

func (r *DirectRouter) PropagateStopTyping(userID, recipientID string) bool {
	return r.hub.Notify(recipientID, EventStopTyping, userID)
}

// PropagateTheme relays a theme change to the chat partner.
func (r *DirectRouter) PropagateTheme(userID, recipientID, theme string) bool {
	return r.hub.Notify(recipientID, EventThemeChanged, ThemePayload{UserID: userID, Theme: theme})
}
