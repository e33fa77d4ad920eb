package chat

import (
	"github.com/yourorg/chat-app/services/realtime-service/internal/hub"
)

// PresenceBroadcaster pushes the full online-user set to every live connection
// whenever the registry changes. Fire-and-forget: a send that races a
// disconnect is simply dropped by the transport.
type PresenceBroadcaster struct {
	hub *hub.Hub
}

func NewPresenceBroadcaster(h *hub.Hub) *PresenceBroadcaster {
	p := &PresenceBroadcaster{hub: h}
	h.OnChange(p.broadcast)
	return p
}

func (p *PresenceBroadcaster) broadcast(online []string) {
	p.hub.NotifyAll(EventOnlineUsers, online)
}
