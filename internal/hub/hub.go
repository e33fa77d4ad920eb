// Package hub tracks which users are reachable on a live connection. A user
// has at most one registered connection; a new connection silently replaces
// the prior one.
package hub

import (
	"sort"
	"sync"

	"github.com/yourorg/chat-app/services/realtime-service/internal/metrics"
)

// Conn is the non-owning handle the hub keeps per user. The transport owns
// the connection lifecycle; Send reports whether the event was handed to a
// live connection (false means it was dropped).
type Conn interface {
	ID() string
	Send(event string, payload any) bool
}

type Hub struct {
	mu     sync.RWMutex
	byUser map[string]Conn
	byConn map[string]string // connID -> userID

	// onChange is invoked after every registry mutation with the new online
	// snapshot, outside the hub lock.
	onChange func(online []string)
}

func New() *Hub {
	return &Hub{
		byUser: make(map[string]Conn),
		byConn: make(map[string]string),
	}
}

// OnChange installs the presence hook. Must be set before the hub is used.
func (h *Hub) OnChange(fn func(online []string)) { h.onChange = fn }

// Register maps userID to conn, unconditionally replacing any prior mapping.
func (h *Hub) Register(userID string, conn Conn) {
	h.mu.Lock()
	if prev, ok := h.byUser[userID]; ok {
		delete(h.byConn, prev.ID())
	}
	h.byUser[userID] = conn
	h.byConn[conn.ID()] = userID
	snapshot := h.onlineLocked()
	h.mu.Unlock()

	metrics.OnlineUsers.Set(float64(len(snapshot)))
	if h.onChange != nil {
		h.onChange(snapshot)
	}
}

// Unregister removes the mapping owned by connID. A stale connection id (one
// already replaced by a newer connection for the same user, or a duplicate
// disconnect) is a no-op, and no presence change fires.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	userID, ok := h.byConn[connID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.byConn, connID)
	delete(h.byUser, userID)
	snapshot := h.onlineLocked()
	h.mu.Unlock()

	metrics.OnlineUsers.Set(float64(len(snapshot)))
	if h.onChange != nil {
		h.onChange(snapshot)
	}
}

// Lookup returns the live connection for userID, if any.
func (h *Hub) Lookup(userID string) (Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.byUser[userID]
	return c, ok
}

// UserForConn resolves a connection id back to its owner.
func (h *Hub) UserForConn(connID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	u, ok := h.byConn[connID]
	return u, ok
}

// OnlineUserIDs returns a sorted snapshot of currently-connected users.
func (h *Hub) OnlineUserIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.onlineLocked()
}

func (h *Hub) onlineLocked() []string {
	out := make([]string, 0, len(h.byUser))
	for id := range h.byUser {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Notify pushes one event to userID's connection. It reports whether a live
// connection received the push; callers decide what to do about a miss.
func (h *Hub) Notify(userID, event string, payload any) bool {
	h.mu.RLock()
	c, ok := h.byUser[userID]
	h.mu.RUnlock()
	if !ok {
		metrics.FanoutDropped.Inc()
		return false
	}
	if !c.Send(event, payload) {
		metrics.FanoutDropped.Inc()
		return false
	}
	return true
}

// NotifyAll pushes one event to every registered connection.
func (h *Hub) NotifyAll(event string, payload any) {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.byUser))
	for _, c := range h.byUser {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		c.Send(event, payload)
	}
}
