package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/yourorg/chat-app/services/realtime-service/internal/events"
	"github.com/yourorg/chat-app/services/realtime-service/internal/hub"
	"github.com/yourorg/chat-app/services/realtime-service/internal/logger"
	"github.com/yourorg/chat-app/services/realtime-service/internal/models"
	"github.com/yourorg/chat-app/services/realtime-service/internal/repository"
	"github.com/yourorg/chat-app/services/realtime-service/internal/storage"
)

// fakeConn records every event pushed to it.
type fakeConn struct {
	id string

	mu     sync.Mutex
	events []pushedEvent
}

type pushedEvent struct {
	name    string
	payload any
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(event string, payload any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, pushedEvent{name: event, payload: payload})
	return true
}

func (c *fakeConn) eventNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.name)
	}
	return out
}

func (c *fakeConn) last(event string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].name == event {
			return c.events[i].payload, true
		}
	}
	return nil, false
}

func (c *fakeConn) count(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.name == event {
			n++
		}
	}
	return n
}

// fakeMedia hands back deterministic URLs without touching any store.
type fakeMedia struct {
	mu sync.Mutex
	n  int
}

func (f *fakeMedia) Store(_ context.Context, _ []byte, kind storage.Kind) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	return fmt.Sprintf("https://cdn.test/%s/%d", kind, f.n), nil
}

type fixture struct {
	repos      *repository.Repositories
	users      *repository.MemoryUsers
	hub        *hub.Hub
	block      *BlockRelation
	state      *MessageStateMachine
	direct     *DirectRouter
	group      *GroupRouter
	dispatcher *Dispatcher
}

func newFixture() *fixture {
	repos := repository.NewMemory()
	users := repos.Users.(*repository.MemoryUsers)
	h := hub.New()
	NewPresenceBroadcaster(h)

	log := logger.Nop()
	sink := events.NopSink{}
	media := &fakeMedia{}

	block := NewBlockRelation(users, h, log)
	state := NewMessageStateMachine(repos.Messages, repos.Groups, h, log)
	direct := NewDirectRouter(repos.Messages, block, h, media, sink, log)
	group := NewGroupRouter(repos.Groups, repos.Messages, users, h, media, sink, log)

	return &fixture{
		repos:      repos,
		users:      users,
		hub:        h,
		block:      block,
		state:      state,
		direct:     direct,
		group:      group,
		dispatcher: NewDispatcher(h, direct, group, state, block, log),
	}
}

// addUser seeds a user record and returns its id.
func (f *fixture) addUser(id string) string {
	f.users.Put(models.User{ID: id, FullName: id})
	return id
}

// connect registers a fake connection for the user.
func (f *fixture) connect(userID string) *fakeConn {
	c := &fakeConn{id: "conn-" + userID}
	f.hub.Register(userID, c)
	return c
}
