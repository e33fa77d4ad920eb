package repository

import (
	"context"
	"sync"
	"time"

	"github.com/yourorg/chat-app/services/realtime-service/internal/models"
)

// NewMemory returns repositories backed by process memory. Used in tests and
// for running the service without a Mongo instance.
func NewMemory() *Repositories {
	return &Repositories{
		Messages: &memMessages{msgs: make(map[string]*models.Message)},
		Groups:   &memGroups{groups: make(map[string]*models.Group)},
		Users:    NewMemoryUsers(),
	}
}

type memMessages struct {
	mu   sync.RWMutex
	msgs map[string]*models.Message
}

func (r *memMessages) Create(_ context.Context, m *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	cp := *m
	r.msgs[m.ID] = &cp
	return nil
}

func (r *memMessages) GetByID(_ context.Context, id string) (*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.msgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	if m.Reactions != nil {
		cp.Reactions = make(map[string]string, len(m.Reactions))
		for k, v := range m.Reactions {
			cp.Reactions[k] = v
		}
	}
	return &cp, nil
}

func (r *memMessages) AdvanceStatus(_ context.Context, id string, from []models.Status, to models.Status, deliveredAt, seenAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, s := range from {
		if m.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	m.Status = to
	if deliveredAt != nil && m.DeliveredAt == nil {
		t := *deliveredAt
		m.DeliveredAt = &t
	}
	if seenAt != nil {
		t := *seenAt
		m.SeenAt = &t
	}
	m.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *memMessages) SetText(_ context.Context, id, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return ErrNotFound
	}
	m.Text = text
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memMessages) SetReactions(_ context.Context, id string, reactions map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return ErrNotFound
	}
	cp := make(map[string]string, len(reactions))
	for k, v := range reactions {
		cp[k] = v
	}
	m.Reactions = cp
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memMessages) SetPinned(_ context.Context, id string, pinned bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return ErrNotFound
	}
	m.IsPinned = pinned
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memMessages) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.msgs[id]; !ok {
		return ErrNotFound
	}
	delete(r.msgs, id)
	return nil
}

type memGroups struct {
	mu     sync.RWMutex
	groups map[string]*models.Group
}

func (r *memGroups) Create(_ context.Context, g *models.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now
	r.groups[g.ID] = copyGroup(g)
	return nil
}

func (r *memGroups) GetByID(_ context.Context, id string) (*models.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyGroup(g), nil
}

func (r *memGroups) Update(_ context.Context, g *models.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[g.ID]; !ok {
		return ErrNotFound
	}
	g.UpdatedAt = time.Now().UTC()
	r.groups[g.ID] = copyGroup(g)
	return nil
}

func (r *memGroups) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[id]; !ok {
		return ErrNotFound
	}
	delete(r.groups, id)
	return nil
}

func copyGroup(g *models.Group) *models.Group {
	cp := *g
	cp.Members = append([]models.GroupMember(nil), g.Members...)
	return &cp
}

// MemoryUsers is the in-memory UserRepository. Exported so tests can seed it.
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: make(map[string]*models.User)}
}

// Put inserts or replaces a user record.
func (r *MemoryUsers) Put(u models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = &u
}

func (r *MemoryUsers) FindByIDs(_ context.Context, ids []string) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *MemoryUsers) AddBlocked(_ context.Context, userID, blockedID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	for _, b := range u.BlockedUsers {
		if b == blockedID {
			return nil
		}
	}
	u.BlockedUsers = append(u.BlockedUsers, blockedID)
	return nil
}

func (r *MemoryUsers) BlockedEdges(_ context.Context) (map[string][]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]string)
	for id, u := range r.users {
		if len(u.BlockedUsers) > 0 {
			out[id] = append([]string(nil), u.BlockedUsers...)
		}
	}
	return out, nil
}

func (r *MemoryUsers) RemoveBlocked(_ context.Context, userID, blockedID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	for i, b := range u.BlockedUsers {
		if b == blockedID {
			u.BlockedUsers = append(u.BlockedUsers[:i], u.BlockedUsers[i+1:]...)
			return nil
		}
	}
	return nil
}
