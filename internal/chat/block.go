package chat

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/yourorg/chat-app/services/realtime-service/internal/apperr"
	"github.com/yourorg/chat-app/services/realtime-service/internal/hub"
	"github.com/yourorg/chat-app/services/realtime-service/internal/repository"
)

// BlockRelation owns the asymmetric "A blocks B" edge set. It is authoritative
// in memory for the running process and mirrors every change to the user
// store before applying it.
type BlockRelation struct {
	mu    sync.RWMutex
	edges map[string]map[string]struct{} // blocker -> set of blocked

	users  repository.UserRepository
	hub    *hub.Hub
	logger *zap.SugaredLogger
}

func NewBlockRelation(users repository.UserRepository, h *hub.Hub, logger *zap.SugaredLogger) *BlockRelation {
	return &BlockRelation{
		edges:  make(map[string]map[string]struct{}),
		users:  users,
		hub:    h,
		logger: logger,
	}
}

// Seed installs an existing edge without touching storage or notifying anyone.
// Used when hydrating from user records at startup.
func (b *BlockRelation) Seed(blockerID, blockedID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addLocked(blockerID, blockedID)
}

// Hydrate loads every persisted edge from the user store.
func (b *BlockRelation) Hydrate(ctx context.Context) error {
	edges, err := b.users.BlockedEdges(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for blocker, blocked := range edges {
		for _, id := range blocked {
			b.addLocked(blocker, id)
			n++
		}
	}
	b.logger.Infow("block edges hydrated", "edges", n)
	return nil
}

func (b *BlockRelation) addLocked(blockerID, blockedID string) {
	set, ok := b.edges[blockerID]
	if !ok {
		set = make(map[string]struct{})
		b.edges[blockerID] = set
	}
	set[blockedID] = struct{}{}
}

// Block adds the edge. Idempotent: blocking an already-blocked user still
// confirms success to the actor. Blocking yourself is rejected.
func (b *BlockRelation) Block(ctx context.Context, blockerID, blockedID string) error {
	if blockerID == blockedID {
		return apperr.New(apperr.KindSelfBlock, "you cannot block yourself")
	}
	if err := b.users.AddBlocked(ctx, blockerID, blockedID); err != nil {
		return apperr.Unavailable("persist block", err)
	}

	b.mu.Lock()
	b.addLocked(blockerID, blockedID)
	b.mu.Unlock()

	b.hub.Notify(blockedID, EventUserBlocked, BlockPayload{UserID: blockerID})
	b.hub.Notify(blockerID, EventBlockSuccess, BlockPayload{UserID: blockedID})
	b.logger.Infow("user blocked", "blocker", blockerID, "blocked", blockedID)
	return nil
}

// Unblock removes the edge if present; removing an absent edge still confirms.
func (b *BlockRelation) Unblock(ctx context.Context, blockerID, blockedID string) error {
	if err := b.users.RemoveBlocked(ctx, blockerID, blockedID); err != nil {
		return apperr.Unavailable("persist unblock", err)
	}

	b.mu.Lock()
	if set, ok := b.edges[blockerID]; ok {
		delete(set, blockedID)
		if len(set) == 0 {
			delete(b.edges, blockerID)
		}
	}
	b.mu.Unlock()

	b.hub.Notify(blockedID, EventUserUnblocked, BlockPayload{UserID: blockerID})
	b.hub.Notify(blockerID, EventUnblockSuccess, BlockPayload{UserID: blockedID})
	b.logger.Infow("user unblocked", "blocker", blockerID, "unblocked", blockedID)
	return nil
}

// IsBlocked reports whether a blocks b or b blocks a. Message authoring and
// delivery are suppressed whenever either direction exists.
func (b *BlockRelation) IsBlocked(a, c string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if set, ok := b.edges[a]; ok {
		if _, hit := set[c]; hit {
			return true
		}
	}
	if set, ok := b.edges[c]; ok {
		if _, hit := set[a]; hit {
			return true
		}
	}
	return false
}
