// Package repository is the persistence collaborator boundary. The realtime
// core reads and writes only the fields it needs to keep in-memory state
// consistent with durable state; durability itself lives behind these
// interfaces.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yourorg/chat-app/services/realtime-service/internal/models"
)

// ErrNotFound is returned when an id does not resolve to a stored entity.
var ErrNotFound = errors.New("not found")

type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)

	// AdvanceStatus conditionally moves the message out of one of the `from`
	// statuses into `to`, setting the given timestamps. deliveredAt is only
	// written when currently unset, so it is recorded exactly once even when
	// a seen backfill races a delivered confirmation. It reports whether a
	// document matched; false means the message was already at or past `to`,
	// which callers treat as an idempotent no-op.
	AdvanceStatus(ctx context.Context, id string, from []models.Status, to models.Status, deliveredAt, seenAt *time.Time) (bool, error)

	SetText(ctx context.Context, id, text string) error
	SetReactions(ctx context.Context, id string, reactions map[string]string) error
	SetPinned(ctx context.Context, id string, pinned bool) error
	Delete(ctx context.Context, id string) error
}

type GroupRepository interface {
	Create(ctx context.Context, g *models.Group) error
	GetByID(ctx context.Context, id string) (*models.Group, error)
	Update(ctx context.Context, g *models.Group) error
	Delete(ctx context.Context, id string) error
}

type UserRepository interface {
	// FindByIDs resolves the given ids; missing ids are simply absent from the
	// result, it is the caller's job to compare lengths.
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
	AddBlocked(ctx context.Context, userID, blockedID string) error
	RemoveBlocked(ctx context.Context, userID, blockedID string) error

	// BlockedEdges returns blocker -> blocked ids for every user with a
	// non-empty block list. Used to hydrate in-memory state at startup.
	BlockedEdges(ctx context.Context) (map[string][]string, error)
}
