package chat

import (
	"context"
	"testing"

	"github.com/yourorg/chat-app/services/realtime-service/internal/apperr"
)

func TestBlockIsBidirectionalForVisibility(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.addUser("alice")
	b := f.addUser("bob")

	if err := f.block.Block(ctx, a, b); err != nil {
		t.Fatalf("Block: %v", err)
	}
	if !f.block.IsBlocked(a, b) {
		t.Error("IsBlocked(a, b) = false after a blocked b")
	}
	if !f.block.IsBlocked(b, a) {
		t.Error("IsBlocked(b, a) = false; visibility checks must consult both directions")
	}
}

func TestBlockIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.addUser("alice")
	b := f.addUser("bob")
	aConn := f.connect(a)

	if err := f.block.Block(ctx, a, b); err != nil {
		t.Fatalf("first Block: %v", err)
	}
	if err := f.block.Block(ctx, a, b); err != nil {
		t.Fatalf("second Block: %v", err)
	}
	// The actor still gets a confirmation each time.
	if got := aConn.count(EventBlockSuccess); got != 2 {
		t.Errorf("blockSuccess count = %d, want 2", got)
	}
}

func TestUnblockRestoresBothDirections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.addUser("alice")
	b := f.addUser("bob")

	if err := f.block.Block(ctx, a, b); err != nil {
		t.Fatalf("Block: %v", err)
	}
	if err := f.block.Unblock(ctx, a, b); err != nil {
		t.Fatalf("Unblock: %v", err)
	}
	if f.block.IsBlocked(a, b) || f.block.IsBlocked(b, a) {
		t.Error("IsBlocked still true after unblock")
	}
	// Unblocking an absent edge is still a confirmed no-op.
	if err := f.block.Unblock(ctx, a, b); err != nil {
		t.Errorf("repeat Unblock: %v", err)
	}
}

func TestSelfBlockRejected(t *testing.T) {
	f := newFixture()
	a := f.addUser("alice")

	err := f.block.Block(context.Background(), a, a)
	if apperr.KindOf(err) != apperr.KindSelfBlock {
		t.Errorf("self block error kind = %q, want %q", apperr.KindOf(err), apperr.KindSelfBlock)
	}
}

func TestBlockNotifiesBlockedUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.addUser("alice")
	b := f.addUser("bob")
	bConn := f.connect(b)

	if err := f.block.Block(ctx, a, b); err != nil {
		t.Fatalf("Block: %v", err)
	}
	payload, ok := bConn.last(EventUserBlocked)
	if !ok {
		t.Fatal("blocked user never received userBlocked")
	}
	if p := payload.(BlockPayload); p.UserID != a {
		t.Errorf("userBlocked payload = %+v, want blocker %q", p, a)
	}

	if err := f.block.Unblock(ctx, a, b); err != nil {
		t.Fatalf("Unblock: %v", err)
	}
	if _, ok := bConn.last(EventUserUnblocked); !ok {
		t.Error("unblocked user never received userUnblocked")
	}
}
