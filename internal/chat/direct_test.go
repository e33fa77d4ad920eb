package chat

import (
	"context"
	"testing"

	"github.com/yourorg/chat-app/services/realtime-service/internal/apperr"
	"github.com/yourorg/chat-app/services/realtime-service/internal/models"
)

func TestSendDeliversToOnlineRecipient(t *testing.T) {
	f := newFixture()
	u1 := f.addUser("u1")
	u2 := f.addUser("u2")
	u2Conn := f.connect(u2)

	m, delivered, err := f.direct.Send(context.Background(), u1, u2, SendContent{Text: "hi"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !delivered {
		t.Error("delivered = false with recipient online")
	}

	payload, ok := u2Conn.last(EventNewMessage)
	if !ok {
		t.Fatal("recipient never received newMessage")
	}
	got := payload.(*models.Message)
	if got.Text != "hi" || got.Status != models.StatusSent {
		t.Errorf("pushed message = %+v, want text=hi status=sent", got)
	}
	if got.ID != m.ID {
		t.Errorf("pushed id %q != created id %q", got.ID, m.ID)
	}
}

func TestSendToOfflineRecipientStillStores(t *testing.T) {
	f := newFixture()
	u1 := f.addUser("u1")
	u2 := f.addUser("u2")

	m, delivered, err := f.direct.Send(context.Background(), u1, u2, SendContent{Text: "later"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if delivered {
		t.Error("delivered = true with recipient offline")
	}
	if _, err := f.repos.Messages.GetByID(context.Background(), m.ID); err != nil {
		t.Errorf("message not durably created: %v", err)
	}
}

func TestSendBlockedThenUnblocked(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.addUser("a")
	b := f.addUser("b")

	if err := f.block.Block(ctx, a, b); err != nil {
		t.Fatalf("Block: %v", err)
	}
	// The blocked party cannot message the blocker.
	_, _, err := f.direct.Send(ctx, b, a, SendContent{Text: "hello"})
	if apperr.KindOf(err) != apperr.KindBlocked {
		t.Errorf("send kind = %q, want blocked", apperr.KindOf(err))
	}
	// The blocker's own outbound sends are suppressed too.
	_, _, err = f.direct.Send(ctx, a, b, SendContent{Text: "hello"})
	if apperr.KindOf(err) != apperr.KindBlocked {
		t.Errorf("blocker send kind = %q, want blocked", apperr.KindOf(err))
	}

	if err := f.block.Unblock(ctx, a, b); err != nil {
		t.Fatalf("Unblock: %v", err)
	}
	if _, _, err := f.direct.Send(ctx, b, a, SendContent{Text: "hello"}); err != nil {
		t.Errorf("send after unblock: %v", err)
	}
}

func TestSendWithMediaStoresPayload(t *testing.T) {
	f := newFixture()
	u1 := f.addUser("u1")
	u2 := f.addUser("u2")

	m, _, err := f.direct.Send(context.Background(), u1, u2, SendContent{
		Image: []byte{0xff, 0xd8},
		Video: []byte{0x00, 0x01},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if m.Image == "" || m.Video == "" {
		t.Errorf("media URLs not set: image=%q video=%q", m.Image, m.Video)
	}
}

func TestSendReplyToMustExist(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u1 := f.addUser("u1")
	u2 := f.addUser("u2")

	_, _, err := f.direct.Send(ctx, u1, u2, SendContent{Text: "re", ReplyTo: "ghost"})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("reply-to-missing kind = %q, want not_found", apperr.KindOf(err))
	}

	orig := f.sendDirect(t, u2, u1, "first")
	m, _, err := f.direct.Send(ctx, u1, u2, SendContent{Text: "re", ReplyTo: orig.ID})
	if err != nil {
		t.Fatalf("reply send: %v", err)
	}
	if m.ReplyTo != orig.ID {
		t.Errorf("replyTo = %q, want %q", m.ReplyTo, orig.ID)
	}
}

func TestTypingRelay(t *testing.T) {
	f := newFixture()
	u1 := f.addUser("u1")
	u2 := f.addUser("u2")
	u2Conn := f.connect(u2)

	if !f.direct.PropagateTyping(u1, u2) {
		t.Error("PropagateTyping = false with recipient online")
	}
	if !f.direct.PropagateStopTyping(u1, u2) {
		t.Error("PropagateStopTyping = false with recipient online")
	}
	if _, ok := u2Conn.last(EventTyping); !ok {
		t.Error("recipient never received typing")
	}
	if _, ok := u2Conn.last(EventStopTyping); !ok {
		t.Error("recipient never received stopTyping")
	}

	// Offline recipient: dropped silently, observable via the return value.
	if f.direct.PropagateTyping(u1, "offline-user") {
		t.Error("PropagateTyping = true with recipient offline")
	}
}

func TestThemeRelay(t *testing.T) {
	f := newFixture()
	u1 := f.addUser("u1")
	u2 := f.addUser("u2")
	u2Conn := f.connect(u2)

	f.direct.PropagateTheme(u1, u2, "dark")

	payload, ok := u2Conn.last(EventThemeChanged)
	if !ok {
		t.Fatal("recipient never received themeChanged")
	}
	if p := payload.(ThemePayload); p.Theme != "dark" || p.UserID != u1 {
		t.Errorf("theme payload = %+v, want dark from u1", p)
	}
}

// Scenario: U1 sends to U2, both online; U2 confirms delivery then seen.
func TestDirectMessageFullRoundTrip(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u1 := f.addUser("u1")
	u2 := f.addUser("u2")
	u1Conn := f.connect(u1)
	u2Conn := f.connect(u2)

	m, delivered, err := f.direct.Send(ctx, u1, u2, SendContent{Text: "hi"})
	if err != nil || !delivered {
		t.Fatalf("Send: delivered=%v err=%v", delivered, err)
	}
	if _, ok := u2Conn.last(EventNewMessage); !ok {
		t.Fatal("u2 never received newMessage")
	}

	if err := f.state.MarkDelivered(ctx, m.ID, u2); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if _, ok := u1Conn.last(EventMessageDelivered); !ok {
		t.Error("u1 never received messageDelivered")
	}

	if err := f.state.MarkSeen(ctx, m.ID, u2); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if _, ok := u1Conn.last(EventMessageSeen); !ok {
		t.Error("u1 never received messageSeen")
	}

	got, _ := f.repos.Messages.GetByID(ctx, m.ID)
	if got.Status != models.StatusSeen {
		t.Errorf("final status = %q, want seen", got.Status)
	}
	if got.DeliveredAt == nil || got.SeenAt == nil || got.DeliveredAt.After(*got.SeenAt) {
		t.Errorf("timestamps delivered=%v seen=%v, want delivered <= seen", got.DeliveredAt, got.SeenAt)
	}
}
