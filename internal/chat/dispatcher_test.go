package chat

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/yourorg/chat-app/services/realtime-service/internal/apperr"
	"github.com/yourorg/chat-app/services/realtime-service/internal/models"
)

func envelope(t *testing.T, typ string, payload any) Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return Envelope{Type: typ, Payload: raw}
}

func TestDispatchSendMessage(t *testing.T) {
	f := newFixture()
	a := f.addUser("a")
	b := f.addUser("b")
	aConn := f.connect(a)
	bConn := f.connect(b)

	out, err := f.dispatcher.Handle(context.Background(), aConn.ID(), envelope(t, ActionSendMessage, sendPayload{
		RecipientID: b,
		Text:        "hi",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	m, ok := out.(*models.Message)
	if !ok {
		t.Fatalf("result type = %T, want *models.Message", out)
	}
	if m.SenderID != a || m.RecipientID != b {
		t.Errorf("message = %+v", m)
	}
	if _, ok := bConn.last(EventNewMessage); !ok {
		t.Error("recipient never received newMessage")
	}
}

func TestDispatchGroupLifecycle(t *testing.T) {
	f := newFixture()
	a := f.addUser("a")
	b := f.addUser("b")
	aConn := f.connect(a)
	f.connect(b)
	ctx := context.Background()

	out, err := f.dispatcher.Handle(ctx, aConn.ID(), envelope(t, ActionCreateGroup, groupActionPayload{
		Name:      "team",
		MemberIDs: []string{b},
	}))
	if err != nil {
		t.Fatalf("createGroup: %v", err)
	}
	g := out.(*models.Group)

	if _, err := f.dispatcher.Handle(ctx, aConn.ID(), envelope(t, ActionSendGroupMessage, sendPayload{
		GroupID: g.ID,
		Text:    "hello",
	})); err != nil {
		t.Fatalf("sendGroupMessage: %v", err)
	}

	if _, err := f.dispatcher.Handle(ctx, aConn.ID(), envelope(t, ActionLeaveGroup, groupActionPayload{GroupID: g.ID})); err != nil {
		t.Fatalf("leaveGroup: %v", err)
	}
	got, _ := f.repos.Groups.GetByID(ctx, g.ID)
	if got.AdminID != b {
		t.Errorf("admin after leave = %q, want %q", got.AdminID, b)
	}
}

func TestDispatchStatusAndReaction(t *testing.T) {
	f := newFixture()
	a := f.addUser("a")
	b := f.addUser("b")
	f.connect(a)
	bConn := f.connect(b)
	ctx := context.Background()

	m := f.sendDirect(t, a, b, "ping")

	if _, err := f.dispatcher.Handle(ctx, bConn.ID(), envelope(t, ActionMarkSeen, messageRefPayload{MessageID: m.ID})); err != nil {
		t.Fatalf("markSeen: %v", err)
	}
	got, _ := f.repos.Messages.GetByID(ctx, m.ID)
	if got.Status != models.StatusSeen {
		t.Errorf("status = %q, want seen", got.Status)
	}

	out, err := f.dispatcher.Handle(ctx, bConn.ID(), envelope(t, ActionSetReaction, messageRefPayload{MessageID: m.ID, Emoji: "👍"}))
	if err != nil {
		t.Fatalf("setReaction: %v", err)
	}
	if p := out.(ReactionPayload); p.Reactions[b] != "👍" {
		t.Errorf("reactions = %v", p.Reactions)
	}
}

func TestDispatchReturnsDomainErrors(t *testing.T) {
	f := newFixture()
	a := f.addUser("a")
	aConn := f.connect(a)

	_, err := f.dispatcher.Handle(context.Background(), aConn.ID(), envelope(t, ActionBlockUser, peerPayload{UserID: a}))
	if apperr.KindOf(err) != apperr.KindSelfBlock {
		t.Errorf("kind = %q, want self_block", apperr.KindOf(err))
	}
}

func TestDispatchDiscardsUnregisteredConnection(t *testing.T) {
	f := newFixture()
	b := f.addUser("b")
	f.connect(b)

	out, err := f.dispatcher.Handle(context.Background(), "never-registered", envelope(t, ActionSendMessage, sendPayload{
		RecipientID: b,
		Text:        "hi",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out != nil {
		t.Errorf("result = %v, want nil", out)
	}
}

func TestDispatchIgnoresUnknownType(t *testing.T) {
	f := newFixture()
	a := f.addUser("a")
	aConn := f.connect(a)

	out, err := f.dispatcher.Handle(context.Background(), aConn.ID(), Envelope{Type: "selfDestruct"})
	if err != nil || out != nil {
		t.Errorf("Handle = (%v, %v), want (nil, nil)", out, err)
	}
}

func TestConnectDisconnectLifecycle(t *testing.T) {
	f := newFixture()
	a := f.addUser("a")

	c := &fakeConn{id: "conn-a"}
	f.dispatcher.OnConnect(a, c)
	if got, ok := f.hub.Lookup(a); !ok || got.ID() != c.ID() {
		t.Fatal("user not registered after OnConnect")
	}

	f.dispatcher.OnDisconnect(c.ID())
	if _, ok := f.hub.Lookup(a); ok {
		t.Error("user still registered after OnDisconnect")
	}
	// Stale duplicate disconnect is a no-op.
	f.dispatcher.OnDisconnect(c.ID())
}
