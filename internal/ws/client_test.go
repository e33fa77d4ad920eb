package ws

import (
	"testing"

	"github.com/yourorg/chat-app/services/realtime-service/internal/logger"
)

func TestSendQueuesUntilBufferFull(t *testing.T) {
	c := newClient("c1", "u1", nil, 2, logger.Nop())

	if !c.Send("a", nil) || !c.Send("b", nil) {
		t.Fatal("send rejected with buffer space available")
	}
	if c.Send("c", nil) {
		t.Error("send accepted past buffer capacity")
	}
}

func TestSendAfterCloseReportsFalse(t *testing.T) {
	c := newClient("c1", "u1", nil, 2, logger.Nop())
	c.close()

	if c.Send("a", nil) {
		t.Error("send accepted on closed client")
	}
	// Duplicate close is a no-op.
	c.close()
}
