package net

import (
	"testing"

	"go.uber.org/zap"
)

func TestBridgeSendPreservesOrder(t *testing.T) {
	b := NewBridge(8, 8, zap.NewNop())
	for i := 0; i < 5; i++ {
		if !b.Send(Envelope{Type: MsgChatMessage, Payload: []byte{byte(i)}}) {
			t.Fatalf("send %d rejected below capacity", i)
		}
	}
	for i := 0; i < 5; i++ {
		env := <-b.Outbound()
		if env.Payload[0] != byte(i) {
			t.Fatalf("envelope %d out of order: got %d", i, env.Payload[0])
		}
	}
}

func TestBridgeSendDropsWhenFull(t *testing.T) {
	b := NewBridge(2, 2, zap.NewNop())
	if !b.Send(Envelope{Type: MsgChatMessage}) || !b.Send(Envelope{Type: MsgChatMessage}) {
		t.Fatalf("sends below capacity rejected")
	}
	// Queue full: the send must drop, not block the tick.
	if b.Send(Envelope{Type: MsgChatMessage}) {
		t.Fatalf("send above capacity accepted")
	}
	// Earlier envelopes survive the drop.
	if len(b.Outbound()) != 2 {
		t.Fatalf("queued %d, want 2", len(b.Outbound()))
	}
}

func TestBridgePublishFansOut(t *testing.T) {
	b := NewBridge(2, 4, zap.NewNop())
	s1 := b.Subscribe()
	s2 := b.Subscribe()

	b.Publish(Envelope{Type: MsgConnectionKeepAlive})
	for i, sub := range []<-chan Envelope{s1, s2} {
		select {
		case env := <-sub:
			if env.Type != MsgConnectionKeepAlive {
				t.Fatalf("subscriber %d got %v", i, env.Type)
			}
		default:
			t.Fatalf("subscriber %d got nothing", i)
		}
	}
}

func TestBridgePublishDropsPerSubscriber(t *testing.T) {
	b := NewBridge(2, 1, zap.NewNop())
	slow := b.Subscribe()
	fast := b.Subscribe()
	b.Publish(Envelope{Type: MsgChatMessage})
	<-fast // drain fast, slow now sits at capacity

	// The second publish must drop for slow but still reach fast.
	b.Publish(Envelope{Type: MsgConnectionKeepAlive})
	if len(slow) != 1 {
		t.Fatalf("slow subscriber queue = %d, want 1", len(slow))
	}
	select {
	case env := <-fast:
		if env.Type != MsgConnectionKeepAlive {
			t.Fatalf("fast subscriber got %v", env.Type)
		}
	default:
		t.Fatalf("drop on one subscriber starved another")
	}
}
