package handler

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ospreygo/netsync/internal/net"
	"github.com/ospreygo/netsync/internal/net/wire"
	"github.com/ospreygo/netsync/internal/sim"
)

func TestServerRelaysChatToOthers(t *testing.T) {
	deps, _ := newDeps(sim.RoleServer)
	chat := NewChat(deps)

	sender, listener := uuid.New(), uuid.New()
	now := time.Now()
	deps.State.Registry.AddSession(sender, peerAddr(4400), now)
	deps.State.Registry.AddSession(listener, peerAddr(4401), now)

	deps.Bridge.Publish(net.Envelope{
		Type:      net.MsgChatMessage,
		Transport: net.Reliable,
		Payload:   wire.ChatData{From: sender, Text: "hello"}.Encode(),
		Origin:    net.Identity{ClientID: sender, Addr: peerAddr(4400)},
	})
	chat.Update(tick)

	relayed := requireOne(t, drainOutbound(deps.Bridge), net.MsgChatMessage)
	if relayed.Target.Kind != net.TargetClient || relayed.Target.Client != listener {
		t.Fatalf("relay target %+v, want the listener only", relayed.Target)
	}
	data, err := wire.DecodeChat(relayed.Payload)
	if err != nil || data.Text != "hello" {
		t.Fatalf("relayed payload %+v err %v", data, err)
	}
	if data.From != sender {
		t.Fatalf("relay attributed to %v, want %v", data.From, sender)
	}
}

func TestServerStampsSenderIdentity(t *testing.T) {
	deps, _ := newDeps(sim.RoleServer)
	chat := NewChat(deps)

	sender, listener := uuid.New(), uuid.New()
	now := time.Now()
	deps.State.Registry.AddSession(sender, peerAddr(4402), now)
	deps.State.Registry.AddSession(listener, peerAddr(4403), now)

	// The payload claims to be from the listener; the session identity wins.
	deps.Bridge.Publish(net.Envelope{
		Type:      net.MsgChatMessage,
		Transport: net.Reliable,
		Payload:   wire.ChatData{From: listener, Text: "spoofed"}.Encode(),
		Origin:    net.Identity{ClientID: sender, Addr: peerAddr(4402)},
	})
	chat.Update(tick)

	relayed := requireOne(t, drainOutbound(deps.Bridge), net.MsgChatMessage)
	data, _ := wire.DecodeChat(relayed.Payload)
	if data.From != sender {
		t.Fatalf("spoofed identity survived the relay: %v", data.From)
	}
}

func TestServerDiscardsChatFromUnboundSession(t *testing.T) {
	deps, _ := newDeps(sim.RoleServer)
	chat := NewChat(deps)
	deps.State.Registry.AddSession(uuid.New(), peerAddr(4404), time.Now())

	deps.Bridge.Publish(net.Envelope{
		Type:      net.MsgChatMessage,
		Transport: net.Reliable,
		Payload:   wire.ChatData{Text: "anonymous"}.Encode(),
		Origin:    net.Identity{Addr: peerAddr(4405)},
	})
	chat.Update(tick)

	if got := filterByType(drainOutbound(deps.Bridge), net.MsgChatMessage); len(got) != 0 {
		t.Fatalf("unattributed chat relayed")
	}
}

func TestClientSay(t *testing.T) {
	deps, _ := newDeps(sim.RoleClient)
	chat := NewChat(deps)
	self := uuid.New()
	deps.State.Registry.Self = &sim.PlayerSession{ClientID: self}

	chat.Say("hi there")
	chat.Say("") // empty lines never hit the wire

	sent := requireOne(t, drainOutbound(deps.Bridge), net.MsgChatMessage)
	if sent.Target.Kind != net.TargetServer {
		t.Fatalf("chat target %+v", sent.Target)
	}
	data, err := wire.DecodeChat(sent.Payload)
	if err != nil || data.Text != "hi there" || data.From != self {
		t.Fatalf("chat payload %+v err %v", data, err)
	}
}

func TestOfflineChatIsNoOp(t *testing.T) {
	deps, _ := newDeps(sim.RoleClient)
	deps.Bridge = nil
	chat := NewChat(deps)
	chat.Say("void")
	chat.Update(tick)
}
