package handler

import (
	"testing"

	"github.com/google/uuid"

	"github.com/ospreygo/netsync/internal/geom"
	"github.com/ospreygo/netsync/internal/net"
	"github.com/ospreygo/netsync/internal/net/wire"
	"github.com/ospreygo/netsync/internal/sim"
)

func TestServerAppliesOwnerInput(t *testing.T) {
	deps, _ := newDeps(sim.RoleServer)
	in := NewInput(deps)

	owner := uuid.New()
	netID := uuid.New()
	id := mustSpawn(t, deps, "player", netID, owner)

	payload := wire.PlayerInputData{
		NetID:    netID,
		Rotation: geom.Quat{Y: 0.7071, W: 0.7071},
		Flags:    sim.FlagForward | sim.FlagJump,
	}
	deps.Bridge.Publish(net.Envelope{
		Type:      net.MsgPlayerInput,
		Transport: net.Unreliable,
		Payload:   payload.Encode(),
		Origin:    net.Identity{ClientID: owner, Addr: peerAddr(4300)},
	})
	in.Update(tick)

	mv, _ := deps.State.Movements.Get(id)
	if !mv.HasIntent {
		t.Fatalf("owner input did not register intent")
	}
	if mv.ReqFlags != payload.Flags {
		t.Fatalf("flags %08b, want %08b", mv.ReqFlags, payload.Flags)
	}
	if mv.ReqRotation != payload.Rotation {
		t.Fatalf("rotation %+v", mv.ReqRotation)
	}
}

func TestServerRejectsForeignInput(t *testing.T) {
	deps, _ := newDeps(sim.RoleServer)
	in := NewInput(deps)

	owner, intruder := uuid.New(), uuid.New()
	netID := uuid.New()
	id := mustSpawn(t, deps, "player", netID, owner)

	deps.Bridge.Publish(net.Envelope{
		Type:      net.MsgPlayerInput,
		Transport: net.Unreliable,
		Payload:   wire.PlayerInputData{NetID: netID, Rotation: geom.Quat{W: 1}, Flags: sim.FlagForward}.Encode(),
		Origin:    net.Identity{ClientID: intruder, Addr: peerAddr(4301)},
	})
	in.Update(tick)

	mv, _ := deps.State.Movements.Get(id)
	if mv.HasIntent {
		t.Fatalf("foreign input registered intent")
	}
}

func TestServerRejectsAnonymousInput(t *testing.T) {
	deps, _ := newDeps(sim.RoleServer)
	in := NewInput(deps)

	// A controllable entity the server owns itself. A pre-handshake session
	// publishes with the nil identity, which must not match the nil owner.
	netID := uuid.New()
	id := mustSpawn(t, deps, "player", netID, uuid.Nil)

	deps.Bridge.Publish(net.Envelope{
		Type:      net.MsgPlayerInput,
		Transport: net.Unreliable,
		Payload:   wire.PlayerInputData{NetID: netID, Rotation: geom.Quat{W: 1}, Flags: sim.FlagForward}.Encode(),
		Origin:    net.Identity{ClientID: uuid.Nil, Addr: peerAddr(4303)},
	})
	in.Update(tick)

	mv, _ := deps.State.Movements.Get(id)
	if mv.HasIntent {
		t.Fatalf("anonymous input registered intent: flags %08b", mv.ReqFlags)
	}
}

func TestServerIgnoresInputForUnknownEntity(t *testing.T) {
	deps, _ := newDeps(sim.RoleServer)
	in := NewInput(deps)

	deps.Bridge.Publish(net.Envelope{
		Type:      net.MsgPlayerInput,
		Transport: net.Unreliable,
		Payload:   wire.PlayerInputData{NetID: uuid.New(), Rotation: geom.Quat{W: 1}}.Encode(),
		Origin:    net.Identity{ClientID: uuid.New(), Addr: peerAddr(4302)},
	})
	in.Update(tick) // must not panic on the stale datagram
}

func TestClientSamplesAndForwardsInput(t *testing.T) {
	deps, _ := newDeps(sim.RoleClient)
	src := &fakeInput{rot: geom.Quat{W: 1}, flags: sim.FlagForward | sim.FlagShift}
	deps.Input = src
	in := NewInput(deps)

	self := uuid.New()
	deps.State.Registry.Self = &sim.PlayerSession{ClientID: self}

	mine := uuid.New()
	myID := mustSpawnOwned(t, deps, "player", mine, self, true)
	// A mirrored remote player must not pick up local input.
	otherID := mustSpawnOwned(t, deps, "player", uuid.New(), uuid.New(), false)

	in.Update(tick)

	mv, _ := deps.State.Movements.Get(myID)
	if !mv.HasIntent || mv.ReqFlags != src.flags {
		t.Fatalf("local intent %+v", mv)
	}
	otherMv, _ := deps.State.Movements.Get(otherID)
	if otherMv.HasIntent {
		t.Fatalf("input leaked into a mirrored entity")
	}

	fwd := requireOne(t, drainOutbound(deps.Bridge), net.MsgPlayerInput)
	if fwd.Transport != net.Unreliable || fwd.Target.Kind != net.TargetServer {
		t.Fatalf("forwarded input %v %+v", fwd.Transport, fwd.Target)
	}
	data, err := wire.DecodePlayerInput(fwd.Payload)
	if err != nil || data.NetID != mine || data.Flags != src.flags {
		t.Fatalf("forwarded payload %+v err %v", data, err)
	}
}

func TestClientWithoutInputSourceIsNoOp(t *testing.T) {
	deps, _ := newDeps(sim.RoleClient)
	in := NewInput(deps)
	in.Update(tick)
	if got := drainOutbound(deps.Bridge); len(got) != 0 {
		t.Fatalf("no input source but %d envelopes sent", len(got))
	}
}
