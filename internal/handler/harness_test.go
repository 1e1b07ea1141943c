package handler

import (
	gonet "net"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ospreygo/netsync/internal/config"
	"github.com/ospreygo/netsync/internal/core/ecs"
	"github.com/ospreygo/netsync/internal/core/event"
	"github.com/ospreygo/netsync/internal/geom"
	"github.com/ospreygo/netsync/internal/net"
	"github.com/ospreygo/netsync/internal/net/wire"
	"github.com/ospreygo/netsync/internal/sim"
)

// fakeBinder records identity bindings without a transport.
type fakeBinder struct {
	bound   []uuid.UUID
	dropped []uuid.UUID
}

func (f *fakeBinder) Bind(clientID uuid.UUID, addr gonet.Addr) {
	f.bound = append(f.bound, clientID)
}

func (f *fakeBinder) Drop(clientID uuid.UUID) {
	f.dropped = append(f.dropped, clientID)
}

// fakeInput returns a fixed sample.
type fakeInput struct {
	rot   geom.Quat
	flags byte
}

func (f *fakeInput) Sample() (geom.Quat, byte) { return f.rot, f.flags }

type archMap map[string]sim.Archetype

func (m archMap) Archetype(kind string) (sim.Archetype, bool) {
	a, ok := m[kind]
	return a, ok
}

func testKinds() archMap {
	return archMap{
		"player": {Kind: "player", Scale: 1, Speed: 10, Boost: 2, Slow: 0.5, Jump: 8, Controllable: true},
		"crate":  {Kind: "crate", Scale: 1},
	}
}

func newDeps(role sim.Role) (*Deps, *fakeBinder) {
	st := sim.NewState(role)
	binder := &fakeBinder{}
	deps := &Deps{
		Cfg:    config.Defaults(),
		Log:    zap.NewNop(),
		State:  st,
		Bridge: net.NewBridge(256, 256, zap.NewNop()),
	}
	deps.Spawner = sim.NewSpawner(st, testKinds(), deps.Log)
	if role == sim.RoleServer {
		deps.Binder = binder
	}
	return deps, binder
}

func peerAddr(port int) gonet.Addr {
	return &gonet.TCPAddr{IP: gonet.IPv4(10, 0, 0, 1), Port: port}
}

// drainOutbound empties the bridge's outbound queue.
func drainOutbound(b *net.Bridge) []net.Envelope {
	var out []net.Envelope
	for {
		select {
		case env := <-b.Outbound():
			out = append(out, env)
		default:
			return out
		}
	}
}

func filterByType(envs []net.Envelope, t net.MessageType) []net.Envelope {
	var out []net.Envelope
	for _, env := range envs {
		if env.Type == t {
			out = append(out, env)
		}
	}
	return out
}

// pumpBus delivers last tick's events, the way the events system does at the
// top of each tick.
func pumpBus(deps *Deps) {
	deps.State.Bus.SwapBuffers()
	deps.State.Bus.DispatchAll()
}

func requireOne(t *testing.T, envs []net.Envelope, mt net.MessageType) net.Envelope {
	t.Helper()
	matched := filterByType(envs, mt)
	if len(matched) != 1 {
		t.Fatalf("want exactly one %v, got %d (all: %d envelopes)", mt, len(matched), len(envs))
	}
	return matched[0]
}

var tick = 50 * time.Millisecond

func timeNow() time.Time { return time.Now() }

func mustSpawn(t *testing.T, deps *Deps, kind string, netID, owner uuid.UUID) ecs.EntityID {
	t.Helper()
	return mustSpawnOwned(t, deps, kind, netID, owner, false)
}

func mustSpawnOwned(t *testing.T, deps *Deps, kind string, netID, owner uuid.UUID, direct bool) ecs.EntityID {
	t.Helper()
	id, err := deps.Spawner.Spawn(kind, netID, owner, sim.DefaultTransform(), direct)
	if err != nil {
		t.Fatalf("spawn %s: %v", kind, err)
	}
	return id
}

func emitClientJoined(deps *Deps, clientID uuid.UUID) {
	event.Emit(deps.State.Bus, event.ClientJoined{ClientID: clientID})
}

// spawnNotice builds the envelope a server would send for a new entity.
func spawnNotice(netID, owner uuid.UUID, kind string) net.Envelope {
	data := wire.NewReplicatedData{
		OwnerID:  owner,
		EntityID: netID,
		Kind:     kind,
		Transform: wire.TransformData{
			NetID:    netID,
			Rotation: geom.Quat{W: 1},
			Scale:    geom.Vec3{X: 1, Y: 1, Z: 1},
		},
	}
	return net.Envelope{
		Type:      net.MsgNewReplicated,
		Transport: net.Reliable,
		Payload:   data.Encode(),
		Origin:    net.Identity{Addr: peerAddr(6782)},
	}
}
