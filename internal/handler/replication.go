package handler

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ospreygo/netsync/internal/core/ecs"
	"github.com/ospreygo/netsync/internal/core/event"
	coresys "github.com/ospreygo/netsync/internal/core/system"
	"github.com/ospreygo/netsync/internal/net"
	"github.com/ospreygo/netsync/internal/net/wire"
	"github.com/ospreygo/netsync/internal/sim"
)

// DespawnTag is the reserved custom component tag that removes a replicated
// entity everywhere. Payload is the 16-byte net_id.
const DespawnTag = "core.despawn"

// CustomHandler receives the payload of a custom-tagged component message.
type CustomHandler func(origin net.Identity, payload []byte)

// Replication keeps entity state in sync across the wire. The server
// broadcasts every replicated transform each tick over the unreliable
// channel and pushes spawn and despawn notices over the reliable one.
// Clients mirror what they hear, except for entities they own themselves.
type Replication struct {
	deps   *Deps
	rx     <-chan net.Envelope
	custom map[string]CustomHandler
}

func NewReplication(deps *Deps) *Replication {
	r := &Replication{
		deps:   deps,
		custom: make(map[string]CustomHandler),
	}
	if deps.Online() {
		r.rx = deps.Bridge.Subscribe()
	}
	r.RegisterCustom(DespawnTag, r.onDespawnNotice)

	if deps.State.IsServer() && deps.Online() {
		event.Subscribe(deps.State.Bus, r.onEntitySpawned)
		event.Subscribe(deps.State.Bus, r.onEntityDespawned)
		event.Subscribe(deps.State.Bus, r.onClientJoined)
	}
	return r
}

func (r *Replication) Phase() coresys.Phase { return coresys.PhaseReplicate }

// RegisterCustom installs a handler for a custom component tag. Tags are a
// flat namespace; the last registration for a tag wins.
func (r *Replication) RegisterCustom(tag string, fn CustomHandler) {
	r.custom[tag] = fn
}

func (r *Replication) Update(_ time.Duration) {
	if !r.deps.Online() {
		return
	}
	if r.deps.State.IsServer() {
		r.updateServer()
	} else {
		r.updateClient()
	}
}

// ── Server side ─────────────────────────────────────────────────────

func (r *Replication) updateServer() {
	for i := 0; i < r.deps.Cfg.Simulation.MaxMessagesPerTick; i++ {
		select {
		case env := <-r.rx:
			switch env.Type {
			case net.MsgComponentTransform:
				// Client positions are never trusted. Movement arrives as
				// input intent and the simulation step writes the transform.
				r.deps.Log.Warn("client transform discarded",
					zap.String("from", env.Origin.ClientID.String()),
				)
			case net.MsgComponentCustom:
				r.dispatchCustom(&env)
			case net.MsgConnectionRequest, net.MsgConnectionAccept,
				net.MsgConnectionKeepAlive, net.MsgNewClient,
				net.MsgNewReplicated, net.MsgChatMessage,
				net.MsgPlayerInput, net.MsgUnknown:
				// Owned by other handlers.
			}
		default:
			goto drained
		}
	}
drained:

	// Full transform snapshot every tick. Best effort; a lost datagram is
	// repaired by the next tick's snapshot.
	st := r.deps.State
	ecs.Each2(st.Replicated, st.Transforms, func(_ ecs.EntityID, rep *sim.Replicated, tf *sim.Transform) {
		r.deps.Bridge.Send(net.Envelope{
			Type:      net.MsgComponentTransform,
			Transport: net.Unreliable,
			Payload:   transformPayload(rep.NetID, tf).Encode(),
			Target:    net.Broadcast(),
		})
	})
}

// ── Client side ─────────────────────────────────────────────────────

func (r *Replication) updateClient() {
	for i := 0; i < r.deps.Cfg.Simulation.MaxMessagesPerTick; i++ {
		select {
		case env := <-r.rx:
			switch env.Type {
			case net.MsgNewReplicated:
				r.spawnMirror(&env)
			case net.MsgComponentTransform:
				r.applyServerTransform(&env)
			case net.MsgComponentCustom:
				r.dispatchCustom(&env)
			case net.MsgConnectionRequest, net.MsgConnectionAccept,
				net.MsgConnectionKeepAlive, net.MsgNewClient,
				net.MsgChatMessage, net.MsgPlayerInput, net.MsgUnknown:
				// Owned by other handlers.
			}
		default:
			return
		}
	}
}

// spawnMirror creates the local mirror for an announced entity. Announcements
// are idempotent; a retransmitted notice for a known net_id is a no-op.
func (r *Replication) spawnMirror(env *net.Envelope) {
	data, err := wire.DecodeNewReplicated(env.Payload)
	if err != nil {
		r.deps.Log.Warn("malformed NewReplicated payload, discarding", zap.Error(err))
		return
	}
	if _, known := r.deps.State.Registry.EntityByNet(data.EntityID); known {
		return
	}
	direct := data.OwnerID != uuid.Nil && data.OwnerID == r.deps.State.Registry.SelfID()
	if _, err := r.deps.Spawner.Spawn(data.Kind, data.EntityID, data.OwnerID, applyTransform(data.Transform), direct); err != nil {
		r.deps.Log.Warn("replicated spawn failed",
			zap.String("kind", data.Kind),
			zap.String("net_id", data.EntityID.String()),
			zap.Error(err),
		)
	}
}

// applyServerTransform overwrites a mirrored transform with the server's
// snapshot. Entities this client owns are never touched; the local
// simulation is authoritative for them.
func (r *Replication) applyServerTransform(env *net.Envelope) {
	data, err := wire.DecodeTransform(env.Payload)
	if err != nil {
		r.deps.Log.Warn("malformed transform payload, discarding", zap.Error(err))
		return
	}
	st := r.deps.State
	id, ok := st.Registry.EntityByNet(data.NetID)
	if !ok {
		return // snapshot for an entity we have not spawned yet, or already dropped
	}
	rep, ok := st.Replicated.Get(id)
	if !ok {
		return
	}
	if rep.OwnerID == st.Registry.SelfID() && rep.OwnerID != uuid.Nil {
		return
	}
	if tf, ok := st.Transforms.Get(id); ok {
		*tf = applyTransform(data)
	}
}

// ── Shared ──────────────────────────────────────────────────────────

func (r *Replication) dispatchCustom(env *net.Envelope) {
	fn, ok := r.custom[env.CustomTag]
	if !ok {
		r.deps.Log.Warn("no handler for custom tag, discarding", zap.String("tag", env.CustomTag))
		return
	}
	fn(env.Origin, env.Payload)
}

func (r *Replication) onDespawnNotice(origin net.Identity, payload []byte) {
	rd := wire.NewReader(payload)
	netID := rd.ReadUUID()
	if err := rd.Err(); err != nil {
		r.deps.Log.Warn("malformed despawn notice, discarding", zap.Error(err))
		return
	}
	if r.deps.State.IsServer() {
		// Only the owner may despawn its entity remotely. Server-owned
		// entities have no remote owner, so an anonymous or nil origin can
		// never match one.
		id, ok := r.deps.State.Registry.EntityByNet(netID)
		if !ok {
			return
		}
		rep, ok := r.deps.State.Replicated.Get(id)
		if !ok || origin.ClientID == uuid.Nil || rep.OwnerID == uuid.Nil || rep.OwnerID != origin.ClientID {
			r.deps.Log.Warn("despawn notice from non-owner, discarding",
				zap.String("net_id", netID.String()),
			)
			return
		}
	}
	r.deps.Spawner.Despawn(netID)
}

func (r *Replication) onEntitySpawned(ev event.EntitySpawned) {
	st := r.deps.State
	tf, ok := st.Transforms.Get(ev.EntityID)
	if !ok {
		return
	}
	r.deps.Bridge.Send(net.Envelope{
		Type:      net.MsgNewReplicated,
		Transport: net.Reliable,
		Payload:   newReplicatedPayload(ev.NetID, ev.OwnerID, ev.Kind, tf).Encode(),
		Target:    net.Broadcast(),
	})
}

func (r *Replication) onEntityDespawned(ev event.EntityDespawned) {
	w := wire.NewWriter()
	w.WriteUUID(ev.NetID)
	r.deps.Bridge.Send(net.Envelope{
		Type:      net.MsgComponentCustom,
		CustomTag: DespawnTag,
		Transport: net.Reliable,
		Payload:   w.Bytes(),
		Target:    net.Broadcast(),
	})
}

// onClientJoined sends the full catalogue of live replicated entities to a
// newcomer so it starts from the same world everyone else sees.
func (r *Replication) onClientJoined(ev event.ClientJoined) {
	st := r.deps.State
	ecs.Each2(st.Replicated, st.Transforms, func(_ ecs.EntityID, rep *sim.Replicated, tf *sim.Transform) {
		r.deps.Bridge.Send(net.Envelope{
			Type:      net.MsgNewReplicated,
			Transport: net.Reliable,
			Payload:   newReplicatedPayload(rep.NetID, rep.OwnerID, rep.Kind, tf).Encode(),
			Target:    net.ToClient(ev.ClientID),
		})
	})
}

func transformPayload(netID uuid.UUID, tf *sim.Transform) wire.TransformData {
	return wire.TransformData{
		NetID:    netID,
		Position: tf.Pos,
		Rotation: tf.Rot,
		Scale:    tf.Scale,
	}
}

func newReplicatedPayload(netID, ownerID uuid.UUID, kind string, tf *sim.Transform) wire.NewReplicatedData {
	return wire.NewReplicatedData{
		OwnerID:   ownerID,
		EntityID:  netID,
		Kind:      kind,
		Transform: transformPayload(netID, tf),
	}
}

func applyTransform(d wire.TransformData) sim.Transform {
	return sim.Transform{Pos: d.Position, Rot: d.Rotation, Scale: d.Scale}
}
