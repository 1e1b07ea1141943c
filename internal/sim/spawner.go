package sim

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ospreygo/netsync/internal/core/ecs"
	"github.com/ospreygo/netsync/internal/core/event"
)

// Archetype is the template a replicated kind resolves to. Definitions come
// from the script engine; the zero archetype is a static prop.
type Archetype struct {
	Kind  string
	Scale float32

	Speed float32
	Boost float32
	Slow  float32
	Jump  float32

	// Controllable marks kinds that accept input intent (players).
	Controllable bool
}

// ArchetypeSource resolves a kind tag to its archetype. The script engine
// implements this; tests use a plain map.
type ArchetypeSource interface {
	Archetype(kind string) (Archetype, bool)
}

// Spawner is the entity-spawning façade: it turns spawn requests and inbound
// NewReplicated notices into concrete local entities with replication
// bookkeeping attached. Model and asset resolution stays out of scope; a
// kind tag resolves only to simulation properties.
type Spawner struct {
	state *State
	arch  ArchetypeSource
	log   *zap.Logger
}

func NewSpawner(state *State, arch ArchetypeSource, log *zap.Logger) *Spawner {
	return &Spawner{state: state, arch: arch, log: log}
}

// Spawn creates a local entity for the given replicated identity. On the
// server netID is freshly generated by the caller; on a client it arrived in
// a NewReplicated notice. directControl marks entities this process
// simulates rather than mirrors.
func (sp *Spawner) Spawn(kind string, netID, ownerID uuid.UUID, tf Transform, directControl bool) (ecs.EntityID, error) {
	if _, exists := sp.state.Registry.EntityByNet(netID); exists {
		return 0, fmt.Errorf("net_id %s already spawned", netID)
	}
	arch, ok := sp.arch.Archetype(kind)
	if !ok {
		return 0, fmt.Errorf("unknown entity kind %q", kind)
	}

	id := sp.state.World.CreateEntity()
	if arch.Scale != 0 {
		tf.Scale = tf.Scale.Scale(arch.Scale)
	}
	sp.state.Transforms.Set(id, &tf)
	sp.state.Replicated.Set(id, &Replicated{NetID: netID, OwnerID: ownerID, Kind: kind})
	if arch.Controllable {
		sp.state.Movements.Set(id, &Movement{
			Speed:         arch.Speed,
			Boost:         arch.Boost,
			Slow:          arch.Slow,
			Jump:          arch.Jump,
			DirectControl: directControl,
		})
	}
	sp.state.Registry.BindEntity(netID, ownerID, id)

	event.Emit(sp.state.Bus, event.EntitySpawned{
		EntityID: id,
		NetID:    netID,
		OwnerID:  ownerID,
		Kind:     kind,
	})
	sp.log.Info("entity spawned",
		zap.String("kind", kind),
		zap.String("net_id", netID.String()),
		zap.String("owner", ownerID.String()),
	)
	return id, nil
}

// Despawn removes a replicated entity and its bookkeeping. Destruction is
// deferred to the cleanup phase.
func (sp *Spawner) Despawn(netID uuid.UUID) {
	id, ok := sp.state.Registry.EntityByNet(netID)
	if !ok {
		return
	}
	ownerID := uuid.Nil
	if rep, ok := sp.state.Replicated.Get(id); ok {
		ownerID = rep.OwnerID
	}
	sp.state.Registry.UnbindEntity(netID, ownerID)
	sp.state.World.MarkForDestruction(id)

	event.Emit(sp.state.Bus, event.EntityDespawned{EntityID: id, NetID: netID})
	sp.log.Info("entity despawned", zap.String("net_id", netID.String()))
}
