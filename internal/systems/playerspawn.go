package systems

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ospreygo/netsync/internal/core/event"
	coresys "github.com/ospreygo/netsync/internal/core/system"
	"github.com/ospreygo/netsync/internal/sim"
)

// PlayerKind is the archetype spawned for every joining client.
const PlayerKind = "player"

// PlayerSpawn gives each joining client a body. Server only; clients learn
// about the entity through the usual replication notices.
type PlayerSpawn struct {
	state   *sim.State
	spawner *sim.Spawner
	log     *zap.Logger
	spawned int
}

func NewPlayerSpawn(state *sim.State, spawner *sim.Spawner, log *zap.Logger) *PlayerSpawn {
	ps := &PlayerSpawn{state: state, spawner: spawner, log: log}
	if state.IsServer() {
		event.Subscribe(state.Bus, ps.onClientJoined)
	}
	return ps
}

func (ps *PlayerSpawn) Phase() coresys.Phase { return coresys.PhaseSpawn }

func (ps *PlayerSpawn) Update(_ time.Duration) {}

func (ps *PlayerSpawn) onClientJoined(ev event.ClientJoined) {
	tf := sim.DefaultTransform()
	// Stagger spawn points so simultaneous joiners do not overlap.
	tf.Pos.X = float32(ps.spawned) * 2
	ps.spawned++

	if _, err := ps.spawner.Spawn(PlayerKind, uuid.New(), ev.ClientID, tf, false); err != nil {
		ps.log.Error("player spawn failed",
			zap.String("client", ev.ClientID.String()),
			zap.Error(err),
		)
	}
}
