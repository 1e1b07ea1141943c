package sim

import (
	"github.com/ospreygo/netsync/internal/core/ecs"
	"github.com/ospreygo/netsync/internal/core/event"
)

// Role says which end of the protocol this process is.
type Role int

const (
	RoleServer Role = iota
	RoleClient
)

// State is the per-tick readable/writable simulation state handed to every
// handler: the ECS world, the component tables, the connection registry, and
// the event bus. Single-goroutine access during a tick.
type State struct {
	Role Role

	World      *ecs.World
	Transforms *ecs.Store[Transform]
	Replicated *ecs.Store[Replicated]
	Movements  *ecs.Store[Movement]

	Registry *Registry
	Bus      *event.Bus
}

func NewState(role Role) *State {
	s := &State{
		Role:       role,
		World:      ecs.NewWorld(),
		Transforms: ecs.NewStore[Transform](),
		Replicated: ecs.NewStore[Replicated](),
		Movements:  ecs.NewStore[Movement](),
		Registry:   NewRegistry(),
		Bus:        event.NewBus(),
	}
	s.World.Registry().Register(s.Transforms)
	s.World.Registry().Register(s.Replicated)
	s.World.Registry().Register(s.Movements)
	return s
}

func (s *State) IsServer() bool { return s.Role == RoleServer }
