package system

import "time"

// Phase defines execution ordering within a single tick. Handlers that depend
// on another handler's output run in a later phase; ordering inside one phase
// is registration order.
type Phase int

const (
	PhaseConnection  Phase = iota // 0: handshake, keep-alive, session lifecycle
	PhaseSpawn                    // 1: entity spawn/despawn propagation
	PhaseSimulate                 // 2: movement integration (authoritative transforms)
	PhaseReplicate                // 3: transform sync, ownership registration
	PhaseIntent                   // 4: player input collection/application
	PhaseCleanup                  // 5: destroy queued entities
)

// System is implemented by everything the tick driver runs.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
