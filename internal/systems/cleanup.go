package systems

import (
	"time"

	"github.com/ospreygo/netsync/internal/core/ecs"
	coresys "github.com/ospreygo/netsync/internal/core/system"
)

// Cleanup flushes deferred entity destruction at the end of each tick.
type Cleanup struct {
	world *ecs.World
}

func NewCleanup(world *ecs.World) *Cleanup { return &Cleanup{world: world} }

func (c *Cleanup) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (c *Cleanup) Update(_ time.Duration) {
	c.world.FlushDestroyQueue()
}
