package systems

import (
	"time"

	"github.com/ospreygo/netsync/internal/core/event"
	coresys "github.com/ospreygo/netsync/internal/core/system"
)

// Events pumps the event bus. It must be registered before anything else in
// its phase so subscribers see last tick's events before new work begins.
type Events struct {
	bus *event.Bus
}

func NewEvents(bus *event.Bus) *Events { return &Events{bus: bus} }

func (e *Events) Phase() coresys.Phase { return coresys.PhaseConnection }

func (e *Events) Update(_ time.Duration) {
	e.bus.SwapBuffers()
	e.bus.DispatchAll()
}
