package systems

import (
	"time"

	"github.com/ospreygo/netsync/internal/core/ecs"
	coresys "github.com/ospreygo/netsync/internal/core/system"
	"github.com/ospreygo/netsync/internal/geom"
	"github.com/ospreygo/netsync/internal/sim"
)

// Movement integrates one tick of kinematic motion from pending intent.
// Intent is consumed exactly once; an entity with no fresh intent holds
// still. The client runs this for its own entities, the server for every
// controllable entity that forwarded intent this tick.
type Movement struct {
	state *sim.State
}

func NewMovement(state *sim.State) *Movement { return &Movement{state: state} }

func (m *Movement) Phase() coresys.Phase { return coresys.PhaseSimulate }

func (m *Movement) Update(dt time.Duration) {
	step := float32(dt.Seconds())
	ecs.Each2(m.state.Movements, m.state.Transforms, func(_ ecs.EntityID, mv *sim.Movement, tf *sim.Transform) {
		if !mv.HasIntent {
			return
		}
		mv.HasIntent = false

		tf.Rot = mv.ReqRotation

		var dir geom.Vec3
		if mv.ReqFlags&sim.FlagForward != 0 {
			dir = dir.Add(tf.Rot.Forward())
		}
		if mv.ReqFlags&sim.FlagBack != 0 {
			dir = dir.Add(tf.Rot.Forward().Scale(-1))
		}
		if mv.ReqFlags&sim.FlagRight != 0 {
			dir = dir.Add(tf.Rot.Right())
		}
		if mv.ReqFlags&sim.FlagLeft != 0 {
			dir = dir.Add(tf.Rot.Right().Scale(-1))
		}

		speed := mv.Speed
		if mv.ReqFlags&sim.FlagShift != 0 {
			speed *= mv.Boost
		}
		if mv.ReqFlags&sim.FlagCtrl != 0 {
			speed *= mv.Slow
		}

		if dir.Length() > 0 {
			tf.Pos = tf.Pos.Add(dir.Normalized().Scale(speed * step))
		}
		if mv.ReqFlags&sim.FlagJump != 0 {
			tf.Pos.Y += mv.Jump * step
		}
	})
}
