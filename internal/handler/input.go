package handler

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ospreygo/netsync/internal/core/ecs"
	coresys "github.com/ospreygo/netsync/internal/core/system"
	"github.com/ospreygo/netsync/internal/net"
	"github.com/ospreygo/netsync/internal/net/wire"
	"github.com/ospreygo/netsync/internal/sim"
)

// Input feeds movement intent into the simulation. On a client it samples
// the local input source for every directly controlled entity, applies the
// intent locally and forwards it to the server. On the server it accepts
// forwarded intent, but only from the client that owns the entity.
type Input struct {
	deps *Deps
	rx   <-chan net.Envelope
}

func NewInput(deps *Deps) *Input {
	in := &Input{deps: deps}
	if deps.Online() && deps.State.IsServer() {
		in.rx = deps.Bridge.Subscribe()
	}
	return in
}

func (in *Input) Phase() coresys.Phase { return coresys.PhaseIntent }

func (in *Input) Update(_ time.Duration) {
	if in.deps.State.IsServer() {
		in.updateServer()
	} else {
		in.updateClient()
	}
}

func (in *Input) updateServer() {
	if in.rx == nil {
		return
	}
	for i := 0; i < in.deps.Cfg.Simulation.MaxMessagesPerTick; i++ {
		select {
		case env := <-in.rx:
			if env.Type != net.MsgPlayerInput {
				continue
			}
			in.applyRemoteIntent(&env)
		default:
			return
		}
	}
}

func (in *Input) applyRemoteIntent(env *net.Envelope) {
	data, err := wire.DecodePlayerInput(env.Payload)
	if err != nil {
		in.deps.Log.Warn("malformed input payload, discarding", zap.Error(err))
		return
	}
	st := in.deps.State
	id, ok := st.Registry.EntityByNet(data.NetID)
	if !ok {
		return // entity already gone, stale datagram
	}
	rep, ok := st.Replicated.Get(id)
	if !ok {
		return
	}
	// A pre-handshake session carries the nil identity and server-owned
	// entities carry the nil owner; neither side of the comparison may be nil
	// or the two would match.
	if env.Origin.ClientID == uuid.Nil || rep.OwnerID == uuid.Nil || rep.OwnerID != env.Origin.ClientID {
		in.deps.Log.Warn("input for entity sender does not own, discarding",
			zap.String("net_id", data.NetID.String()),
			zap.String("from", env.Origin.ClientID.String()),
			zap.String("owner", rep.OwnerID.String()),
		)
		return
	}
	mv, ok := st.Movements.Get(id)
	if !ok {
		return
	}
	mv.ReqFlags = data.Flags
	mv.ReqRotation = data.Rotation
	mv.HasIntent = true
}

func (in *Input) updateClient() {
	if in.deps.Input == nil {
		return
	}
	rot, flags := in.deps.Input.Sample()
	st := in.deps.State
	ecs.Each2(st.Movements, st.Replicated, func(_ ecs.EntityID, mv *sim.Movement, rep *sim.Replicated) {
		if !mv.DirectControl {
			return
		}
		mv.ReqFlags = flags
		mv.ReqRotation = rot
		mv.HasIntent = true

		if !in.deps.Online() {
			return
		}
		in.deps.Bridge.Send(net.Envelope{
			Type:      net.MsgPlayerInput,
			Transport: net.Unreliable,
			Payload:   wire.PlayerInputData{NetID: rep.NetID, Rotation: rot, Flags: flags}.Encode(),
			Target:    net.ToServer(),
		})
	})
}
