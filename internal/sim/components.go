package sim

import (
	"github.com/google/uuid"

	"github.com/ospreygo/netsync/internal/geom"
)

// Input intent bits. One byte on the wire.
const (
	FlagForward byte = 1 << iota
	FlagBack
	FlagLeft
	FlagRight
	FlagJump
	FlagShift
	FlagCtrl
)

// Transform is the spatial state mirrored across the network.
type Transform struct {
	Pos   geom.Vec3
	Rot   geom.Quat
	Scale geom.Vec3
}

func DefaultTransform() Transform {
	return Transform{
		Rot:   geom.Identity(),
		Scale: geom.Vec3{X: 1, Y: 1, Z: 1},
	}
}

// Replicated marks an entity as mirrored across the network. NetID is stable
// across server and clients for the session lifetime; OwnerID names the one
// party whose input intent is authoritative (uuid.Nil = the server).
type Replicated struct {
	NetID   uuid.UUID
	OwnerID uuid.UUID
	Kind    string
}

// ServerOwned reports whether no client holds input authority.
func (r *Replicated) ServerOwned() bool {
	return r.OwnerID == uuid.Nil
}

// Movement carries input intent plus the tuning constants the integrator
// applies to it. The requested fields are written by the input handler
// (locally sampled or network-received) and consumed by the movement system,
// which is the sole writer of the resulting transform.
type Movement struct {
	Speed float32
	Boost float32
	Slow  float32
	Jump  float32

	ReqFlags    byte
	ReqRotation geom.Quat
	HasIntent   bool

	// DirectControl marks entities whose transform this process simulates:
	// everything on the server, only locally predicted owned entities on a
	// client.
	DirectControl bool
}
