package handler

import (
	gonet "net"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ospreygo/netsync/internal/config"
	"github.com/ospreygo/netsync/internal/geom"
	"github.com/ospreygo/netsync/internal/net"
	"github.com/ospreygo/netsync/internal/sim"
)

// PeerBinder is the server transport's control surface: mirror a handshake
// result into the demux tables, or tear a peer down.
type PeerBinder interface {
	Bind(clientID uuid.UUID, addr gonet.Addr)
	Drop(clientID uuid.UUID)
}

// InputSource samples local player intent once per tick: desired absolute
// orientation plus the pressed-flag set.
type InputSource interface {
	Sample() (geom.Quat, byte)
}

// Deps holds the shared dependencies injected into every protocol handler.
// Bridge is nil when the process runs without networking; every handler
// checks and no-ops, so offline play stays fully operable.
type Deps struct {
	Cfg     *config.Config
	Log     *zap.Logger
	State   *sim.State
	Spawner *sim.Spawner

	Bridge *net.Bridge

	// Server side.
	Binder PeerBinder

	// Client side.
	Redial         func() error // re-dial the transport after a drop
	TransportAlive func() bool
	Input          InputSource
}

// Online reports whether the networking resource is present.
func (d *Deps) Online() bool {
	return d.Bridge != nil
}
