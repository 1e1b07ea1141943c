package handler

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ospreygo/netsync/internal/core/ecs"
	"github.com/ospreygo/netsync/internal/core/event"
	coresys "github.com/ospreygo/netsync/internal/core/system"
	"github.com/ospreygo/netsync/internal/net"
	"github.com/ospreygo/netsync/internal/net/wire"
	"github.com/ospreygo/netsync/internal/sim"
)

// ClientState is the client-side connection state machine.
type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
)

func (s ClientState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	default:
		return "Invalid"
	}
}

// Connection runs the handshake and keep-alive state machine once per tick.
// Server side: assigns identities, answers connection requests, announces new
// clients to everyone else, and enforces the drop threshold. Client side:
// walks Disconnected → Connecting → Connected, retries connect requests, and
// falls back to Disconnected when the server goes silent past the threshold.
type Connection struct {
	deps *Deps
	rx   <-chan net.Envelope

	state         ClientState
	lastAttempt   time.Time
	lastKeepAlive time.Time

	now func() time.Time // injectable clock
}

func NewConnection(deps *Deps) *Connection {
	c := &Connection{
		deps: deps,
		now:  time.Now,
	}
	if deps.Online() {
		c.rx = deps.Bridge.Subscribe()
	}
	return c
}

func (c *Connection) Phase() coresys.Phase { return coresys.PhaseConnection }

// State exposes the client-side machine for the driver and tests.
func (c *Connection) State() ClientState { return c.state }

func (c *Connection) Update(_ time.Duration) {
	if !c.deps.Online() {
		return
	}
	if c.deps.State.IsServer() {
		c.updateServer()
	} else {
		c.updateClient()
	}
}

// ── Server side ─────────────────────────────────────────────────────

func (c *Connection) updateServer() {
	now := c.now()
	reg := c.deps.State.Registry

	for i := 0; i < c.deps.Cfg.Simulation.MaxMessagesPerTick; i++ {
		select {
		case env := <-c.rx:
			// Any traffic from a bound client counts as a keep-alive.
			if env.Origin.ClientID != uuid.Nil {
				reg.Touch(env.Origin.ClientID, now)
			}
			switch env.Type {
			case net.MsgConnectionRequest:
				c.acceptClient(&env, now)
			case net.MsgConnectionKeepAlive,
				net.MsgChatMessage,
				net.MsgPlayerInput,
				net.MsgComponentTransform,
				net.MsgComponentCustom:
				// Traffic for other handlers; the Touch above is all we need.
			case net.MsgConnectionAccept, net.MsgNewClient, net.MsgNewReplicated, net.MsgUnknown:
				c.deps.Log.Warn("unexpected message on server",
					zap.String("type", env.Type.String()),
					zap.String("from", env.Origin.Addr.String()),
				)
			}
		default:
			goto drained
		}
	}
drained:

	// Keep-alive to every client at the configured interval.
	if now.Sub(c.lastKeepAlive) >= c.deps.Cfg.Network.KeepAliveInterval {
		c.lastKeepAlive = now
		c.deps.Bridge.Send(net.Envelope{
			Type:      net.MsgConnectionKeepAlive,
			Transport: net.Reliable,
			Target:    net.Broadcast(),
		})
	}

	// Drop-threshold enforcement: a silent session loses its identity and
	// every entity it owns.
	for _, clientID := range reg.Expired(now, c.deps.Cfg.Network.DropThreshold) {
		c.dropClient(clientID, "keep-alive timeout")
	}
}

// acceptClient answers a connection request. Requests from an already
// registered address just get the accept again; the first reply may have
// been lost and the handshake must stay idempotent.
func (c *Connection) acceptClient(env *net.Envelope, now time.Time) {
	reg := c.deps.State.Registry

	if existing := reg.SessionByAddr(env.Origin.Addr); existing != nil {
		existing.LastSeen = now
		c.sendAccept(existing.ClientID)
		return
	}

	clientID := uuid.New()
	name := clientName(c.deps.Cfg.Server.DisplayName, clientID)
	sess := reg.AddSession(clientID, env.Origin.Addr, now)
	sess.Name = name
	c.deps.Binder.Bind(clientID, env.Origin.Addr)

	c.deps.Log.Info("client registered",
		zap.String("client", clientID.String()),
		zap.String("name", name),
		zap.String("addr", env.Origin.Addr.String()),
	)

	c.sendAccept(clientID)

	// Announce to every other registered client, never to the new one.
	notice := wire.NewClientData{ClientID: clientID, Name: name}.Encode()
	reg.EachSession(func(s *sim.PlayerSession) {
		if s.ClientID == clientID {
			return
		}
		c.deps.Bridge.Send(net.Envelope{
			Type:      net.MsgNewClient,
			Transport: net.Reliable,
			Payload:   notice,
			Target:    net.ToClient(s.ClientID),
		})
	})

	event.Emit(c.deps.State.Bus, event.ClientJoined{
		ClientID: clientID,
		Name:     name,
	})
}

// clientName derives a stable per-client tag. Clients do not send a name
// during the handshake, so the server mints one from the assigned identity.
func clientName(prefix string, clientID uuid.UUID) string {
	return prefix + "-" + clientID.String()[:8]
}

func (c *Connection) sendAccept(clientID uuid.UUID) {
	c.deps.Bridge.Send(net.Envelope{
		Type:      net.MsgConnectionAccept,
		Transport: net.Reliable,
		Payload:   wire.ConnectionAcceptData{ClientID: clientID}.Encode(),
		Target:    net.ToClient(clientID),
	})
}

func (c *Connection) dropClient(clientID uuid.UUID, reason string) {
	reg := c.deps.State.Registry
	owned := reg.RemoveSession(clientID)
	for _, netID := range owned {
		c.deps.Spawner.Despawn(netID)
	}
	if c.deps.Binder != nil {
		c.deps.Binder.Drop(clientID)
	}
	c.deps.Log.Info("client dropped",
		zap.String("client", clientID.String()),
		zap.String("reason", reason),
		zap.Int("owned_entities", len(owned)),
	)
	event.Emit(c.deps.State.Bus, event.ClientLeft{ClientID: clientID})
}

// ── Client side ─────────────────────────────────────────────────────

func (c *Connection) updateClient() {
	now := c.now()
	reg := c.deps.State.Registry

	for i := 0; i < c.deps.Cfg.Simulation.MaxMessagesPerTick; i++ {
		select {
		case env := <-c.rx:
			// Any server traffic proves the link is alive.
			reg.ServerLastSeen = now
			switch env.Type {
			case net.MsgConnectionAccept:
				c.handleAccept(&env, now)
			case net.MsgNewClient:
				data, err := wire.DecodeNewClient(env.Payload)
				if err != nil {
					c.deps.Log.Warn("malformed NewClient payload, discarding", zap.Error(err))
					continue
				}
				event.Emit(c.deps.State.Bus, event.ClientJoined{ClientID: data.ClientID, Name: data.Name})
			case net.MsgConnectionKeepAlive,
				net.MsgNewReplicated,
				net.MsgComponentTransform,
				net.MsgComponentCustom,
				net.MsgChatMessage:
				// Other handlers' traffic; ServerLastSeen already refreshed.
			case net.MsgConnectionRequest, net.MsgPlayerInput, net.MsgUnknown:
				c.deps.Log.Warn("unexpected message on client", zap.String("type", env.Type.String()))
			}
		default:
			goto drained
		}
	}
drained:

	// Transport death or server silence both push us back to Disconnected;
	// reconnection is re-initiated here, never by the transport tasks.
	if c.state != StateDisconnected {
		alive := c.deps.TransportAlive == nil || c.deps.TransportAlive()
		silent := c.state == StateConnected &&
			now.Sub(reg.ServerLastSeen) > c.deps.Cfg.Network.DropThreshold
		if !alive || silent {
			c.disconnect()
			return
		}
	}

	switch c.state {
	case StateDisconnected:
		// Dialing is synchronous; pacing it keeps a dead server from
		// turning every tick into a blocking connect attempt.
		if c.lastAttempt.IsZero() || now.Sub(c.lastAttempt) >= c.deps.Cfg.Network.RetryInterval {
			c.tryConnect(now)
		}
	case StateConnecting:
		if now.Sub(c.lastAttempt) >= c.deps.Cfg.Network.RetryInterval {
			c.tryConnect(now)
		}
	case StateConnected:
		if now.Sub(c.lastKeepAlive) >= c.deps.Cfg.Network.KeepAliveInterval {
			c.lastKeepAlive = now
			// Reliable keep-alive for liveness; an unreliable twin keeps the
			// datagram return path fresh on the server.
			c.deps.Bridge.Send(net.Envelope{
				Type:      net.MsgConnectionKeepAlive,
				Transport: net.Reliable,
				Target:    net.ToServer(),
			})
			c.deps.Bridge.Send(net.Envelope{
				Type:      net.MsgConnectionKeepAlive,
				Transport: net.Unreliable,
				Target:    net.ToServer(),
			})
		}
	}
}

func (c *Connection) handleAccept(env *net.Envelope, now time.Time) {
	data, err := wire.DecodeConnectionAccept(env.Payload)
	if err != nil {
		c.deps.Log.Warn("malformed ConnectionAccept payload, discarding", zap.Error(err))
		return
	}
	if c.state == StateConnected {
		return // duplicate accept from a retried request
	}
	reg := c.deps.State.Registry
	reg.Self = &sim.PlayerSession{ClientID: data.ClientID, Addr: env.Origin.Addr, LastSeen: now}
	reg.ServerLastSeen = now
	c.state = StateConnected
	c.deps.Log.Info("identity assigned", zap.String("client", data.ClientID.String()))
}

func (c *Connection) tryConnect(now time.Time) {
	c.lastAttempt = now
	if c.deps.TransportAlive != nil && !c.deps.TransportAlive() {
		if c.deps.Redial == nil {
			return
		}
		if err := c.deps.Redial(); err != nil {
			c.deps.Log.Warn("connect attempt failed", zap.Error(err))
			return
		}
	}
	c.state = StateConnecting
	c.deps.Bridge.Send(net.Envelope{
		Type:      net.MsgConnectionRequest,
		Transport: net.Reliable,
		Target:    net.ToServer(),
	})
	c.deps.Log.Info("connection requested")
}

// disconnect clears the assigned identity and every replicated mirror; the
// next session gets fresh net_ids, so nothing from this one may survive.
func (c *Connection) disconnect() {
	c.deps.Log.Warn("server lost, disconnecting", zap.String("state", c.state.String()))
	c.state = StateDisconnected

	reg := c.deps.State.Registry
	reg.Self = nil
	reg.ServerLastSeen = time.Time{}

	var netIDs []uuid.UUID
	c.deps.State.Replicated.Each(func(_ ecs.EntityID, rep *sim.Replicated) {
		netIDs = append(netIDs, rep.NetID)
	})
	for _, netID := range netIDs {
		c.deps.Spawner.Despawn(netID)
	}
}
