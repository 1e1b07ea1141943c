package handler

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	coresys "github.com/ospreygo/netsync/internal/core/system"
	"github.com/ospreygo/netsync/internal/net"
	"github.com/ospreygo/netsync/internal/net/wire"
	"github.com/ospreygo/netsync/internal/sim"
)

// Chat relays text lines. The server stamps each line with the sender's
// identity and forwards it to every other client; clients just surface what
// arrives.
type Chat struct {
	deps *Deps
	rx   <-chan net.Envelope
}

func NewChat(deps *Deps) *Chat {
	c := &Chat{deps: deps}
	if deps.Online() {
		c.rx = deps.Bridge.Subscribe()
	}
	return c
}

func (c *Chat) Phase() coresys.Phase { return coresys.PhaseReplicate }

// Say queues a chat line for the server. No-op offline.
func (c *Chat) Say(text string) {
	if !c.deps.Online() || text == "" {
		return
	}
	c.deps.Bridge.Send(net.Envelope{
		Type:      net.MsgChatMessage,
		Transport: net.Reliable,
		Payload:   wire.ChatData{From: c.deps.State.Registry.SelfID(), Text: text}.Encode(),
		Target:    net.ToServer(),
	})
}

func (c *Chat) Update(_ time.Duration) {
	if c.rx == nil {
		return
	}
	for i := 0; i < c.deps.Cfg.Simulation.MaxMessagesPerTick; i++ {
		select {
		case env := <-c.rx:
			if env.Type != net.MsgChatMessage {
				continue
			}
			data, err := wire.DecodeChat(env.Payload)
			if err != nil {
				c.deps.Log.Warn("malformed chat payload, discarding", zap.Error(err))
				continue
			}
			if c.deps.State.IsServer() {
				c.relay(env.Origin.ClientID, data.Text)
			} else {
				c.deps.Log.Info("chat",
					zap.String("from", data.From.String()),
					zap.String("text", data.Text),
				)
			}
		default:
			return
		}
	}
}

// relay re-stamps the line with the identity the server established for the
// sender and fans it out to everyone else. The From field a client wrote is
// never trusted.
func (c *Chat) relay(from uuid.UUID, text string) {
	if from == uuid.Nil {
		return // unbound session, no identity to attribute the line to
	}
	payload := wire.ChatData{From: from, Text: text}.Encode()
	c.deps.State.Registry.EachSession(func(s *sim.PlayerSession) {
		if s.ClientID == from {
			return
		}
		c.deps.Bridge.Send(net.Envelope{
			Type:      net.MsgChatMessage,
			Transport: net.Reliable,
			Payload:   payload,
			Target:    net.ToClient(s.ClientID),
		})
	})
}
