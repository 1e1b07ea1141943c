package net

import (
	"sync"

	"go.uber.org/zap"
)

// Bridge is the only crossing between the simulation domain and the transport
// domain. Outbound is a bounded queue with a single consumer (the transport's
// route loop). Inbound fans out to every subscribed handler; each subscriber
// owns its receiver and a slow one loses its own messages, never anyone
// else's. Both directions drop rather than block: the tick loop must never
// stall on network volume, mirroring the unreliable channel's semantics.
type Bridge struct {
	outbound chan Envelope
	subSize  int

	mu   sync.RWMutex
	subs []chan Envelope

	log *zap.Logger
}

func NewBridge(outSize, inSize int, log *zap.Logger) *Bridge {
	return &Bridge{
		outbound: make(chan Envelope, outSize),
		subSize:  inSize,
		log:      log,
	}
}

// Send queues an outbound envelope. Never blocks; on a full queue the
// envelope is dropped and the drop is logged.
func (b *Bridge) Send(env Envelope) bool {
	select {
	case b.outbound <- env:
		return true
	default:
		b.log.Warn("outbound queue full, dropping envelope",
			zap.String("type", env.Type.String()),
			zap.String("transport", env.Transport.String()),
		)
		return false
	}
}

// Outbound returns the queue the transport route loop drains.
func (b *Bridge) Outbound() <-chan Envelope {
	return b.outbound
}

// Subscribe returns a fresh inbound receiver. Handlers call this once at
// setup and keep the channel for their lifetime.
func (b *Bridge) Subscribe() <-chan Envelope {
	ch := make(chan Envelope, b.subSize)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish fans an inbound envelope out to every subscriber. Per-subscriber
// non-blocking: a full receiver drops this envelope for that subscriber only.
func (b *Bridge) Publish(env Envelope) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- env:
		default:
			b.log.Warn("inbound receiver full, dropping envelope",
				zap.String("type", env.Type.String()),
			)
		}
	}
}
