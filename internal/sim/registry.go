package sim

import (
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/ospreygo/netsync/internal/core/ecs"
)

// PlayerSession is one registered peer: every connected client on the server,
// the single Self on a client once the handshake assigns an identity.
type PlayerSession struct {
	ClientID uuid.UUID
	Name     string
	Addr     net.Addr
	LastSeen time.Time
}

// Registry is the simulation-domain connection and replication table. It is
// owned by the state and passed by reference into handlers each tick; all
// access happens on the tick goroutine, so there is no locking. Cross
// references are plain id lookups re-validated at use, since the referent
// may have been removed since it was recorded.
type Registry struct {
	sessions map[uuid.UUID]*PlayerSession
	byAddr   map[string]uuid.UUID

	// net_id → local entity, plus a secondary index owner → owned net_ids.
	byNet map[uuid.UUID]ecs.EntityID
	owned map[uuid.UUID]map[uuid.UUID]struct{}

	// Client-side only.
	Self           *PlayerSession
	ServerLastSeen time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]*PlayerSession),
		byAddr:   make(map[string]uuid.UUID),
		byNet:    make(map[uuid.UUID]ecs.EntityID),
		owned:    make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// AddSession registers a client identity. Any inbound traffic from it later
// refreshes LastSeen via Touch.
func (r *Registry) AddSession(clientID uuid.UUID, addr net.Addr, now time.Time) *PlayerSession {
	s := &PlayerSession{ClientID: clientID, Addr: addr, LastSeen: now}
	r.sessions[clientID] = s
	if addr != nil {
		r.byAddr[addr.String()] = clientID
	}
	return s
}

func (r *Registry) Session(clientID uuid.UUID) *PlayerSession {
	return r.sessions[clientID]
}

// SessionByAddr resolves a network address to a registered session.
func (r *Registry) SessionByAddr(addr net.Addr) *PlayerSession {
	if addr == nil {
		return nil
	}
	id, ok := r.byAddr[addr.String()]
	if !ok {
		return nil
	}
	return r.sessions[id]
}

func (r *Registry) SessionCount() int {
	return len(r.sessions)
}

func (r *Registry) EachSession(fn func(*PlayerSession)) {
	for _, s := range r.sessions {
		fn(s)
	}
}

// Touch refreshes the keep-alive timestamp for a client.
func (r *Registry) Touch(clientID uuid.UUID, now time.Time) {
	if s, ok := r.sessions[clientID]; ok {
		s.LastSeen = now
	}
}

// Expired returns every session silent for longer than threshold.
func (r *Registry) Expired(now time.Time, threshold time.Duration) []uuid.UUID {
	var out []uuid.UUID
	for id, s := range r.sessions {
		if now.Sub(s.LastSeen) > threshold {
			out = append(out, id)
		}
	}
	return out
}

// RemoveSession drops a client and returns the net_ids it owned, for the
// caller to despawn.
func (r *Registry) RemoveSession(clientID uuid.UUID) []uuid.UUID {
	s, ok := r.sessions[clientID]
	if !ok {
		return nil
	}
	delete(r.sessions, clientID)
	if s.Addr != nil {
		delete(r.byAddr, s.Addr.String())
	}
	ownedSet := r.owned[clientID]
	out := make([]uuid.UUID, 0, len(ownedSet))
	for netID := range ownedSet {
		out = append(out, netID)
	}
	return out
}

// BindEntity records net_id → entity and indexes ownership.
func (r *Registry) BindEntity(netID, ownerID uuid.UUID, entity ecs.EntityID) {
	r.byNet[netID] = entity
	if ownerID == uuid.Nil {
		return
	}
	set, ok := r.owned[ownerID]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		r.owned[ownerID] = set
	}
	set[netID] = struct{}{}
}

// UnbindEntity removes the net_id from both indices.
func (r *Registry) UnbindEntity(netID, ownerID uuid.UUID) {
	delete(r.byNet, netID)
	if set, ok := r.owned[ownerID]; ok {
		delete(set, netID)
		if len(set) == 0 {
			delete(r.owned, ownerID)
		}
	}
}

// EntityByNet resolves a net_id to the local entity mirroring it.
func (r *Registry) EntityByNet(netID uuid.UUID) (ecs.EntityID, bool) {
	e, ok := r.byNet[netID]
	return e, ok
}

// SelfID returns the assigned local identity, or uuid.Nil before handshake.
func (r *Registry) SelfID() uuid.UUID {
	if r.Self == nil {
		return uuid.Nil
	}
	return r.Self.ClientID
}
