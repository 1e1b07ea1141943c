package event

import (
	"github.com/google/uuid"

	"github.com/ospreygo/netsync/internal/core/ecs"
)

// Replication lifecycle events. Game-side systems subscribe to these instead
// of reading protocol traffic directly.

type ClientJoined struct {
	ClientID uuid.UUID
	Name     string
}

type ClientLeft struct {
	ClientID uuid.UUID
}

type EntitySpawned struct {
	EntityID ecs.EntityID
	NetID    uuid.UUID
	OwnerID  uuid.UUID
	Kind     string
}

type EntityDespawned struct {
	EntityID ecs.EntityID
	NetID    uuid.UUID
}
