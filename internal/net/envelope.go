package net

import (
	"fmt"
	"net"

	"github.com/google/uuid"
)

// MessageType is the closed catalogue of wire messages. Every handler switch
// over it must list each member explicitly so a new type fails loudly at
// review time rather than being silently ignored.
type MessageType byte

const (
	MsgUnknown MessageType = iota
	MsgConnectionRequest
	MsgConnectionAccept
	MsgConnectionKeepAlive
	MsgNewClient
	MsgNewReplicated
	MsgComponentTransform
	MsgComponentCustom // carries a tag naming the custom component
	MsgChatMessage
	MsgPlayerInput
)

func (t MessageType) String() string {
	switch t {
	case MsgUnknown:
		return "Unknown"
	case MsgConnectionRequest:
		return "ConnectionRequest"
	case MsgConnectionAccept:
		return "ConnectionAccept"
	case MsgConnectionKeepAlive:
		return "ConnectionKeepAlive"
	case MsgNewClient:
		return "NewClient"
	case MsgNewReplicated:
		return "NewReplicated"
	case MsgComponentTransform:
		return "ComponentTransform"
	case MsgComponentCustom:
		return "ComponentCustom"
	case MsgChatMessage:
		return "ChatMessage"
	case MsgPlayerInput:
		return "PlayerInput"
	default:
		return fmt.Sprintf("MessageType(%d)", byte(t))
	}
}

// Transport selects the channel an outbound envelope travels on.
type Transport byte

const (
	Reliable   Transport = iota // TCP: ordered, delivered
	Unreliable                  // UDP: best-effort, last write wins
)

func (t Transport) String() string {
	if t == Reliable {
		return "reliable"
	}
	return "unreliable"
}

// TargetKind addresses an outbound envelope.
type TargetKind byte

const (
	TargetUnknown   TargetKind = iota
	TargetServer               // client → server
	TargetBroadcast            // server → every registered client
	TargetClient               // server → one client
)

type Target struct {
	Kind   TargetKind
	Client uuid.UUID // set when Kind == TargetClient
}

func ToServer() Target             { return Target{Kind: TargetServer} }
func Broadcast() Target            { return Target{Kind: TargetBroadcast} }
func ToClient(id uuid.UUID) Target { return Target{Kind: TargetClient, Client: id} }

// Identity names the peer an inbound envelope arrived from. ClientID is
// uuid.Nil until the handshake binds one.
type Identity struct {
	ClientID uuid.UUID
	Addr     net.Addr
}

// Envelope is the only value that crosses between the transport domain and
// the simulation domain, in either direction.
type Envelope struct {
	Type      MessageType
	CustomTag string // set when Type == MsgComponentCustom
	Transport Transport
	Payload   []byte

	Origin Identity // inbound only
	Target Target   // outbound only
}
