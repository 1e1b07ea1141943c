package wire

import (
	"github.com/google/uuid"

	"github.com/ospreygo/netsync/internal/geom"
)

// Payload schemas. Client and server must agree on these out of band; there
// is no self-describing framing below the message type tag.

// ConnectionAcceptData carries the server-assigned identity back to the
// requesting client.
type ConnectionAcceptData struct {
	ClientID uuid.UUID
}

func (d ConnectionAcceptData) Encode() []byte {
	w := NewWriter()
	w.WriteUUID(d.ClientID)
	return w.Bytes()
}

func DecodeConnectionAccept(data []byte) (ConnectionAcceptData, error) {
	r := NewReader(data)
	d := ConnectionAcceptData{ClientID: r.ReadUUID()}
	return d, r.Err()
}

// NewClientData announces a freshly registered client to everyone else.
type NewClientData struct {
	ClientID uuid.UUID
	Name     string
}

func (d NewClientData) Encode() []byte {
	w := NewWriter()
	w.WriteUUID(d.ClientID)
	w.WriteS(d.Name)
	return w.Bytes()
}

func DecodeNewClient(data []byte) (NewClientData, error) {
	r := NewReader(data)
	d := NewClientData{
		ClientID: r.ReadUUID(),
		Name:     r.ReadS(),
	}
	return d, r.Err()
}

// NewReplicatedData announces a replicated entity entering scope.
// OwnerID == uuid.Nil means server-owned.
type NewReplicatedData struct {
	OwnerID   uuid.UUID
	EntityID  uuid.UUID // the net_id
	Kind      string
	Transform TransformData
}

func (d NewReplicatedData) Encode() []byte {
	w := NewWriter()
	w.WriteUUID(d.OwnerID)
	w.WriteUUID(d.EntityID)
	w.WriteS(d.Kind)
	d.Transform.encodeBody(w)
	return w.Bytes()
}

func DecodeNewReplicated(data []byte) (NewReplicatedData, error) {
	r := NewReader(data)
	d := NewReplicatedData{
		OwnerID:  r.ReadUUID(),
		EntityID: r.ReadUUID(),
		Kind:     r.ReadS(),
	}
	d.Transform.decodeBody(r)
	return d, r.Err()
}

// TransformData is the per-tick transform snapshot for one replicated entity.
// Delivery is best-effort over the unreliable channel; last write wins.
type TransformData struct {
	NetID    uuid.UUID
	Position geom.Vec3
	Rotation geom.Quat
	Scale    geom.Vec3
}

func (d TransformData) Encode() []byte {
	w := NewWriter()
	d.encodeBody(w)
	return w.Bytes()
}

func (d TransformData) encodeBody(w *Writer) {
	w.WriteUUID(d.NetID)
	w.WriteVec3(d.Position)
	w.WriteQuat(d.Rotation)
	w.WriteVec3(d.Scale)
}

func DecodeTransform(data []byte) (TransformData, error) {
	r := NewReader(data)
	var d TransformData
	d.decodeBody(r)
	return d, r.Err()
}

func (d *TransformData) decodeBody(r *Reader) {
	d.NetID = r.ReadUUID()
	d.Position = r.ReadVec3()
	d.Rotation = r.ReadQuat()
	d.Scale = r.ReadVec3()
}

// PlayerInputData carries one tick of input intent for an owned entity.
type PlayerInputData struct {
	NetID    uuid.UUID
	Rotation geom.Quat
	Flags    byte
}

func (d PlayerInputData) Encode() []byte {
	w := NewWriter()
	w.WriteUUID(d.NetID)
	w.WriteQuat(d.Rotation)
	w.WriteC(d.Flags)
	return w.Bytes()
}

func DecodePlayerInput(data []byte) (PlayerInputData, error) {
	r := NewReader(data)
	d := PlayerInputData{
		NetID:    r.ReadUUID(),
		Rotation: r.ReadQuat(),
		Flags:    r.ReadC(),
	}
	return d, r.Err()
}

// ChatData is a relayed chat line.
type ChatData struct {
	From uuid.UUID
	Text string
}

func (d ChatData) Encode() []byte {
	w := NewWriter()
	w.WriteUUID(d.From)
	w.WriteS(d.Text)
	return w.Bytes()
}

func DecodeChat(data []byte) (ChatData, error) {
	r := NewReader(data)
	d := ChatData{
		From: r.ReadUUID(),
		Text: r.ReadS(),
	}
	return d, r.Err()
}
