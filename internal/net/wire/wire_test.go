package wire

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ospreygo/netsync/internal/geom"
)

func TestReaderLatchesFirstError(t *testing.T) {
	r := NewReader([]byte{0x01})
	if got := r.ReadC(); got != 1 {
		t.Fatalf("ReadC = %d, want 1", got)
	}
	if r.Err() != nil {
		t.Fatalf("unexpected error after in-bounds read: %v", r.Err())
	}
	if got := r.ReadH(); got != 0 {
		t.Fatalf("ReadH past end = %d, want 0", got)
	}
	first := r.Err()
	if first == nil {
		t.Fatalf("overrun did not latch an error")
	}
	r.ReadF()
	r.ReadUUID()
	if r.Err() != first {
		t.Fatalf("latched error was replaced")
	}
}

func TestReadSTruncatedBody(t *testing.T) {
	w := NewWriter()
	w.WriteH(10) // claims 10 bytes, provides 3
	w.buf = append(w.buf, 'a', 'b', 'c')

	r := NewReader(w.Bytes())
	if s := r.ReadS(); s != "" {
		t.Fatalf("ReadS on truncated body = %q, want empty", s)
	}
	if r.Err() == nil {
		t.Fatalf("truncated string body not reported")
	}
}

func TestWriteSTruncatesAtRuneBoundary(t *testing.T) {
	// A long run of 3-byte runes pushes the cut into the middle of a rune;
	// the writer must back up to a boundary.
	s := strings.Repeat("世", 25000) // 75000 bytes
	w := NewWriter()
	w.WriteS(s)

	r := NewReader(w.Bytes())
	got := r.ReadS()
	if r.Err() != nil {
		t.Fatalf("decode failed: %v", r.Err())
	}
	if len(got) > 65535 {
		t.Fatalf("string not truncated: %d bytes", len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a rune")
	}
}

func TestTransformRoundTrip(t *testing.T) {
	in := TransformData{
		NetID:    uuid.New(),
		Position: geom.Vec3{X: 1.5, Y: -2.25, Z: 300},
		Rotation: geom.Quat{X: 0, Y: 0.7071, Z: 0, W: 0.7071},
		Scale:    geom.Vec3{X: 1, Y: 1, Z: 1},
	}
	out, err := DecodeTransform(in.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
}

func TestNewReplicatedRoundTrip(t *testing.T) {
	in := NewReplicatedData{
		OwnerID:  uuid.New(),
		EntityID: uuid.New(),
		Kind:     "player",
		Transform: TransformData{
			NetID:    uuid.New(),
			Position: geom.Vec3{X: 4, Y: 5, Z: 6},
			Rotation: geom.Quat{W: 1},
			Scale:    geom.Vec3{X: 2, Y: 2, Z: 2},
		},
	}
	out, err := DecodeNewReplicated(in.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
}

func TestDecodeRejectsShortBuffer(t *testing.T) {
	full := PlayerInputData{NetID: uuid.New(), Rotation: geom.Quat{W: 1}, Flags: 0x15}.Encode()
	for _, n := range []int{0, 1, 16, len(full) - 1} {
		if _, err := DecodePlayerInput(full[:n]); err == nil {
			t.Fatalf("decode of %d/%d bytes succeeded", n, len(full))
		}
	}
	if _, err := DecodePlayerInput(full); err != nil {
		t.Fatalf("full buffer rejected: %v", err)
	}
}

func TestChatEmptyText(t *testing.T) {
	in := ChatData{From: uuid.New(), Text: ""}
	out, err := DecodeChat(in.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v vs %+v", in, out)
	}
}
