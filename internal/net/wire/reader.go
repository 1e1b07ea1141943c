package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/ospreygo/netsync/internal/geom"
)

// Reader decodes payload fields from a received buffer. All multi-byte fields
// are little-endian. The first overrun latches an error; callers check Err()
// once after reading the whole schema instead of after every field.
type Reader struct {
	data []byte
	off  int
	err  error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) fail(what string) {
	if r.err == nil {
		r.err = fmt.Errorf("truncated payload: %s at offset %d of %d", what, r.off, len(r.data))
	}
}

func (r *Reader) Err() error { return r.err }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

// ReadC reads 1 unsigned byte.
func (r *Reader) ReadC() byte {
	if r.off+1 > len(r.data) {
		r.fail("byte")
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

// ReadH reads 2 bytes as little-endian uint16.
func (r *Reader) ReadH() uint16 {
	if r.off+2 > len(r.data) {
		r.fail("uint16")
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

// ReadF reads 4 bytes as a little-endian float32.
func (r *Reader) ReadF() float32 {
	if r.off+4 > len(r.data) {
		r.fail("float32")
		return 0
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v
}

// ReadUUID reads 16 raw bytes.
func (r *Reader) ReadUUID() uuid.UUID {
	if r.off+16 > len(r.data) {
		r.fail("uuid")
		return uuid.Nil
	}
	var id uuid.UUID
	copy(id[:], r.data[r.off:r.off+16])
	r.off += 16
	return id
}

// ReadS reads a uint16 length-prefixed UTF-8 string.
func (r *Reader) ReadS() string {
	n := int(r.ReadH())
	if r.err != nil {
		return ""
	}
	if r.off+n > len(r.data) {
		r.fail("string body")
		return ""
	}
	s := string(r.data[r.off : r.off+n])
	r.off += n
	return s
}

func (r *Reader) ReadVec3() geom.Vec3 {
	return geom.Vec3{X: r.ReadF(), Y: r.ReadF(), Z: r.ReadF()}
}

func (r *Reader) ReadQuat() geom.Quat {
	return geom.Quat{X: r.ReadF(), Y: r.ReadF(), Z: r.ReadF(), W: r.ReadF()}
}
