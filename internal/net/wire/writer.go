package wire

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"

	"github.com/ospreygo/netsync/internal/geom"
)

// Writer builds a payload buffer. All multi-byte fields are little-endian,
// matching Reader.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// WriteC writes 1 byte.
func (w *Writer) WriteC(v byte) {
	w.buf = append(w.buf, v)
}

// WriteH writes 2 bytes little-endian.
func (w *Writer) WriteH(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteF writes a float32 little-endian.
func (w *Writer) WriteF(v float32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	w.buf = append(w.buf, b[:]...)
}

// WriteUUID writes 16 raw bytes.
func (w *Writer) WriteUUID(id uuid.UUID) {
	w.buf = append(w.buf, id[:]...)
}

// WriteS writes a uint16 length-prefixed UTF-8 string. Strings longer than
// 65535 bytes are truncated at the last full rune boundary below the limit.
func (w *Writer) WriteS(s string) {
	if len(s) > math.MaxUint16 {
		cut := math.MaxUint16
		for cut > 0 && (s[cut]&0xC0) == 0x80 {
			cut--
		}
		s = s[:cut]
	}
	w.WriteH(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) WriteVec3(v geom.Vec3) {
	w.WriteF(v.X)
	w.WriteF(v.Y)
	w.WriteF(v.Z)
}

func (w *Writer) WriteQuat(q geom.Quat) {
	w.WriteF(q.X)
	w.WriteF(q.Y)
	w.WriteF(q.Z)
	w.WriteF(q.W)
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the current length.
func (w *Writer) Len() int {
	return len(w.buf)
}
