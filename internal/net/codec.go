package net

import (
	"encoding/binary"
	"fmt"
	"io"
)

// UDPPayloadBudget is the largest encoded envelope sent in one datagram,
// chosen to stay under a 1500-byte MTU with IP+UDP headers.
const UDPPayloadBudget = 1432

// maxFrameLen bounds a reliable frame: 2-byte length header, self-inclusive.
const maxFrameLen = 65535

// Envelope wire form: [1B message type][uint16 LE tag length + tag, only for
// MsgComponentCustom][payload to end]. On TCP the whole thing is preceded by
// a 2-byte LE length; on UDP one datagram carries exactly one envelope.

// EncodeEnvelope serializes type, optional custom tag, and payload.
func EncodeEnvelope(env *Envelope) ([]byte, error) {
	n := 1 + len(env.Payload)
	if env.Type == MsgComponentCustom {
		if len(env.CustomTag) > 255 {
			return nil, fmt.Errorf("custom tag too long: %d bytes", len(env.CustomTag))
		}
		n += 2 + len(env.CustomTag)
	}
	buf := make([]byte, 0, n)
	buf = append(buf, byte(env.Type))
	if env.Type == MsgComponentCustom {
		var l [2]byte
		binary.LittleEndian.PutUint16(l[:], uint16(len(env.CustomTag)))
		buf = append(buf, l[:]...)
		buf = append(buf, env.CustomTag...)
	}
	buf = append(buf, env.Payload...)
	return buf, nil
}

// DecodeEnvelope parses an encoded envelope. Origin, Target, and Transport
// are left for the caller to fill in; only the wire fields are set.
func DecodeEnvelope(data []byte) (Envelope, error) {
	if len(data) == 0 {
		return Envelope{}, fmt.Errorf("empty envelope")
	}
	env := Envelope{Type: MessageType(data[0])}
	if env.Type == MsgUnknown || env.Type > MsgPlayerInput {
		return Envelope{}, fmt.Errorf("bad message type %d", data[0])
	}
	rest := data[1:]
	if env.Type == MsgComponentCustom {
		if len(rest) < 2 {
			return Envelope{}, fmt.Errorf("custom envelope missing tag length")
		}
		tagLen := int(binary.LittleEndian.Uint16(rest))
		rest = rest[2:]
		if len(rest) < tagLen {
			return Envelope{}, fmt.Errorf("custom envelope tag truncated: want %d have %d", tagLen, len(rest))
		}
		env.CustomTag = string(rest[:tagLen])
		rest = rest[tagLen:]
	}
	if len(rest) > 0 {
		env.Payload = make([]byte, len(rest))
		copy(env.Payload, rest)
	}
	return env, nil
}

// ReadFrame reads one length-delimited message from a reliable stream.
// Wire format: [2 bytes LE: total length including header][envelope bytes].
// Stream reads do not align with message boundaries, so both header and body
// go through io.ReadFull.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}
	totalLen := int(binary.LittleEndian.Uint16(header[:]))
	bodyLen := totalLen - 2
	if bodyLen <= 0 {
		return nil, fmt.Errorf("invalid frame length: %d", totalLen)
	}
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read frame body (%d bytes): %w", bodyLen, err)
	}
	return body, nil
}

// WriteFrame writes one length-delimited message to a reliable stream.
func WriteFrame(w io.Writer, data []byte) error {
	totalLen := len(data) + 2
	if totalLen > maxFrameLen {
		return fmt.Errorf("frame too large: %d bytes", len(data))
	}
	var header [2]byte
	binary.LittleEndian.PutUint16(header[:], uint16(totalLen))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}
