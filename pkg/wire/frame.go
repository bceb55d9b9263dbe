package wire

import (
	"encoding/binary"
	"fmt"
)

// Opcode identifies the frame type.
type Opcode byte

// Frame opcodes.
const (
	OpContinuation Opcode = 0x0
	OpText         Opcode = 0x1
	OpBinary       Opcode = 0x2
	OpClose        Opcode = 0x8
	OpPing         Opcode = 0x9
	OpPong         Opcode = 0xA
)

// String returns the opcode name.
func (o Opcode) String() string {
	switch o {
	case OpContinuation:
		return "continuation"
	case OpText:
		return "text"
	case OpBinary:
		return "binary"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	default:
		return fmt.Sprintf("opcode(0x%x)", byte(o))
	}
}

// IsControl reports whether the opcode is a control opcode.
func (o Opcode) IsControl() bool {
	return o&0x8 != 0
}

// CloseCode is a close frame status code.
type CloseCode uint16

// Close status codes used by the gateway.
const (
	CloseNormal          CloseCode = 1000
	CloseGoingAway       CloseCode = 1001
	CloseProtocolError   CloseCode = 1002
	CloseUnsupportedData CloseCode = 1003
	CloseNoStatus        CloseCode = 1005
	CloseMessageTooBig   CloseCode = 1009
	CloseInternalError   CloseCode = 1011
)

const (
	finBit  = 0x80
	maskBit = 0x80

	len16 = 126
	len64 = 127
)

// Frame is one decoded WebSocket frame. Payload is always unmasked.
type Frame struct {
	Fin     bool
	Opcode  Opcode
	Masked  bool
	Payload []byte
}

// Encode builds an unmasked server frame with FIN set.
func Encode(payload []byte, op Opcode) []byte {
	return AppendFrame(make([]byte, 0, headerLen(len(payload))+len(payload)), payload, op)
}

// AppendFrame appends an unmasked server frame with FIN set to dst.
func AppendFrame(dst, payload []byte, op Opcode) []byte {
	dst = appendHeader(dst, len(payload), op, false)
	return append(dst, payload...)
}

// EncodeMasked builds a masked frame as a client would send it.
func EncodeMasked(payload []byte, op Opcode, mask [4]byte) []byte {
	out := make([]byte, 0, headerLen(len(payload))+4+len(payload))
	out = appendHeader(out, len(payload), op, true)
	out = append(out, mask[:]...)
	start := len(out)
	out = append(out, payload...)
	for i := range payload {
		out[start+i] ^= mask[i%4]
	}
	return out
}

// EncodeClose builds a close frame carrying code and an optional reason.
func EncodeClose(code CloseCode, reason string) []byte {
	payload := make([]byte, 2, 2+len(reason))
	binary.BigEndian.PutUint16(payload, uint16(code))
	payload = append(payload, reason...)
	return Encode(payload, OpClose)
}

// ParseClose extracts the status code and reason from a close payload.
// An empty payload yields CloseNoStatus.
func ParseClose(payload []byte) (CloseCode, string) {
	if len(payload) < 2 {
		return CloseNoStatus, ""
	}
	return CloseCode(binary.BigEndian.Uint16(payload)), string(payload[2:])
}

func headerLen(n int) int {
	switch {
	case n < len16:
		return 2
	case n <= 0xFFFF:
		return 4
	default:
		return 10
	}
}

func appendHeader(dst []byte, n int, op Opcode, masked bool) []byte {
	b0 := finBit | byte(op&0x0F)
	var m byte
	if masked {
		m = maskBit
	}

	switch {
	case n < len16:
		return append(dst, b0, m|byte(n))
	case n <= 0xFFFF:
		dst = append(dst, b0, m|len16)
		return binary.BigEndian.AppendUint16(dst, uint16(n))
	default:
		dst = append(dst, b0, m|len64)
		return binary.BigEndian.AppendUint64(dst, uint64(n))
	}
}

// header is the parsed fixed part of a frame.
type header struct {
	fin        bool
	opcode     Opcode
	masked     bool
	length     uint64
	mask       [4]byte
	payloadOff int
}

// parseHeader reads a frame header from buf. ok is false when buf does not
// yet hold the full header including the mask key.
func parseHeader(buf []byte) (h header, ok bool) {
	if len(buf) < 2 {
		return h, false
	}
	h.fin = buf[0]&finBit != 0
	h.opcode = Opcode(buf[0] & 0x0F)
	h.masked = buf[1]&maskBit != 0
	h.length = uint64(buf[1] & 0x7F)
	off := 2

	switch h.length {
	case len16:
		if len(buf) < off+2 {
			return h, false
		}
		h.length = uint64(binary.BigEndian.Uint16(buf[off:]))
		off += 2
	case len64:
		if len(buf) < off+8 {
			return h, false
		}
		h.length = binary.BigEndian.Uint64(buf[off:])
		off += 8
	}

	if h.masked {
		if len(buf) < off+4 {
			return h, false
		}
		copy(h.mask[:], buf[off:off+4])
		off += 4
	}
	h.payloadOff = off
	return h, true
}

// Decode parses every complete frame at the front of buf. Parsing stops at
// the first incomplete frame; its bytes, and anything after, are returned as
// remainder. remainder aliases buf.
func Decode(buf []byte) (frames []Frame, remainder []byte) {
	for {
		h, ok := parseHeader(buf)
		if !ok {
			return frames, buf
		}
		avail := uint64(len(buf) - h.payloadOff)
		if h.length > avail {
			return frames, buf
		}
		end := h.payloadOff + int(h.length)

		payload := make([]byte, h.length)
		copy(payload, buf[h.payloadOff:end])
		if h.masked {
			for i := range payload {
				payload[i] ^= h.mask[i%4]
			}
		}

		frames = append(frames, Frame{
			Fin:     h.fin,
			Opcode:  h.opcode,
			Masked:  h.masked,
			Payload: payload,
		})
		buf = buf[end:]
	}
}

// PendingLength reports the declared payload length of the incomplete frame
// at the front of buf, once enough of its header has arrived. It lets a
// reader reject an oversized frame before buffering its payload.
func PendingLength(buf []byte) (uint64, bool) {
	h, ok := parseHeader(buf)
	if !ok {
		return 0, false
	}
	return h.length, true
}
