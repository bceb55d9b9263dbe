package wire

import (
	"bytes"
	"testing"
)

func payloadOfSize(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i % 251)
	}
	return p
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		size       int
		headerSize int
	}{
		{0, 2},
		{1, 2},
		{125, 2},
		{126, 4},
		{65535, 4},
		{65536, 10},
	}

	for _, tt := range tests {
		payload := payloadOfSize(tt.size)
		encoded := Encode(payload, OpText)

		if got := len(encoded) - tt.size; got != tt.headerSize {
			t.Errorf("size %d: expected %d byte header, got %d", tt.size, tt.headerSize, got)
		}
		if encoded[0] != 0x81 {
			t.Errorf("size %d: expected first byte 0x81, got 0x%x", tt.size, encoded[0])
		}
		if encoded[1]&0x80 != 0 {
			t.Errorf("size %d: server frame must not be masked", tt.size)
		}

		frames, rest := Decode(encoded)
		if len(frames) != 1 {
			t.Fatalf("size %d: expected 1 frame, got %d", tt.size, len(frames))
		}
		if len(rest) != 0 {
			t.Errorf("size %d: expected empty remainder, got %d bytes", tt.size, len(rest))
		}
		f := frames[0]
		if !f.Fin || f.Opcode != OpText {
			t.Errorf("size %d: unexpected frame header %+v", tt.size, f)
		}
		if !bytes.Equal(f.Payload, payload) {
			t.Errorf("size %d: payload mismatch", tt.size)
		}
	}
}

func TestDecode_PartialDelivery(t *testing.T) {
	for _, size := range []int{0, 5, 125, 126, 300, 65536} {
		payload := payloadOfSize(size)
		encoded := EncodeMasked(payload, OpText, [4]byte{1, 2, 3, 4})

		for split := 0; split < len(encoded); split++ {
			// Step over the payload body for large frames; the interesting
			// offsets are inside the header and mask.
			if size > 300 && split > 20 && split < len(encoded)-2 {
				continue
			}

			first := append([]byte(nil), encoded[:split]...)
			frames, rest := Decode(first)
			if len(frames) != 0 {
				t.Fatalf("size %d split %d: expected no frames from first chunk, got %d", size, split, len(frames))
			}
			if len(rest) != split {
				t.Fatalf("size %d split %d: remainder should hold all %d bytes, got %d", size, split, split, len(rest))
			}

			buf := append(rest, encoded[split:]...)
			frames, rest = Decode(buf)
			if len(frames) != 1 {
				t.Fatalf("size %d split %d: expected 1 frame, got %d", size, split, len(frames))
			}
			if len(rest) != 0 {
				t.Fatalf("size %d split %d: expected empty remainder", size, split)
			}
			if !bytes.Equal(frames[0].Payload, payload) {
				t.Fatalf("size %d split %d: payload mismatch", size, split)
			}
		}
	}
}

func TestDecode_Masking(t *testing.T) {
	mask := [4]byte{0x37, 0xfa, 0x21, 0x3d}
	payload := []byte("Hello")

	// Built by hand: FIN|text, MASK|5, mask key, masked bytes.
	raw := []byte{0x81, 0x85, mask[0], mask[1], mask[2], mask[3]}
	for i, b := range payload {
		raw = append(raw, b^mask[i%4])
	}

	frames, rest := Decode(raw)
	if len(frames) != 1 || len(rest) != 0 {
		t.Fatalf("expected exactly one frame, got %d (remainder %d)", len(frames), len(rest))
	}
	if !frames[0].Masked {
		t.Error("expected Masked to be set")
	}
	if string(frames[0].Payload) != "Hello" {
		t.Errorf("expected Hello, got %q", frames[0].Payload)
	}

	if !bytes.Equal(raw, EncodeMasked(payload, OpText, mask)) {
		t.Error("EncodeMasked does not match the hand-built frame")
	}
}

func TestDecode_MultipleFramesAndTrailingPartial(t *testing.T) {
	var buf []byte
	buf = append(buf, EncodeMasked([]byte("one"), OpText, [4]byte{9, 8, 7, 6})...)
	buf = append(buf, EncodeMasked([]byte("ping"), OpPing, [4]byte{1, 1, 1, 1})...)
	third := EncodeMasked([]byte("three"), OpText, [4]byte{5, 5, 5, 5})
	buf = append(buf, third[:4]...)

	frames, rest := Decode(buf)
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if string(frames[0].Payload) != "one" || frames[1].Opcode != OpPing || string(frames[1].Payload) != "ping" {
		t.Errorf("unexpected frames: %+v", frames)
	}
	if !bytes.Equal(rest, third[:4]) {
		t.Errorf("expected partial third frame as remainder, got %v", rest)
	}
}

func TestEncodeClose(t *testing.T) {
	frame := EncodeClose(CloseMessageTooBig, "too big")

	frames, _ := Decode(frame)
	if len(frames) != 1 || frames[0].Opcode != OpClose {
		t.Fatalf("expected one close frame, got %+v", frames)
	}
	code, reason := ParseClose(frames[0].Payload)
	if code != CloseMessageTooBig || reason != "too big" {
		t.Errorf("got code %d reason %q", code, reason)
	}

	if code, _ := ParseClose(nil); code != CloseNoStatus {
		t.Errorf("empty payload should yield %d, got %d", CloseNoStatus, code)
	}
}

func TestPendingLength(t *testing.T) {
	encoded := EncodeMasked(payloadOfSize(70000), OpText, [4]byte{1, 2, 3, 4})

	if _, ok := PendingLength(encoded[:5]); ok {
		t.Error("header is incomplete, expected ok=false")
	}
	n, ok := PendingLength(encoded[:14])
	if !ok || n != 70000 {
		t.Errorf("expected 70000, got %d (ok=%v)", n, ok)
	}
}

func TestOpcode(t *testing.T) {
	if !OpPing.IsControl() || !OpClose.IsControl() || OpText.IsControl() {
		t.Error("IsControl misclassifies opcodes")
	}
	if OpPong.String() != "pong" || Opcode(0x3).String() != "opcode(0x3)" {
		t.Errorf("unexpected names: %s %s", OpPong, Opcode(0x3))
	}
}
