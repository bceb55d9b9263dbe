// Package wire implements the server side of the WebSocket wire protocol
// (RFC 6455) used by the interpretation stream: frame encoding, incremental
// frame decoding, and the HTTP upgrade handshake.
//
// # Frame Codec
//
// Encode builds unmasked server frames with FIN set and no RSV bits. The
// header is 2, 4, or 10 bytes depending on payload length:
//
//	len < 126     -> 2 byte header
//	len < 65536   -> 4 byte header (16-bit extended length)
//	otherwise     -> 10 byte header (64-bit extended length)
//
// Decode is incremental. It returns every complete frame found in the
// buffer plus the unconsumed remainder, which the caller prepends to the
// next read:
//
//	buf = append(buf, chunk...)
//	frames, buf = wire.Decode(buf)
//	for _, f := range frames {
//	    // dispatch f
//	}
//
// Masked payloads are unmasked in place of a copy. Reserved bits,
// non-minimal length encodings, and unmasked client frames are accepted as-is.
//
// # Handshake
//
// A Negotiator validates an upgrade request in a fixed order and either
// rejects it (with a raw 414 or 403 status line, or silently) or writes the
// 101 Switching Protocols response carrying the derived accept key:
//
//	n := wire.NewNegotiator(wire.NegotiatorConfig{Path: "/ws/ai", MaxURLLength: 2048})
//	if err := n.Validate(r); err != nil {
//	    wire.WriteReject(conn, err)
//	    conn.Close()
//	    return
//	}
//	wire.WriteAccept(conn, r.Header.Get("Sec-WebSocket-Key"))
package wire
