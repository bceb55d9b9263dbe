// Package gateway serves interpretation streams over WebSocket connections.
//
// The transport is hand-rolled on top of pkg/wire: Handler validates the
// upgrade, hijacks the connection and hands it to a Session. A Session owns
// the read buffer, decodes frames in arrival order and passes text frames to
// a Dispatcher, which runs at most one generation per connection.
//
// # Message Flow
//
//	client                               server
//	  | -- upgrade ---------------------->  |
//	  | <-------------------- 101 --------  |
//	  | <------------- {"type":"connected"} |
//	  | -- {"type":"bazi_ai_request"} ---->  |
//	  | <----------------- {"type":"start"} |
//	  | <--------- {"type":"chunk", ...} x N |
//	  | <------------------ {"type":"done"} |
//	  | <------------------ close(1000) ---- |
//
// # Failure Classes
//
// Protocol errors (malformed JSON, oversized frames) and server-side errors
// (authorization, generation) close the connection. Admission errors (busy
// connection, a second generation for the same user, an unknown message
// type, an unknown provider) are reported with an error envelope and leave
// the connection open for a corrected retry. An error envelope always
// precedes the close frame.
//
// # Concurrency
//
// Each session runs one reader goroutine and one writer goroutine. Outbound
// frames go through an unbounded queue so a generation is never slowed down
// by a slow socket. Generations run on their own goroutine; the busy flag
// and the admission slot are released by a deferred cleanup on every path.
package gateway
