// Package admission implements the per-user admission guard that limits
// every user to one AI generation in flight at a time.
//
// The guard is shared by the WebSocket stream and the HTTP interpretation
// endpoint, so switching transports does not bypass the limit. A denied
// acquisition is an immediate rejection; callers never wait for a slot.
//
// # Usage
//
//	release, ok := guard.Acquire(user.ID)
//	if !ok {
//	    return errBusy
//	}
//	defer release()
//
// # Thread Safety
//
// Guard is safe for concurrent use. Enforcement can be toggled at runtime
// with SetEnabled; releases handed out before the toggle stay valid.
package admission
