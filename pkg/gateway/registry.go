package gateway

import (
	"context"
	"sync"

	"tianji-hq/oracle/pkg/wire"
)

// Registry is the set of open sessions.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	empty    chan struct{}
	total    int64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers s.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
	r.total++
}

// Remove unregisters s.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, s.ID())
	if len(r.sessions) == 0 && r.empty != nil {
		close(r.empty)
		r.empty = nil
	}
}

// Count returns the number of open sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Total returns the number of sessions ever registered.
func (r *Registry) Total() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// CloseAll closes every open session with code.
func (r *Registry) CloseAll(code wire.CloseCode, reason string) int {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close(code, reason)
	}
	return len(sessions)
}

// Drain closes every session with 1001 and waits until all of them have
// been removed or ctx ends.
func (r *Registry) Drain(ctx context.Context) error {
	r.mu.Lock()
	if len(r.sessions) == 0 {
		r.mu.Unlock()
		return nil
	}
	if r.empty == nil {
		r.empty = make(chan struct{})
	}
	empty := r.empty
	r.mu.Unlock()

	r.CloseAll(wire.CloseGoingAway, "server shutting down")

	select {
	case <-empty:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
