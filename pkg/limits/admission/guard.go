package admission

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrInFlight is returned by callers that map a denied acquisition to an error.
var ErrInFlight = errors.New("admission denied: generation already in flight")

// Guard tracks which users currently hold a generation slot.
//
// # Algorithm
//
//  1. Lock the holder set
//  2. If the user is present, or the global cap is reached: reject
//  3. Otherwise insert the user and hand out a release func
//  4. Release removes the user exactly once, however often it is called
type Guard struct {
	mu      sync.Mutex
	holders map[string]struct{}

	enabled     atomic.Bool
	maxInFlight atomic.Int64

	denied atomic.Int64
}

// NewGuard creates a guard. maxInFlight caps concurrent holders across all
// users; zero means unlimited.
func NewGuard(enabled bool, maxInFlight int) *Guard {
	g := &Guard{holders: make(map[string]struct{})}
	g.enabled.Store(enabled)
	g.maxInFlight.Store(int64(maxInFlight))
	return g
}

// Acquire tries to take the slot for userID. On success the caller must
// call release when the generation ends; release is idempotent.
//
// When enforcement is disabled Acquire always succeeds and release is a no-op.
func (g *Guard) Acquire(userID string) (release func(), ok bool) {
	if !g.enabled.Load() {
		return func() {}, true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.holders[userID]; held {
		g.denied.Add(1)
		return nil, false
	}
	if limit := g.maxInFlight.Load(); limit > 0 && int64(len(g.holders)) >= limit {
		g.denied.Add(1)
		return nil, false
	}

	g.holders[userID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.holders, userID)
			g.mu.Unlock()
		})
	}, true
}

// Holding reports whether userID currently holds a slot.
func (g *Guard) Holding(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.holders[userID]
	return ok
}

// InFlight returns the number of users holding a slot.
func (g *Guard) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.holders)
}

// Denied returns the total number of rejected acquisitions.
func (g *Guard) Denied() int64 {
	return g.denied.Load()
}

// Enabled reports whether enforcement is on.
func (g *Guard) Enabled() bool {
	return g.enabled.Load()
}

// SetEnabled toggles enforcement.
func (g *Guard) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

// SetMaxInFlight updates the global cap. Zero means unlimited.
func (g *Guard) SetMaxInFlight(n int) {
	g.maxInFlight.Store(int64(n))
}
