package registry

import (
	"sync"
	"time"
)

// Gate disables the authoritative API for a cooldown window after an
// authentication failure. Each client owns its own Gate, so one tenant's
// bad credentials never poison another client instance.
type Gate struct {
	mu            sync.Mutex
	disabledUntil time.Time
}

// NewGate returns a gate in the open state.
func NewGate() *Gate {
	return &Gate{}
}

// Open reports whether the authoritative API may be called.
func (g *Gate) Open() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !time.Now().Before(g.disabledUntil)
}

// TripFor closes the gate for the given duration. The gate reopens by
// time passing; there is no explicit reset.
func (g *Gate) TripFor(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disabledUntil = time.Now().Add(d)
}
