// Package gate provides the process-wide generation guard.
package gate

import "sync/atomic"

const (
	idle int32 = iota
	busy
)

// Gate is a two-state IDLE/BUSY latch. At most one holder at a time; other
// callers are turned away rather than queued.
type Gate struct {
	state atomic.Int32
}

func New() *Gate {
	return &Gate{}
}

// TryAcquire moves IDLE to BUSY and reports whether the caller now holds the gate.
func (g *Gate) TryAcquire() bool {
	return g.state.CompareAndSwap(idle, busy)
}

// Release returns the gate to IDLE unconditionally.
func (g *Gate) Release() {
	g.state.Store(idle)
}

func (g *Gate) Busy() bool {
	return g.state.Load() == busy
}
