package engine

import "sync"

// cartLocks serializes read-modify-write cycles per cart. Two events for the
// same cart must never interleave their mutation of cart totals; events for
// different carts proceed in parallel.
type cartLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newCartLocks() *cartLocks {
	return &cartLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for cartID and returns its unlock func. The per-cart
// mutex lives for the engine's lifetime; the map is bounded by the fleet size.
func (l *cartLocks) acquire(cartID string) func() {
	l.mu.Lock()
	m, ok := l.locks[cartID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[cartID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
