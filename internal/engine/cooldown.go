package engine

import (
	"fmt"
	"sync"
	"time"
)

// Cooldown suppresses repeat processing of the same (cart, tag) pair within a
// configured window. Capacity is a soft bound: when exceeded, entries older
// than the window are purged in bulk rather than evicted one at a time. The
// same purge also runs opportunistically after every Nth admission so a
// long-running process does not accumulate stale pairs.
type Cooldown struct {
	mu         sync.Mutex
	window     time.Duration
	capacity   int
	purgeEvery int
	admissions int
	entries    map[cooldownKey]time.Time
	onEvict    func(n int)
}

type cooldownKey struct {
	cartID string
	tagID  string
}

// NewCooldown builds a cooldown filter. onEvict may be nil; when set it
// receives the number of entries dropped by each purge.
func NewCooldown(window time.Duration, capacity, purgeEvery int, onEvict func(n int)) (*Cooldown, error) {
	if window <= 0 {
		return nil, fmt.Errorf("cooldown window must be positive")
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("cooldown capacity must be positive")
	}
	if purgeEvery <= 0 {
		return nil, fmt.Errorf("cooldown purge interval must be positive")
	}
	return &Cooldown{
		window:     window,
		capacity:   capacity,
		purgeEvery: purgeEvery,
		entries:    make(map[cooldownKey]time.Time),
		onEvict:    onEvict,
	}, nil
}

// Admit reports whether a scan of (cartID, tagID) at now should be processed.
// A prior admission younger than the window refuses the scan and leaves the
// recorded timestamp untouched, so a burst of reads passes again once the
// window has elapsed since the first admitted read.
func (c *Cooldown) Admit(cartID, tagID string, now time.Time) bool {
	key := cooldownKey{cartID: cartID, tagID: tagID}

	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.entries[key]; ok && now.Sub(last) < c.window {
		return false
	}

	c.entries[key] = now
	c.admissions++

	if len(c.entries) > c.capacity || c.admissions%c.purgeEvery == 0 {
		c.purgeStaleLocked(now)
	}
	return true
}

// Len returns the current number of tracked pairs.
func (c *Cooldown) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cooldown) purgeStaleLocked(now time.Time) {
	evicted := 0
	for key, last := range c.entries {
		if now.Sub(last) >= c.window {
			delete(c.entries, key)
			evicted++
		}
	}
	if evicted > 0 && c.onEvict != nil {
		c.onEvict(evicted)
	}
}
