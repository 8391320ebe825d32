package coordinator

import (
	"sync"
	"time"

	"go2tv.app/rokucast/device"
)

// Cache holds the last successfully fetched state snapshot plus the
// bookkeeping the refresh loop needs. A nil snapshot means the device
// state is still unknown. Failed fetches leave the last-known snapshot
// untouched, so callers may trust a recent stale snapshot instead of
// blocking on a fresh one.
type Cache struct {
	mu          sync.Mutex
	state       *device.State
	failures    int
	lastAttempt time.Time
}

// Read returns the current snapshot, or nil before the first
// successful fetch. It never blocks on network activity.
func (c *Cache) Read() *device.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// ApplySuccess replaces the cached snapshot and resets the
// consecutive-failure counter.
func (c *Cache) ApplySuccess(s *device.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = s
	c.failures = 0
	c.lastAttempt = s.FetchedAt
}

// ApplyFailure records a failed fetch attempt, leaving the last-known
// snapshot in place.
func (c *Cache) ApplyFailure(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures++
	c.lastAttempt = at
}

// Failures returns the consecutive-failure counter.
func (c *Cache) Failures() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.failures
}

// LastAttempt returns the timestamp of the last fetch attempt,
// successful or not.
func (c *Cache) LastAttempt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lastAttempt
}
