package connstate

import (
	"sync"
	"time"
)

// PingPongCache tracks outstanding pings and pong accounting for a single
// XML-RPC interface. It is safe for concurrent use.
type PingPongCache struct {
	mu sync.Mutex
	// pending is kept in insertion order so stale entries can be drained from
	// the front without scanning the whole set.
	pending            []time.Time
	pendingSet         map[int64]struct{}
	pendingPongEvents  int
	unknownPongEvents  int
	mismatchCount      int
}

// NewPingPongCache creates an empty PingPongCache.
func NewPingPongCache() *PingPongCache {
	return &PingPongCache{pendingSet: make(map[int64]struct{})}
}

func key(ts time.Time) int64 {
	return ts.UnixMilli()
}

// HandleSendPing records that a ping with the given timestamp was sent.
func (c *PingPongCache) HandleSendPing(ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(ts)
	if _, ok := c.pendingSet[k]; ok {
		return
	}
	c.pendingSet[k] = struct{}{}
	c.pending = append(c.pending, ts)
}

// HandleReceivedPong processes a pong carrying pongTS. It returns true if the
// pong matched an outstanding ping.
func (c *PingPongCache) HandleReceivedPong(pongTS time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(pongTS)
	if _, ok := c.pendingSet[k]; !ok {
		c.unknownPongEvents++
		return false
	}
	delete(c.pendingSet, k)
	for i, p := range c.pending {
		if key(p) == k {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			break
		}
	}
	return true
}

// Drain moves pending pings older than maxAge into pending_pong_events and
// returns the count of entries drained. Called once per connectivity tick.
func (c *PingPongCache) Drain(now time.Time, maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := now.Add(-maxAge)
	n := 0
	for len(c.pending) > 0 && c.pending[0].Before(cutoff) {
		delete(c.pendingSet, key(c.pending[0]))
		c.pending = c.pending[1:]
		c.pendingPongEvents++
		n++
	}
	return n
}

// PendingCount returns the number of currently outstanding pings.
func (c *PingPongCache) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Counters is a snapshot of the cache's bookkeeping, used when a
// PINGPONG_MISMATCH event is raised.
type Counters struct {
	Pending           int
	PendingPongEvents int
	UnknownPongEvents int
	MismatchCount     int
}

// CheckMismatch compares the current pending count against threshold. If
// exceeded, it increments mismatch_count and returns (counters, true).
func (c *PingPongCache) CheckMismatch(threshold int) (Counters, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exceeded := len(c.pending) > threshold
	if exceeded {
		c.mismatchCount++
	}
	return Counters{
		Pending:           len(c.pending),
		PendingPongEvents: c.pendingPongEvents,
		UnknownPongEvents: c.unknownPongEvents,
		MismatchCount:     c.mismatchCount,
	}, exceeded
}

// Snapshot returns the current counters without side effects.
func (c *PingPongCache) Snapshot() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Counters{
		Pending:           len(c.pending),
		PendingPongEvents: c.pendingPongEvents,
		UnknownPongEvents: c.unknownPongEvents,
		MismatchCount:     c.mismatchCount,
	}
}
