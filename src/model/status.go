package model

import "sync"

// SessionStatus describes how recently a session has seen activity.
type SessionStatus string

const (
	StatusWorking SessionStatus = "working" // updated less than 30s ago
	StatusActive  SessionStatus = "active"  // updated less than 5min ago
	StatusIdle    SessionStatus = "idle"
)

const (
	workingThresholdSeconds = 30
	activeThresholdSeconds  = 300
)

// StatusAt maps seconds-since-last-update to a liveness state. It is a pure
// function of its two inputs. Negative elapsed time (clock skew) falls into
// Working through the inequality chain, which is the right answer for
// "updated in the future".
func StatusAt(updatedSeconds, nowSeconds int64) SessionStatus {
	key := statusKey{updated: updatedSeconds, now: nowSeconds}
	if s, ok := statusMemo.get(key); ok {
		return s
	}

	elapsed := nowSeconds - updatedSeconds
	var s SessionStatus
	switch {
	case elapsed < workingThresholdSeconds:
		s = StatusWorking
	case elapsed < activeThresholdSeconds:
		s = StatusActive
	default:
		s = StatusIdle
	}

	statusMemo.put(key, s)
	return s
}

type statusKey struct {
	updated int64
	now     int64
}

// statusCache is a bounded memo for StatusAt. The same (updated, now) pair is
// evaluated once per visible session per refresh tick, so a small cache keyed
// on the pair keeps the hot path to a single map lookup. Eviction is by
// insertion order.
type statusCache struct {
	mu      sync.Mutex
	entries map[statusKey]SessionStatus
	order   []statusKey
	limit   int
}

var statusMemo = &statusCache{
	entries: make(map[statusKey]SessionStatus, 128),
	limit:   128,
}

func (c *statusCache) get(key statusKey) (SessionStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[key]
	return s, ok
}

func (c *statusCache) put(key statusKey, s SessionStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return
	}
	if len(c.entries) >= c.limit && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = s
	c.order = append(c.order, key)
}
