// Package testutil holds deterministic helpers shared by tests and the
// scenario harness.
package testutil

import (
	"fmt"
	"sync"
)

// Counter is a resettable monotonic counter. The first call to Next
// returns 1.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Counter struct {
	mu sync.Mutex
	n  int64
}

// Next increments and returns the counter.
func (c *Counter) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

// Current returns the counter without incrementing.
func (c *Counter) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Reset sets the counter back to 0.
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}

// SequentialRunIDs generates "<prefix>-1", "<prefix>-2", ... so that a
// scenario produces the same run ids, and the same logs, on every execution.
//
// Implements engine.RunIDGenerator.
type SequentialRunIDs struct {
	prefix  string
	counter Counter
}

// NewSequentialRunIDs creates a generator. An empty prefix uses "run".
func NewSequentialRunIDs(prefix string) *SequentialRunIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialRunIDs{prefix: prefix}
}

// Generate returns the next run id.
func (g *SequentialRunIDs) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.counter.Next())
}
