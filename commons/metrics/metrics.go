package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Counter is an atomic counter for metrics.
type Counter struct {
	value atomic.Int64
}

// Add increments the counter by n.
func (c *Counter) Add(n int64) {
	c.value.Add(n)
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	c.value.Add(1)
}

// Load returns the current value.
func (c *Counter) Load() int64 {
	return c.value.Load()
}

// Set is a group of named counters created on first use.
type Set struct {
	mu       sync.RWMutex
	counters map[string]*Counter
}

// NewSet returns a set with the given counters pre-registered at zero, so
// that they appear in snapshots before the first increment.
func NewSet(names ...string) *Set {
	s := &Set{counters: make(map[string]*Counter, len(names))}
	for _, name := range names {
		s.counters[name] = new(Counter)
	}
	return s
}

// Counter returns the counter registered under name.
func (s *Set) Counter(name string) *Counter {
	s.mu.RLock()
	c := s.counters[name]
	s.mu.RUnlock()
	if c != nil {
		return c
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c = s.counters[name]; c == nil {
		c = new(Counter)
		s.counters[name] = c
	}
	return c
}

// Snapshot returns the current value of every counter.
func (s *Set) Snapshot() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64, len(s.counters))
	for name, c := range s.counters {
		out[name] = c.Load()
	}
	return out
}

// Names returns the registered counter names in sorted order.
func (s *Set) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.counters))
	for name := range s.counters {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}
