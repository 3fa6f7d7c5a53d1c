// Package stats provides the single statistics surface used across the
// core: named counters registered once at construction, incremented during
// tick, and read back as a name-to-string snapshot.
package stats

import "strconv"

// Counter is an opaque handle to a registered counter, obtained once and
// cached by the component that owns it. Incrementing through a Counter
// avoids a map lookup on every tick.
type Counter int

// Registry owns every named counter in the core. Components never keep
// their own counter fields — they hold a *Registry plus the Counter
// handles Register returned them, which keeps the statistics surface in
// exactly one place instead of duplicated locally and globally.
type Registry struct {
	names  []string
	values []uint64
	index  map[string]Counter
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]Counter)}
}

// Register adds a new named counter initialized to zero and returns its
// handle. Registering the same name twice panics — every counter has
// exactly one owner.
func (r *Registry) Register(name string) Counter {
	if _, exists := r.index[name]; exists {
		panic("stats: counter " + name + " already registered")
	}
	c := Counter(len(r.names))
	r.names = append(r.names, name)
	r.values = append(r.values, 0)
	r.index[name] = c
	return c
}

// Add increments counter c by delta.
func (r *Registry) Add(c Counter, delta uint64) {
	r.values[c] += delta
}

// Inc increments counter c by one.
func (r *Registry) Inc(c Counter) {
	r.values[c]++
}

// Value returns the current value of counter c.
func (r *Registry) Value(c Counter) uint64 {
	return r.values[c]
}

// Snapshot returns every registered counter as a name-to-decimal-string
// map, the form the CLI and test assertions consume.
func (r *Registry) Snapshot() map[string]string {
	out := make(map[string]string, len(r.names))
	for i, name := range r.names {
		out[name] = strconv.FormatUint(r.values[i], 10)
	}
	return out
}

// Reset zeroes every counter without forgetting its registration.
func (r *Registry) Reset() {
	for i := range r.values {
		r.values[i] = 0
	}
}
