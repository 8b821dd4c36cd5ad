package stats

import (
	"context"
	"maps"
	"sync"
)

// MemoryRecorder keeps counters in process memory. It never expires data.
// The zero value is ready to use.
type MemoryRecorder struct {
	mu      sync.Mutex
	total   Counters
	byRoute map[string]Counters
}

// NewMemoryRecorder returns an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{byRoute: make(map[string]Counters)}
}

// Record implements Recorder.
func (m *MemoryRecorder) Record(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total.add(ev)
	if m.byRoute == nil {
		m.byRoute = make(map[string]Counters)
	}
	route := routeField(ev)
	c := m.byRoute[route]
	c.add(ev)
	m.byRoute[route] = c
	return nil
}

// Total returns the aggregate over all events.
func (m *MemoryRecorder) Total() Counters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// ByRoute returns a copy of the per "METHOD path" aggregates.
func (m *MemoryRecorder) ByRoute() map[string]Counters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.byRoute)
}
