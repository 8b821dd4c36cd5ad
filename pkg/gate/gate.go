// Package gate provides a counting semaphore that bounds the number of
// in-flight request attempts across a client.
package gate

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	slotsInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "apifetch_gate_in_use",
		Help: "Concurrency gate slots currently held",
	})

	slotsWaiting = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "apifetch_gate_waiting",
		Help: "Callers parked at the concurrency gate",
	})
)

// Gate bounds concurrent work to a fixed number of slots.
// It is safe for concurrent use by multiple goroutines.
type Gate struct {
	slots chan struct{}

	mu      sync.Mutex
	inUse   int
	peak    int
	waiting int
}

// New creates a gate with capacity n. Values below 1 are raised to 1.
func New(n int) *Gate {
	if n < 1 {
		n = 1
	}
	return &Gate{slots: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or ctx is done. On success it returns a
// release function that must be called exactly once; extra calls are no-ops.
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	// Fast path: slot available
	select {
	case g.slots <- struct{}{}:
		return g.granted(), nil
	default:
	}

	g.mu.Lock()
	g.waiting++
	g.mu.Unlock()
	slotsWaiting.Inc()

	defer func() {
		g.mu.Lock()
		g.waiting--
		g.mu.Unlock()
		slotsWaiting.Dec()
	}()

	select {
	case g.slots <- struct{}{}:
		return g.granted(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *Gate) granted() func() {
	g.mu.Lock()
	g.inUse++
	if g.inUse > g.peak {
		g.peak = g.inUse
	}
	g.mu.Unlock()
	slotsInUse.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.inUse--
			g.mu.Unlock()
			slotsInUse.Dec()
			<-g.slots
		})
	}
}

// State is a point-in-time view of a gate.
type State struct {
	Capacity int `json:"capacity" yaml:"capacity"`
	InUse    int `json:"in_use" yaml:"in_use"`
	Waiting  int `json:"waiting" yaml:"waiting"`
	Peak     int `json:"peak" yaml:"peak"`
}

// State returns the current usage. Peak is the highest number of slots held
// at once since creation or the last ResetPeak.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return State{
		Capacity: cap(g.slots),
		InUse:    g.inUse,
		Waiting:  g.waiting,
		Peak:     g.peak,
	}
}

// ResetPeak sets the peak back to the current usage.
func (g *Gate) ResetPeak() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.peak = g.inUse
}
