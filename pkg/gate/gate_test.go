package gate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew_MinimumCapacity(t *testing.T) {
	if got := New(0).State().Capacity; got != 1 {
		t.Errorf("Capacity = %d, want 1", got)
	}
	if got := New(4).State().Capacity; got != 4 {
		t.Errorf("Capacity = %d, want 4", got)
	}
}

func TestGate_AcquireRelease(t *testing.T) {
	g := New(2)
	ctx := context.Background()

	r1, err := g.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	r2, err := g.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if g.State().InUse != 2 {
		t.Errorf("InUse = %d, want 2", g.State().InUse)
	}

	r1()
	r1() // second call is a no-op
	if g.State().InUse != 1 {
		t.Errorf("InUse after release = %d, want 1", g.State().InUse)
	}

	r2()
	if g.State().InUse != 0 {
		t.Errorf("InUse after all released = %d, want 0", g.State().InUse)
	}
	if g.State().Peak != 2 {
		t.Errorf("Peak = %d, want 2", g.State().Peak)
	}

	g.ResetPeak()
	if g.State().Peak != 0 {
		t.Errorf("Peak after reset = %d, want 0", g.State().Peak)
	}
}

func TestGate_AcquireBlocksAtCapacity(t *testing.T) {
	g := New(1)
	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		r, err := g.Acquire(context.Background())
		if err != nil {
			t.Errorf("blocked Acquire() error = %v", err)
			return
		}
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire should block while the gate is full")
	case <-time.After(50 * time.Millisecond):
	}

	if g.State().Waiting != 1 {
		t.Errorf("Waiting = %d, want 1", g.State().Waiting)
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Acquire did not proceed after release")
	}
}

func TestGate_AcquireContextCancelled(t *testing.T) {
	g := New(1)
	release, _ := g.Acquire(context.Background())
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	r, err := g.Acquire(ctx)
	if err == nil {
		r()
		t.Fatal("Acquire() expected error on cancelled context")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() error = %v, want DeadlineExceeded", err)
	}
	if g.State().Waiting != 0 {
		t.Errorf("Waiting = %d, want 0 after cancel", g.State().Waiting)
	}
}

func TestGate_PeakNeverExceedsCapacity(t *testing.T) {
	const capacity = 3
	g := New(capacity)

	var current, maxSeen int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := g.Acquire(context.Background())
			if err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			defer release()

			n := atomic.AddInt64(&current, 1)
			for {
				m := atomic.LoadInt64(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt64(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&current, -1)
		}()
	}
	wg.Wait()

	if maxSeen > capacity {
		t.Errorf("observed %d concurrent holders, capacity %d", maxSeen, capacity)
	}
	if g.State().Peak > capacity {
		t.Errorf("Peak = %d, capacity %d", g.State().Peak, capacity)
	}
}
