package stats

import (
	"context"
	"sync"
	"testing"
)

func TestEvent_Field(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{"success", Event{Success: true}, "successful"},
		{"failure", Event{Status: 500}, "failed"},
		{"cached wins", Event{Success: true, Cached: true}, "cached"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.Field(); got != tt.want {
				t.Errorf("Field() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMemoryRecorder_Record(t *testing.T) {
	rec := NewMemoryRecorder()
	ctx := context.Background()

	events := []Event{
		{Method: "GET", Path: "/orders", Status: 200, Success: true, Attempts: 1},
		{Method: "GET", Path: "/orders", Status: 503, Attempts: 4},
		{Method: "GET", Path: "/customers", Status: 200, Success: true, Cached: true},
	}
	for _, ev := range events {
		if err := rec.Record(ctx, ev); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	total := rec.Total()
	if total.Successful != 1 || total.Failed != 1 || total.Cached != 1 {
		t.Errorf("Total() = %+v", total)
	}
	if total.Attempts != 5 {
		t.Errorf("Attempts = %d, want 5", total.Attempts)
	}

	routes := rec.ByRoute()
	if got := routes["GET /orders"]; got.Successful != 1 || got.Failed != 1 {
		t.Errorf("GET /orders = %+v", got)
	}
	if got := routes["GET /customers"]; got.Cached != 1 {
		t.Errorf("GET /customers = %+v", got)
	}
}

func TestMemoryRecorder_ZeroValue(t *testing.T) {
	var rec MemoryRecorder
	if err := rec.Record(context.Background(), Event{Method: "GET", Path: "/health", Success: true}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if got := rec.ByRoute()["GET /health"]; got.Successful != 1 {
		t.Errorf("GET /health = %+v", got)
	}
}

func TestMemoryRecorder_Concurrent(t *testing.T) {
	rec := NewMemoryRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Record(context.Background(), Event{Method: "GET", Path: "/x", Success: true, Attempts: 1})
		}()
	}
	wg.Wait()

	if got := rec.Total().Successful; got != 50 {
		t.Errorf("Successful = %d, want 50", got)
	}
}
