package pagination

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/Sternrassler/api-fetch-client/pkg/api"
)

// pagedExecutor serves total items split into pages of the requested size.
type pagedExecutor struct {
	mu       sync.Mutex
	total    int
	wrap     bool
	status   int
	failPage int
	requests []*api.Request
}

func (e *pagedExecutor) Do(_ context.Context, req *api.Request) (*api.Response, error) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()

	page, _ := strconv.Atoi(req.Query.Get("page"))
	size, _ := strconv.Atoi(req.Query.Get("size"))
	if page == e.failPage {
		return nil, errors.New("connection reset")
	}

	status := e.status
	if status == 0 {
		status = 200
	}

	start := (page - 1) * size
	end := min(start+size, e.total)
	items := []any{}
	for i := start; i < end; i++ {
		items = append(items, map[string]any{"id": float64(i + 1)})
	}

	var body any = items
	if e.wrap {
		body = map[string]any{"items": items}
	}
	return &api.Response{Status: status, Body: body, Meta: req.Meta.Clone()}, nil
}

func TestPaginator_StopsOnShortPage(t *testing.T) {
	exec := &pagedExecutor{total: 60}
	p := New(exec, Options{PageSize: 50})

	pages, err := p.Fetch(context.Background(), api.NewRequest("/orders"))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if len(exec.requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(exec.requests))
	}
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}
	if got := len(CollectItems(pages)); got != 60 {
		t.Errorf("CollectItems() = %d items, want 60", got)
	}
	for i, resp := range pages {
		if resp.Meta.Page != i+1 {
			t.Errorf("pages[%d].Meta.Page = %d, want %d", i, resp.Meta.Page, i+1)
		}
	}
}

func TestPaginator_ItemsObject(t *testing.T) {
	exec := &pagedExecutor{total: 25, wrap: true}
	p := New(exec, Options{PageSize: 10})

	pages, _ := p.Fetch(context.Background(), api.NewRequest("/products"))

	if len(pages) != 3 {
		t.Fatalf("pages = %d, want 3", len(pages))
	}
	if got := len(CollectItems(pages)); got != 25 {
		t.Errorf("CollectItems() = %d items, want 25", got)
	}
}

func TestPaginator_ExactMultipleRequestsEmptyPage(t *testing.T) {
	exec := &pagedExecutor{total: 20}
	pages, _ := New(exec, Options{PageSize: 10}).Fetch(context.Background(), api.NewRequest("/customers"))

	if len(pages) != 3 {
		t.Errorf("pages = %d, want 3 (last one empty)", len(pages))
	}
}

func TestPaginator_MaxPages(t *testing.T) {
	exec := &pagedExecutor{total: 1000}
	pages, _ := New(exec, Options{PageSize: 10, MaxPages: 4}).Fetch(context.Background(), api.NewRequest("/orders"))

	if len(pages) != 4 {
		t.Errorf("pages = %d, want 4", len(pages))
	}
}

func TestPaginator_StopsOnErrorWithPartialResults(t *testing.T) {
	exec := &pagedExecutor{total: 1000, failPage: 3}
	pages, err := New(exec, Options{PageSize: 10}).Fetch(context.Background(), api.NewRequest("/orders"))

	if err != nil {
		t.Fatalf("Fetch should not fail on page errors: %v", err)
	}
	if len(pages) != 2 {
		t.Errorf("pages = %d, want 2", len(pages))
	}
	if len(exec.requests) != 3 {
		t.Errorf("requests = %d, want 3", len(exec.requests))
	}
}

func TestPaginator_StopsOnUnsuccessfulStatus(t *testing.T) {
	exec := &pagedExecutor{total: 1000, status: 500}
	pages, _ := New(exec, Options{PageSize: 10}).Fetch(context.Background(), api.NewRequest("/orders"))

	if len(pages) != 1 || pages[0].Success() {
		t.Errorf("expected a single failed page, got %d pages", len(pages))
	}
	if got := CollectItems(pages); len(got) != 0 {
		t.Errorf("CollectItems() should skip failed pages, got %d items", len(got))
	}
}

func TestPaginator_CustomParamsAndContinue(t *testing.T) {
	exec := &pagedExecutor{total: 1000}
	calls := 0
	opts := Options{
		PageParam: "p",
		SizeParam: "limit",
		PageSize:  5,
		Continue: func(resp *api.Response, pageSize int) bool {
			calls++
			return resp.Meta.Page < 2
		},
	}

	base := api.NewRequest("/orders")
	base.Meta.Labels = map[string]string{"job": "sync"}
	pages, _ := New(exec, opts).Fetch(context.Background(), base)

	if len(pages) != 2 || calls != 2 {
		t.Fatalf("pages = %d, continue calls = %d, want 2/2", len(pages), calls)
	}
	first := exec.requests[0]
	if first.Query.Get("p") != "1" || first.Query.Get("limit") != "5" {
		t.Errorf("query = %v", first.Query)
	}
	if first.Meta.Label("job") != "sync" {
		t.Errorf("labels not carried: %v", first.Meta.Labels)
	}
	if base.Query != nil || base.Meta.Page != 0 {
		t.Error("base request must not be modified")
	}
}

func TestPaginator_KeepsBaseQuery(t *testing.T) {
	exec := &pagedExecutor{total: 3}
	base := api.NewRequest("/orders")
	base.Query = map[string][]string{"status": {"open"}, "page": {"9"}}

	New(exec, Options{PageSize: 10}).Fetch(context.Background(), base)

	q := exec.requests[0].Query
	if q.Get("status") != "open" || q.Get("page") != "1" {
		t.Errorf("query = %v", q)
	}
}

func TestPaginator_InvalidBase(t *testing.T) {
	if _, err := New(&pagedExecutor{}, Options{}).Fetch(context.Background(), nil); err == nil {
		t.Error("expected error for nil base request")
	}
}

func TestDefaultContinue(t *testing.T) {
	tests := []struct {
		name string
		resp *api.Response
		want bool
	}{
		{"full list", &api.Response{Status: 200, Body: []any{1, 2}}, true},
		{"short list", &api.Response{Status: 200, Body: []any{1}}, false},
		{"full items", &api.Response{Status: 200, Body: map[string]any{"items": []any{1, 2, 3}}}, true},
		{"object without items", &api.Response{Status: 200, Body: map[string]any{"data": []any{1, 2}}}, false},
		{"text body", &api.Response{Status: 200, Body: "ok"}, false},
		{"failed", &api.Response{Status: 503, Body: []any{1, 2}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultContinue(tt.resp, 2); got != tt.want {
				t.Errorf("DefaultContinue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.PageParam != "page" || opts.SizeParam != "size" || opts.PageSize != 100 {
		t.Errorf("DefaultOptions() = %+v", opts)
	}
}
