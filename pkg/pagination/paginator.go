package pagination

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/api-fetch-client/pkg/api"
	"github.com/Sternrassler/api-fetch-client/pkg/logging"
)

// Defaults for Options.
const (
	DefaultPageParam = "page"
	DefaultSizeParam = "size"
	DefaultPageSize  = 100
)

// Executor runs one logical request. *client.Client implements it.
type Executor interface {
	Do(ctx context.Context, req *api.Request) (*api.Response, error)
}

// ContinueFunc decides whether to request the page after resp.
type ContinueFunc func(resp *api.Response, pageSize int) bool

// Options configures a Paginator.
type Options struct {
	// PageParam is the query parameter carrying the page number.
	PageParam string `mapstructure:"page_param"`

	// SizeParam is the query parameter carrying the page size.
	SizeParam string `mapstructure:"size_param"`

	// PageSize is sent as SizeParam and used by the default ContinueFunc.
	PageSize int `mapstructure:"page_size"`

	// MaxPages stops after this many pages. Zero means no limit.
	MaxPages int `mapstructure:"max_pages"`

	// Continue overrides DefaultContinue.
	Continue ContinueFunc `mapstructure:"-"`
}

// DefaultOptions returns the default pagination options.
func DefaultOptions() Options {
	return Options{
		PageParam: DefaultPageParam,
		SizeParam: DefaultSizeParam,
		PageSize:  DefaultPageSize,
	}
}

func (o Options) withDefaults() Options {
	if o.PageParam == "" {
		o.PageParam = DefaultPageParam
	}
	if o.SizeParam == "" {
		o.SizeParam = DefaultSizeParam
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.MaxPages < 0 {
		o.MaxPages = 0
	}
	if o.Continue == nil {
		o.Continue = DefaultContinue
	}
	return o
}

// DefaultContinue continues while the page succeeded and returned a full
// page, as a JSON array or as an object's "items" array.
func DefaultContinue(resp *api.Response, pageSize int) bool {
	if !resp.Success() {
		return false
	}
	items, ok := resp.Items()
	return ok && len(items) >= pageSize
}

// Paginator issues sequential page requests through an Executor.
type Paginator struct {
	exec Executor
	opts Options
}

// New creates a paginator. Zero option fields take their defaults.
func New(exec Executor, opts Options) *Paginator {
	return &Paginator{exec: exec, opts: opts.withDefaults()}
}

// Fetch requests pages 1, 2, ... of base and returns every response
// received. It stops when Continue returns false, after MaxPages pages, or
// when a page yields no response at all; in the last case the pages so far
// are returned without an error. The error is reserved for an unusable base
// request.
func (p *Paginator) Fetch(ctx context.Context, base *api.Request) ([]*api.Response, error) {
	if err := base.Validate(); err != nil {
		return nil, fmt.Errorf("pagination base request: %w", err)
	}

	logger := logging.NewLogger(logging.ComponentPagination).With().Str("url", base.URL).Logger()
	start := time.Now()
	logger.Info().
		Int("page_size", p.opts.PageSize).
		Int("max_pages", p.opts.MaxPages).
		Msg("Starting pagination")

	var pages []*api.Response
	for page := 1; p.opts.MaxPages == 0 || page <= p.opts.MaxPages; page++ {
		req := p.pageRequest(base, page)

		resp, err := p.exec.Do(ctx, req)
		if err != nil {
			logger.Warn().Err(err).Int("page", page).Msg("Page failed, stopping pagination")
			break
		}
		pages = append(pages, resp)

		items, _ := resp.Items()
		logger.Debug().Int("page", page).Int("status", resp.Status).Int("items", len(items)).Msg("Page fetched")

		if !p.opts.Continue(resp, p.opts.PageSize) {
			break
		}
	}

	logger.Info().
		Int("pages", len(pages)).
		Dur("duration", time.Since(start)).
		Msg("Pagination complete")
	return pages, nil
}

func (p *Paginator) pageRequest(base *api.Request, page int) *api.Request {
	req := base.Clone()
	if req.Query == nil {
		req.Query = url.Values{}
	}
	req.Query.Set(p.opts.PageParam, strconv.Itoa(page))
	req.Query.Set(p.opts.SizeParam, strconv.Itoa(p.opts.PageSize))
	req.Meta.Page = page
	return req
}

// CollectItems concatenates the list payloads of successful pages.
func CollectItems(pages []*api.Response) []any {
	var out []any
	for _, resp := range pages {
		if !resp.Success() {
			continue
		}
		if items, ok := resp.Items(); ok {
			out = append(out, items...)
		}
	}
	return out
}
