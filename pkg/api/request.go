package api

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Method is an HTTP verb supported by the engine.
type Method string

// Supported HTTP methods.
const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

// ParseMethod converts a case-insensitive verb into a Method.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	if m == "" {
		return MethodGet, nil
	}
	if !m.Valid() {
		return "", fmt.Errorf("unsupported method %q", s)
	}
	return m, nil
}

// Valid reports whether m is one of the supported verbs.
func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	default:
		return false
	}
}

// Request describes one logical HTTP request.
type Request struct {
	// URL is either absolute or a path relative to the client's base URL.
	URL string

	// Method defaults to GET when empty.
	Method Method

	// Headers are merged over the client's default headers.
	Headers map[string]string

	// Query parameters appended to the URL.
	Query url.Values

	// Body is sent raw when it is a string or []byte, JSON-encoded otherwise.
	Body any

	// Timeout bounds each attempt. Zero uses the client default.
	Timeout time.Duration

	// Meta is echoed unmodified into the response.
	Meta Metadata

	// NoCache bypasses the response cache for this request.
	NoCache bool
}

// NewRequest returns a GET request for the given URL or path.
func NewRequest(rawURL string) *Request {
	return &Request{URL: rawURL, Method: MethodGet}
}

// EffectiveMethod returns the request method, defaulting to GET.
func (r *Request) EffectiveMethod() Method {
	if r.Method == "" {
		return MethodGet
	}
	return r.Method
}

// Validate checks that the request can be dispatched.
func (r *Request) Validate() error {
	if r == nil {
		return fmt.Errorf("request is nil")
	}
	if strings.TrimSpace(r.URL) == "" {
		return fmt.Errorf("request url is required")
	}
	if !r.EffectiveMethod().Valid() {
		return fmt.Errorf("unsupported method %q", r.Method)
	}
	if r.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0 (got %s)", r.Timeout)
	}
	return nil
}

// Clone returns a copy of r whose maps can be modified independently.
// Body is shared.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	if r.Headers != nil {
		c.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			c.Headers[k] = v
		}
	}
	if r.Query != nil {
		c.Query = make(url.Values, len(r.Query))
		for k, v := range r.Query {
			c.Query[k] = append([]string(nil), v...)
		}
	}
	c.Meta = r.Meta.Clone()
	return &c
}
