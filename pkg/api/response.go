package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// Response is the record produced for every request that enters the engine.
type Response struct {
	// Status is the HTTP status code, or 0 for a placeholder produced when no
	// response could be obtained.
	Status int

	// Body is the decoded JSON value when the content type indicates JSON,
	// otherwise the raw text.
	Body any

	// Headers are the response headers.
	Headers http.Header

	// URL is the resolved request URL.
	URL string

	// Elapsed is the duration of the attempt that produced this record.
	Elapsed time.Duration

	// CompletedAt is when the record was produced.
	CompletedAt time.Time

	// Meta is copied from the originating request.
	Meta Metadata

	// Attempts is the number of network attempts made for the logical request.
	Attempts int

	// Cached is true when the record was served from the response cache.
	Cached bool

	// RequestID identifies the logical request in logs and upstream headers.
	RequestID string
}

// Success reports whether the status is in the 2xx range.
func (r *Response) Success() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// Failed builds a placeholder record for a request that produced no response.
func Failed(req *Request, err error) *Response {
	resp := &Response{
		Status:      0,
		Body:        map[string]any{"error": errorText(err)},
		Headers:     http.Header{},
		URL:         "unknown",
		CompletedAt: time.Now(),
	}
	if req != nil {
		resp.URL = req.URL
		resp.Meta = req.Meta.Clone()
	}
	return resp
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// ErrorMessage returns the error payload of a placeholder record, if any.
func (r *Response) ErrorMessage() string {
	if r == nil || r.Status != 0 {
		return ""
	}
	if m, ok := r.Body.(map[string]any); ok {
		if s, ok := m["error"].(string); ok {
			return s
		}
	}
	return ""
}

// Items returns the list payload of the body: the body itself when it is a
// JSON array, or its "items" field when the body is an object holding one.
func (r *Response) Items() ([]any, bool) {
	if r == nil {
		return nil, false
	}
	switch body := r.Body.(type) {
	case []any:
		return body, true
	case map[string]any:
		if items, ok := body["items"].([]any); ok {
			return items, true
		}
	}
	return nil, false
}

// ToMap returns a flat representation suitable for serialization.
func (r *Response) ToMap() map[string]any {
	headers := make(map[string]string, len(r.Headers))
	for k := range r.Headers {
		headers[k] = r.Headers.Get(k)
	}
	return map[string]any{
		"status":        r.Status,
		"data":          r.Body,
		"headers":       headers,
		"url":           r.URL,
		"request_time":  r.Elapsed.Seconds(),
		"response_time": r.CompletedAt.Format(time.RFC3339Nano),
		"success":       r.Success(),
		"metadata":      r.Meta,
		"attempts":      r.Attempts,
		"cached":        r.Cached,
	}
}

// MarshalJSON implements json.Marshaler using ToMap.
func (r *Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ToMap())
}
