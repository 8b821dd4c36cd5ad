package client

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{200, ""},
		{304, ""},
		{400, ErrorClassClient},
		{404, ErrorClassClient},
		{429, ErrorClassRateLimit},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.want {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestExhaustedRetriesError(t *testing.T) {
	err := &ExhaustedRetriesError{
		Method:   "GET",
		URL:      "https://api.example.com/orders",
		Attempts: 4,
		Err:      io.ErrUnexpectedEOF,
	}

	msg := err.Error()
	for _, part := range []string{"GET", "https://api.example.com/orders", "4 attempts", "unexpected EOF"} {
		if !strings.Contains(msg, part) {
			t.Errorf("Error() = %q, missing %q", msg, part)
		}
	}

	if !errors.Is(err, ErrRetryExhausted) {
		t.Error("errors.Is(err, ErrRetryExhausted) should be true")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	if errors.Is(err, ErrInvalidRequest) {
		t.Error("unexpected match for ErrInvalidRequest")
	}

	var target *ExhaustedRetriesError
	if !errors.As(error(err), &target) || target.Attempts != 4 {
		t.Error("errors.As should yield the typed error")
	}
}
