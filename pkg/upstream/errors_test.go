package upstream

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{
			name:     "timeout error",
			err:      &Error{Kind: KindTimeout, Op: "forecast"},
			expected: KindTimeout,
		},
		{
			name:     "wrapped upstream error",
			err:      fmt.Errorf("fetch: %w", &Error{Kind: KindNotFound, Op: "geocoding"}),
			expected: KindNotFound,
		},
		{
			name:     "unclassified error",
			err:      errors.New("boom"),
			expected: KindUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.expected {
				t.Errorf("KindOf() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		expected bool
	}{
		{"timeout is retryable", KindTimeout, true},
		{"unreachable is retryable", KindUnreachable, true},
		{"invalid response is retryable", KindInvalidResponse, true},
		{"not found is terminal", KindNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &Error{Kind: tt.kind, Op: "geocoding"}
			if got := IsRetryable(err); got != tt.expected {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.kind, got, tt.expected)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &Error{Kind: KindUnreachable, Op: "forecast", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
}
