package upstream

import (
	"errors"
	"fmt"
)

// Kind classifies an upstream call failure.
type Kind string

const (
	// KindTimeout is an attempt that hit its per-attempt deadline.
	KindTimeout Kind = "timeout"

	// KindUnreachable is a connection failure or upstream 5xx.
	KindUnreachable Kind = "unreachable"

	// KindInvalidResponse is an unparseable or unexpected response.
	KindInvalidResponse Kind = "invalid_response"

	// KindNotFound means the city does not resolve to a location. It is
	// caller input, not upstream health, and is never retried nor counted
	// against the breaker.
	KindNotFound Kind = "not_found"
)

// Error is a classified upstream failure.
type Error struct {
	Kind Kind
	Op   string // "geocoding" or "forecast"
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s error (%s): %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("upstream %s error (%s)", e.Kind, e.Op)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the Kind from an error chain. Unclassified errors map to
// KindUnreachable.
func KindOf(err error) Kind {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return KindUnreachable
}

// IsRetryable reports whether another attempt is worthwhile. Only upstream
// health signals are retried; NotFound is terminal.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindUnreachable, KindInvalidResponse:
		return true
	default:
		return false
	}
}
