package completion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one exchange in a conversation history.
type Turn struct {
	Role string
	Text string
}

// Client produces one completion for a prepared conversation. The system
// text is prepended by the implementation in whatever shape the upstream
// expects.
type Client interface {
	Generate(ctx context.Context, system string, turns []Turn) (string, error)
}

// Classification buckets an upstream failure by how the caller should
// react to it.
type Classification string

const (
	ClassOK          Classification = "ok"
	ClassRateLimited Classification = "rate_limited"
	ClassRejected    Classification = "rejected"
	ClassUnavailable Classification = "unavailable"
)

// UpstreamError preserves the HTTP status of a failed completion call so
// the adapter can classify it.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Body)
}

// Error is what the adapter returns when all attempts are exhausted. Class
// reflects the last failure seen.
type Error struct {
	Class Classification
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("completion %s: %v", e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ClassOf extracts the classification from an adapter error, or ClassOK
// for nil.
func ClassOf(err error) Classification {
	if err == nil {
		return ClassOK
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Class
	}
	return ClassUnavailable
}

// Classify maps a raw client error onto a reaction bucket. Anything that
// is not provably a quota or content refusal counts as transient.
func Classify(err error) Classification {
	if err == nil {
		return ClassOK
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		switch {
		case ue.StatusCode == http.StatusTooManyRequests:
			return ClassRateLimited
		case ue.StatusCode == http.StatusBadRequest,
			ue.StatusCode == http.StatusForbidden,
			ue.StatusCode == http.StatusUnprocessableEntity:
			return ClassRejected
		default:
			return ClassUnavailable
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassUnavailable
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ClassUnavailable
	}
	return ClassUnavailable
}
