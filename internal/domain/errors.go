package domain

import (
	"errors"
	"fmt"
)

// Failure taxonomy for remote exchanges. Check with errors.Is.
var (
	ErrTransportFailure = errors.New("order service unreachable")
	ErrRejected         = errors.New("request rejected by order service")
	ErrNotFound         = errors.New("not found")
)

// RequestError describes a failed exchange with the order service.
type RequestError struct {
	Op         string
	StatusCode int // zero for transport failures
	Detail     string
	Kind       error
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Detail)
	}
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v (status %d)", e.Op, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v (status %d): %s", e.Op, e.Kind, e.StatusCode, e.Detail)
}

func (e *RequestError) Unwrap() error {
	return e.Kind
}
