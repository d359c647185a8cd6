package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrMalformedPayload wraps response bodies that are not valid JSON.
var ErrMalformedPayload = errors.New("malformed payload")

// TransportError is a network failure, timeout or non-2xx response.
type TransportError struct {
	Method string
	Path   string
	// Status is the HTTP status, or 0 when no response arrived.
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Method, e.Path, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request ran out of time.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(e.Err, &nerr) && nerr.Timeout()
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var terr *TransportError
	return errors.As(err, &terr) && terr.Status == 404
}
