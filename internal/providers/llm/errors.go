package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is returned for a missing credential and matches 401
	// and 403 responses.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrIdleTimeout is returned when a body read makes no progress within
	// the configured window.
	ErrIdleTimeout = errors.New("stream idle timeout")
)

// StatusError is a non-2xx response from the completion service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized &&
		(e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden)
}

// Temporary reports whether the request may succeed when repeated.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}
