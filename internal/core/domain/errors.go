package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy. Remote failures reach callers as *APIError values that
// unwrap to one of these, so errors.Is works across layers.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrServer          = errors.New("server error")
	ErrNetwork         = errors.New("network unavailable")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrRequest         = errors.New("request rejected")
)

// Storage errors. ErrKeyNotFound is an expected outcome, ErrStorage is not.
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrStorage     = errors.New("credential storage failure")
)

// ErrNotAuthenticated is returned by operations that need a session.
var ErrNotAuthenticated = errors.New("not authenticated")

// APIError is the normalized shape of every remote failure: a
// human-readable message plus whatever extra fields the server sent.
type APIError struct {
	// Kind is one of the taxonomy sentinels above.
	Kind error
	// Status is the HTTP status, 0 when no response was received.
	Status  int
	Message string
	Fields  map[string]any
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Kind != nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

func (e *APIError) Unwrap() error {
	return e.Kind
}
