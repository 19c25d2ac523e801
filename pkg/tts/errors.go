package tts

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoServerURL is returned when the synthesis server address is
	// missing from both the options and the environment.
	ErrNoServerURL = errors.New("tts: server URL required")
)

// ServiceError wraps an error with backend context.
type ServiceError struct {
	Backend string
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("tts [%s]: %v", e.Backend, e.Err)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with backend context.
func WrapError(backend string, err error) error {
	if err == nil {
		return nil
	}
	return &ServiceError{Backend: backend, Err: err}
}
