package pickup

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a request ID does not resolve.
var ErrNotFound = errors.New("request not found")

// ForbiddenError is returned when the caller's role or relationship to a
// request does not permit the operation.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return e.Reason }

// ValidationError names the input field that was missing or malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func forbidden(reason string) error {
	return &ForbiddenError{Reason: reason}
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
