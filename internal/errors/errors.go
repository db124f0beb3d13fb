package errors

import (
	"errors"
	"fmt"
)

// Common error types for the portal client
var (
	// Session errors
	ErrNoSession        = errors.New("no stored session")
	ErrSessionRejected  = errors.New("session rejected by backend")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrAlreadyStarted   = errors.New("session controller already started")
	ErrNilIdentity      = errors.New("identity is required")

	// Store errors
	ErrCorruptRecord = errors.New("stored session record is corrupt")

	// Transport errors
	ErrUnauthorized = errors.New("credential not accepted")
	ErrTransport    = errors.New("transport failure")

	// Form errors
	ErrValidation = errors.New("validation failed")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
