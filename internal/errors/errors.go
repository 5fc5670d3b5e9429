package errors

import (
	"errors"
	"fmt"
)

// Common error types for the console core
var (
	// Authentication errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")

	// Input errors reported by the API
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")

	// Transport errors
	ErrNetworkFailure = errors.New("network failure")

	// Selection errors
	ErrNotFound = errors.New("not found")

	// Single-writer guard
	ErrBusy = errors.New("operation already in flight")
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

// IsExpected reports whether err belongs to the taxonomy the core handles
// itself. Anything else is a programming error and should propagate.
func IsExpected(err error) bool {
	for _, target := range []error{
		ErrUnauthorized, ErrInvalidCredentials, ErrNotAuthenticated,
		ErrValidation, ErrConflict, ErrNetworkFailure, ErrNotFound, ErrBusy,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
