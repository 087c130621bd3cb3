package errors

import (
	"errors"
	"fmt"
)

// Error categories for the OpenID client. Package level errors wrap one of
// these so callers can branch on the category with errors.Is.
var (
	// ErrConfiguration is fatal at setup time and never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrFlowState covers a missing or already consumed pending flow and a
	// missing authorization code. The same state value cannot be retried.
	ErrFlowState = errors.New("flow state error")

	// ErrTransport covers token endpoint failures, both network errors and
	// non-success responses.
	ErrTransport = errors.New("transport error")

	// ErrVerification covers identity tokens rejected by a verifier.
	ErrVerification = errors.New("verification error")
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
