package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-openid-client/auth"
	apperrors "github.com/jrsteele09/go-openid-client/internal/errors"
)

var (
	ErrInvalidPath    = fmt.Errorf("%w: invalid path", apperrors.ErrConfiguration)
	ErrInvalidBaseURL = fmt.Errorf("%w: invalid base url", apperrors.ErrConfiguration)

	// ErrMissingProvider is returned by sign-in when several providers are
	// configured and the request does not name one.
	ErrMissingProvider = errors.New("no openid provider selected")

	// ErrAuthorizationDenied is returned by the callback when the provider
	// answered with an error instead of a code.
	ErrAuthorizationDenied = fmt.Errorf("%w: authorization denied", apperrors.ErrFlowState)
)

// ProviderError carries the error parameters the provider sent to the
// callback.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%v: %s", ErrAuthorizationDenied, e.Code)
	}
	return fmt.Sprintf("%v: %s (%s)", ErrAuthorizationDenied, e.Code, e.Description)
}

func (e *ProviderError) Unwrap() error {
	return ErrAuthorizationDenied
}

// StatusFor maps an error from the flow to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case apperrors.Is(err, ErrMissingProvider), apperrors.Is(err, auth.ErrUnknownProvider):
		return http.StatusBadRequest
	case apperrors.Is(err, apperrors.ErrFlowState):
		return http.StatusBadRequest
	case apperrors.Is(err, apperrors.ErrVerification):
		return http.StatusUnauthorized
	case apperrors.Is(err, apperrors.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
