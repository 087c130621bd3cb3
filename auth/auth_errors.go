package auth

import (
	"fmt"
	"strings"

	apperrors "github.com/jrsteele09/go-openid-client/internal/errors"
)

var (
	ErrNoProviders        = fmt.Errorf("%w: no openid providers configured", apperrors.ErrConfiguration)
	ErrUnknownProvider    = fmt.Errorf("%w: unknown provider", apperrors.ErrConfiguration)
	ErrInvalidProvider    = fmt.Errorf("%w: invalid provider", apperrors.ErrConfiguration)
	ErrInvalidRedirectURI = fmt.Errorf("%w: invalid redirect uri", apperrors.ErrConfiguration)
	ErrInvalidFlowTTL     = fmt.Errorf("%w: flow ttl must be at least %s", apperrors.ErrConfiguration, MinFlowTTL)

	ErrNoSession = fmt.Errorf("%w: no openid session found", apperrors.ErrFlowState)
	ErrNoCode    = fmt.Errorf("%w: no authorization code provided", apperrors.ErrFlowState)

	ErrCodeExchangeFailed   = fmt.Errorf("%w: code exchange failed", apperrors.ErrTransport)
	ErrInvalidTokenResponse = fmt.Errorf("%w: invalid token response", apperrors.ErrTransport)

	ErrNonceMismatch = fmt.Errorf("%w: id token nonce mismatch", apperrors.ErrVerification)
)

// TokenEndpointError is returned when the token endpoint answers with a
// non-success status. It unwraps to ErrCodeExchangeFailed.
type TokenEndpointError struct {
	StatusCode  int
	Status      string // e.g. "400 Bad Request"
	ErrorCode   string // OAuth "error" member, when the body carried one
	Description string // OAuth "error_description" member
}

func (e *TokenEndpointError) Error() string {
	var b strings.Builder
	b.WriteString(ErrCodeExchangeFailed.Error())
	b.WriteString(": ")
	b.WriteString(e.Status)
	if e.ErrorCode != "" {
		b.WriteString(" (")
		b.WriteString(e.ErrorCode)
		if e.Description != "" {
			b.WriteString(": ")
			b.WriteString(e.Description)
		}
		b.WriteString(")")
	}
	return b.String()
}

func (e *TokenEndpointError) Unwrap() error {
	return ErrCodeExchangeFailed
}
