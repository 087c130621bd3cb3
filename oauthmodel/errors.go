package oauthmodel

import (
	"fmt"

	apperrors "github.com/jrsteele09/go-openid-client/internal/errors"
)

var (
	// ErrMissingRedirectURI is returned by Merge when no layer sets a redirect URI.
	ErrMissingRedirectURI = fmt.Errorf("%w: redirect_uri is required", apperrors.ErrConfiguration)
	// ErrInvalidMaxAge is returned by Merge for a negative max_age.
	ErrInvalidMaxAge = fmt.Errorf("%w: max_age must not be negative", apperrors.ErrConfiguration)
)
