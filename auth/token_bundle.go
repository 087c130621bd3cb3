package auth

import (
	"time"

	"github.com/jrsteele09/go-openid-client/idtoken"
)

// TokenBundle is the result of a successful code exchange. It is built fresh
// on every call and never persisted by this package.
type TokenBundle[I any] struct {
	AccessToken  string
	TokenType    string
	ExpiresIn    int64
	Expiry       time.Time // zero when the provider did not send expires_in
	RefreshToken string
	Scope        string

	// Extra holds every other member of the token response.
	Extra map[string]any

	// IDToken holds the verified identity claims.
	IDToken *idtoken.Claims

	ProviderID string

	// Info is the value passed to Authenticate for this flow.
	Info I
}
