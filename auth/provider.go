package auth

import (
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-openid-client/idtoken"
	"github.com/jrsteele09/go-openid-client/oauthmodel"
)

// HTTPClient is the transport used for token requests. *http.Client
// satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Provider is the static configuration of one OpenID provider.
type Provider struct {
	// AuthorizationURI is where the user is sent to sign in.
	// Example: "https://accounts.google.com/o/oauth2/v2/auth"
	AuthorizationURI string

	// TokenURI is where the authorization code is exchanged.
	// Example: "https://oauth2.googleapis.com/token"
	TokenURI string

	// ClientID identifies this application to the provider.
	ClientID string

	// ClientSecret is optional. When set the token request authenticates
	// with HTTP Basic, otherwise client_id is sent in the body.
	// Security: Never log or expose this value
	ClientSecret string

	// Options are this provider's defaults; they override the flow's
	// global options and are overridden per call.
	Options *oauthmodel.CommonOptions

	// Verifier validates the id_token returned by TokenURI.
	Verifier idtoken.Verifier
}

// Validate checks the provider can take part in a flow.
func (p Provider) Validate() error {
	if err := ValidateEndpointURI("authorization uri", p.AuthorizationURI); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProvider, err)
	}
	if err := ValidateEndpointURI("token uri", p.TokenURI); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProvider, err)
	}
	if p.ClientID == "" {
		return fmt.Errorf("%w: client id is required", ErrInvalidProvider)
	}
	if p.Verifier == nil {
		return fmt.Errorf("%w: verifier is required (use idtoken.Unverified explicitly to skip verification)", ErrInvalidProvider)
	}
	return nil
}

// IsPublic reports whether the provider authenticates without a secret.
func (p Provider) IsPublic() bool {
	return p.ClientSecret == ""
}
