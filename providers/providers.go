// Package providers holds ready made auth.Provider configurations for
// well known OpenID providers.
package providers

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/jrsteele09/go-openid-client/auth"
	"github.com/jrsteele09/go-openid-client/idtoken"
	apperrors "github.com/jrsteele09/go-openid-client/internal/errors"
	"github.com/jrsteele09/go-openid-client/oauthmodel"
)

// ErrMissingCredentials is returned when a provider's client id is present
// but its secret is not.
var ErrMissingCredentials = fmt.Errorf("%w: missing provider credentials", apperrors.ErrConfiguration)

// VerifierKind selects the library used to check id_token signatures.
type VerifierKind int

const (
	// VerifierJWKS uses keyfunc and golang-jwt.
	VerifierJWKS VerifierKind = iota
	// VerifierOIDC uses go-oidc.
	VerifierOIDC
)

// Preset describes the fixed endpoints of a known provider.
type Preset struct {
	// ID is the provider id used in flows and routes, e.g. "google".
	ID string

	// EnvPrefix is prepended to CLIENT_ID and CLIENT_SECRET when loading
	// credentials from the environment, e.g. "GOOGLE_".
	EnvPrefix string

	AuthorizationURI string
	TokenURI         string

	// KeysURI is the provider's JSON Web Key Set. Empty means id tokens
	// cannot be verified and idtoken.Unverified is used.
	KeysURI string

	// Issuers are the accepted iss values.
	Issuers []string

	Verifier VerifierKind
}

var (
	GooglePreset = Preset{
		ID:               "google",
		EnvPrefix:        "GOOGLE_",
		AuthorizationURI: "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURI:         "https://oauth2.googleapis.com/token",
		KeysURI:          "https://www.googleapis.com/oauth2/v3/certs",
		Issuers:          []string{"https://accounts.google.com", "accounts.google.com"},
		Verifier:         VerifierOIDC,
	}

	FacebookPreset = Preset{
		ID:               "facebook",
		EnvPrefix:        "FACEBOOK_",
		AuthorizationURI: "https://www.facebook.com/v18.0/dialog/oauth",
		TokenURI:         "https://graph.facebook.com/v18.0/oauth/access_token",
		KeysURI:          "https://www.facebook.com/.well-known/oauth/openid/jwks/",
		Issuers:          []string{"https://www.facebook.com"},
		Verifier:         VerifierJWKS,
	}
)

// Presets lists every known provider by id.
var Presets = map[string]Preset{
	GooglePreset.ID:   GooglePreset,
	FacebookPreset.ID: FacebookPreset,
}

// Options override parts of a preset. Zero fields keep the preset value.
type Options struct {
	ClientID     string
	ClientSecret string

	AuthorizationURI string
	TokenURI         string
	KeysURI          string

	// Defaults become the provider's auth.Provider.Options.
	Defaults *oauthmodel.CommonOptions

	// Verifier replaces the key set verifier entirely.
	Verifier idtoken.Verifier
}

// credentials is the environment shape of one provider.
type credentials struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

// Google returns the Google provider.
func Google(ctx context.Context, opts Options) (auth.Provider, error) {
	return New(ctx, GooglePreset, opts)
}

// Facebook returns the Facebook provider.
func Facebook(ctx context.Context, opts Options) (auth.Provider, error) {
	return New(ctx, FacebookPreset, opts)
}

// New fills opts from preset and validates the result. ctx bounds any
// background key set refresh, so it should live as long as the provider.
func New(ctx context.Context, preset Preset, opts Options) (auth.Provider, error) {
	p := auth.Provider{
		AuthorizationURI: firstNonEmpty(opts.AuthorizationURI, preset.AuthorizationURI),
		TokenURI:         firstNonEmpty(opts.TokenURI, preset.TokenURI),
		ClientID:         opts.ClientID,
		ClientSecret:     opts.ClientSecret,
		Options:          opts.Defaults,
		Verifier:         opts.Verifier,
	}
	if p.ClientID == "" {
		return auth.Provider{}, fmt.Errorf("%w: %s client id is required", auth.ErrInvalidProvider, preset.ID)
	}

	if p.Verifier == nil {
		verifier, err := newVerifier(ctx, preset, firstNonEmpty(opts.KeysURI, preset.KeysURI), p.ClientID)
		if err != nil {
			return auth.Provider{}, err
		}
		p.Verifier = verifier
	}

	if err := p.Validate(); err != nil {
		return auth.Provider{}, err
	}
	return p, nil
}

func newVerifier(ctx context.Context, preset Preset, keysURI, clientID string) (idtoken.Verifier, error) {
	if keysURI == "" {
		return idtoken.Unverified(), nil
	}

	switch preset.Verifier {
	case VerifierOIDC:
		cfg := idtoken.OIDCConfig{
			JWKSURL:         keysURI,
			ClientID:        clientID,
			SkipIssuerCheck: len(preset.Issuers) == 0,
		}
		if len(preset.Issuers) > 0 {
			cfg.Issuer = preset.Issuers[0]
		}
		return idtoken.NewOIDCVerifier(ctx, cfg)
	default:
		return newLazyVerifier(ctx, func(ctx context.Context) (idtoken.Verifier, error) {
			return idtoken.NewJWKSVerifier(ctx, idtoken.JWKSConfig{
				URL:      keysURI,
				Issuers:  preset.Issuers,
				Audience: clientID,
			})
		}), nil
	}
}

// FromEnv builds every preset whose <PREFIX>CLIENT_ID is set in the process
// environment.
func FromEnv(ctx context.Context, defaults *oauthmodel.CommonOptions) (map[string]auth.Provider, error) {
	return FromEnvironment(ctx, env.ToMap(os.Environ()), defaults)
}

// FromEnvironment is FromEnv over an explicit environment.
func FromEnvironment(ctx context.Context, environ map[string]string, defaults *oauthmodel.CommonOptions) (map[string]auth.Provider, error) {
	ids := make([]string, 0, len(Presets))
	for id := range Presets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := make(map[string]auth.Provider)
	for _, id := range ids {
		preset := Presets[id]

		var creds credentials
		if err := env.ParseWithOptions(&creds, env.Options{
			Environment: environ,
			Prefix:      preset.EnvPrefix,
		}); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrConfiguration, id, err)
		}

		creds.ClientID = strings.TrimSpace(creds.ClientID)
		if creds.ClientID == "" {
			continue
		}
		if strings.TrimSpace(creds.ClientSecret) == "" {
			return nil, fmt.Errorf("%w: %sCLIENT_ID exists in environment, but %sCLIENT_SECRET is missing",
				ErrMissingCredentials, preset.EnvPrefix, preset.EnvPrefix)
		}

		provider, err := New(ctx, preset, Options{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Defaults:     defaults,
		})
		if err != nil {
			return nil, err
		}
		result[id] = provider
	}
	return result, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
