package idtoken

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWKSConfig configures a JWKSVerifier.
type JWKSConfig struct {
	// URL of the provider's JSON Web Key Set. Ignored when KeySet is set.
	URL string

	// KeySet overrides the remote key set (e.g. keyfunc.NewJWKSetJSON).
	KeySet keyfunc.Keyfunc

	// Issuers lists the accepted iss values. Empty skips the check.
	Issuers []string

	// Audience is the expected aud, normally the client id. Empty skips
	// the check.
	Audience string

	// Leeway allowed on exp, nbf and iat.
	Leeway time.Duration

	// Now replaces time.Now (primarily for testing).
	Now func() time.Time
}

// JWKSVerifier checks the signature of identity tokens against a remote
// JSON Web Key Set, which keyfunc refreshes in the background.
type JWKSVerifier struct {
	keySet keyfunc.Keyfunc
	parser *jwt.Parser
	cfg    JWKSConfig
}

// NewJWKSVerifier fetches the key set once and keeps it refreshed for the
// life of ctx.
func NewJWKSVerifier(ctx context.Context, cfg JWKSConfig) (*JWKSVerifier, error) {
	keySet := cfg.KeySet
	if keySet == nil {
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, fmt.Errorf("%w: jwks url is required", ErrInvalidIDToken)
		}
		var err error
		keySet, err = keyfunc.NewDefaultCtx(ctx, []string{cfg.URL})
		if err != nil {
			return nil, fmt.Errorf("%w: load jwks %s: %v", ErrInvalidIDToken, cfg.URL, err)
		}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(asymmetricMethods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(cfg.Now))
	}

	return &JWKSVerifier{
		keySet: keySet,
		parser: jwt.NewParser(opts...),
		cfg:    cfg,
	}, nil
}

// Verify checks signature, expiry, audience and issuer.
func (v *JWKSVerifier) Verify(_ context.Context, raw string) (*Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidIDToken)
	}

	token, err := v.parser.Parse(raw, v.keySet.Keyfunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidIDToken
	}

	claims, err := claimsFromToken(raw, token)
	if err != nil {
		return nil, err
	}
	if len(v.cfg.Issuers) > 0 && !slices.Contains(v.cfg.Issuers, claims.Issuer()) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidIDToken, claims.Issuer())
	}
	return claims, nil
}
