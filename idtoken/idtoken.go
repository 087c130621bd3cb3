// Package idtoken verifies OpenID Connect identity tokens.
//
// A Verifier is the capability a provider uses to turn the raw id_token
// returned by its token endpoint into trusted claims. Three variants are
// provided: Unverified (decode only, logs a warning), a JWKS verifier built
// on keyfunc and golang-jwt, and a go-oidc verifier. Any function can be
// adapted with VerifierFunc.
package idtoken

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-openid-client/internal/errors"
	"github.com/jrsteele09/go-openid-client/internal/utils"
)

// ErrInvalidIDToken wraps every verification failure.
var ErrInvalidIDToken = fmt.Errorf("%w: invalid id token", apperrors.ErrVerification)

// asymmetricMethods are the only signing algorithms accepted from a key set.
var asymmetricMethods = []string{
	"RS256", "RS384", "RS512",
	"ES256", "ES384", "ES512",
	"PS256", "PS384", "PS512",
	"EdDSA",
}

// Verifier validates a raw identity token and returns its claims.
type Verifier interface {
	Verify(ctx context.Context, raw string) (*Claims, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, raw string) (*Claims, error)

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, raw string) (*Claims, error) {
	return f(ctx, raw)
}

// Claims are the decoded parts of an identity token.
type Claims struct {
	Raw     string
	Header  map[string]any
	Payload jwt.MapClaims
}

// String returns a string claim, or "" when absent or not a string.
func (c *Claims) String(name string) string {
	if c == nil {
		return ""
	}
	s, _ := c.Payload[name].(string)
	return s
}

// Strings returns a claim that may be a single string or a list of strings.
func (c *Claims) Strings(name string) []string {
	if c == nil {
		return nil
	}
	return utils.ToStringSlice(c.Payload[name])
}

// Audience returns the aud claim as a list.
func (c *Claims) Audience() []string { return c.Strings("aud") }

// Subject returns the sub claim.
func (c *Claims) Subject() string { return c.String("sub") }

// Issuer returns the iss claim.
func (c *Claims) Issuer() string { return c.String("iss") }

// Nonce returns the nonce claim.
func (c *Claims) Nonce() string { return c.String("nonce") }

// Email returns the email claim.
func (c *Claims) Email() string { return c.String("email") }

func claimsFromToken(raw string, token *jwt.Token) (*Claims, error) {
	payload, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type %T", ErrInvalidIDToken, token.Claims)
	}
	return &Claims{Raw: raw, Header: token.Header, Payload: payload}, nil
}
