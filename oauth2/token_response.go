package oauth2

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// TokenResponse represents a successful response from an OAuth2 token endpoint
// as defined in RFC 6749 section 5.1 plus the OpenID Connect id_token.
type TokenResponse struct {
	// AccessToken is the token used to access protected resources.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	AccessToken string `json:"access_token"`

	// IDToken is the OpenID Connect ID token containing user identity information.
	// Only present: When "openid" scope was requested
	IDToken string `json:"id_token"`

	// TokenType indicates how to use the access token (usually "Bearer").
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token. Zero when
	// the provider omitted it.
	ExpiresIn int64 `json:"expires_in,omitempty"`

	// RefreshToken is an opaque token used to obtain new access tokens.
	RefreshToken string `json:"refresh_token,omitempty"`

	// Scope indicates the access token's granted permissions.
	// Note: May be less than requested if some scopes were denied
	Scope string `json:"scope,omitempty"`

	// Extra holds every other member of the response body.
	Extra map[string]any `json:"-"`
}

// ErrorResponse is the body of a failed token request (RFC 6749 section 5.2).
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
}

var knownTokenFields = map[string]struct{}{
	"access_token":  {},
	"id_token":      {},
	"token_type":    {},
	"expires_in":    {},
	"refresh_token": {},
	"scope":         {},
}

// ParseTokenResponse decodes a token endpoint body. Unknown members are kept
// in Extra. expires_in is accepted as a number or a numeric string.
func ParseTokenResponse(body []byte) (*TokenResponse, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}

	resp := &TokenResponse{Extra: map[string]any{}}
	var err error
	if resp.AccessToken, err = stringField(raw, "access_token"); err != nil {
		return nil, err
	}
	if resp.IDToken, err = stringField(raw, "id_token"); err != nil {
		return nil, err
	}
	if resp.TokenType, err = stringField(raw, "token_type"); err != nil {
		return nil, err
	}
	if resp.RefreshToken, err = stringField(raw, "refresh_token"); err != nil {
		return nil, err
	}
	if resp.Scope, err = stringField(raw, "scope"); err != nil {
		return nil, err
	}
	if resp.ExpiresIn, err = intField(raw, "expires_in"); err != nil {
		return nil, err
	}

	for k, v := range raw {
		if _, known := knownTokenFields[k]; known {
			continue
		}
		if n, ok := v.(json.Number); ok {
			v = numberValue(n)
		}
		resp.Extra[k] = v
	}
	return resp, nil
}

// MissingFields returns the names of required members that are empty.
func (r *TokenResponse) MissingFields() []string {
	var missing []string
	if r.AccessToken == "" {
		missing = append(missing, "access_token")
	}
	if r.TokenType == "" {
		missing = append(missing, "token_type")
	}
	if r.IDToken == "" {
		missing = append(missing, "id_token")
	}
	return missing
}

func stringField(raw map[string]any, name string) (string, error) {
	v, ok := raw[name]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("token response field %q is %T, want string", name, v)
	}
	return s, nil
}

func intField(raw map[string]any, name string) (int64, error) {
	v, ok := raw[name]
	if !ok || v == nil {
		return 0, nil
	}
	var text string
	switch n := v.(type) {
	case json.Number:
		text = n.String()
	case string:
		text = n
	default:
		return 0, fmt.Errorf("token response field %q is %T, want number", name, v)
	}
	if text == "" {
		return 0, nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(text, 64)
		if ferr != nil {
			return 0, fmt.Errorf("token response field %q: %w", name, err)
		}
		i = int64(f)
	}
	return i, nil
}

func numberValue(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
