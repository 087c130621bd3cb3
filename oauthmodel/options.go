package oauthmodel

import (
	"strings"

	"github.com/jrsteele09/go-openid-client/internal/utils"
	"github.com/jrsteele09/go-openid-client/oauth2"
)

// CommonOptions are the authorization request options that may be set
// globally, per provider or per call. A field is present when it holds a
// non-zero value; present fields of a higher layer replace the lower layer's
// value entirely.
type CommonOptions struct {
	// Scope lists the requested scopes. Elements may themselves be space
	// delimited ("openid email").
	// Example: []string{"email", "profile"}
	// Normalised: "openid" is always sent first, duplicates dropped
	Scope []string

	// RedirectURI is where the provider sends the user after authentication.
	// Required: Yes (in at least one layer)
	// Example: "https://myapp.com/openid/callback"
	// Security: Must exactly match a URI registered with the provider, and is
	// resent unchanged at the token endpoint
	RedirectURI string

	// Display tells the provider how to render its UI.
	// Example: oauth2.DisplayPopup
	Display oauth2.DisplayType

	// Prompt asks the provider to force (or suppress) specific screens.
	// Example: []oauth2.PromptType{oauth2.PromptConsent}
	Prompt []oauth2.PromptType

	// MaxAge is the allowed elapsed time in seconds since the user last
	// authenticated. Zero means not sent.
	MaxAge int

	// UILocales lists preferred UI languages as BCP47 tags.
	// Example: []string{"fr-CA", "fr", "en"}
	UILocales []string

	// ACRValues lists requested authentication context class references.
	ACRValues []string
}

// PerCallOptions are the options accepted by a single authentication call.
// Nonce and the hints identify one user or one session, so they can only
// be supplied per call.
type PerCallOptions struct {
	CommonOptions

	// Nonce is a random value echoed back in the ID token.
	// Security: Prevents replay of an ID token; checked after verification
	Nonce string

	// IDTokenHint is a previously issued ID token used as a hint about the
	// user's current session.
	IDTokenHint string

	// LoginHint pre-fills the username/email on the provider's login page.
	// Example: "user@example.com"
	LoginHint string
}

// EffectiveOptions is the merged configuration for one authentication attempt.
type EffectiveOptions struct {
	// Scope is the normalised, space delimited scope; it always contains
	// "openid".
	Scope       string
	RedirectURI string
	Display     oauth2.DisplayType
	Prompt      []oauth2.PromptType
	MaxAge      int
	UILocales   []string
	ACRValues   []string
	Nonce       string
	IDTokenHint string
	LoginHint   string
}

// Merge resolves the three option layers, lowest precedence first. Any
// layer may be nil.
func Merge(global, provider *CommonOptions, perCall *PerCallOptions) (EffectiveOptions, error) {
	var merged CommonOptions
	overlay(&merged, global)
	overlay(&merged, provider)

	call := utils.Value(perCall)
	overlay(&merged, &call.CommonOptions)

	eff := EffectiveOptions{
		Nonce:       call.Nonce,
		IDTokenHint: call.IDTokenHint,
		LoginHint:   call.LoginHint,
	}

	if strings.TrimSpace(merged.RedirectURI) == "" {
		return EffectiveOptions{}, ErrMissingRedirectURI
	}
	if merged.MaxAge < 0 {
		return EffectiveOptions{}, ErrInvalidMaxAge
	}

	eff.Scope = NormalizeScope(merged.Scope)
	eff.RedirectURI = merged.RedirectURI
	eff.Display = merged.Display
	eff.Prompt = append([]oauth2.PromptType(nil), merged.Prompt...)
	eff.MaxAge = merged.MaxAge
	eff.UILocales = append([]string(nil), merged.UILocales...)
	eff.ACRValues = append([]string(nil), merged.ACRValues...)
	return eff, nil
}

func overlay(dst, src *CommonOptions) {
	if src == nil {
		return
	}
	if len(src.Scope) > 0 {
		dst.Scope = src.Scope
	}
	if src.RedirectURI != "" {
		dst.RedirectURI = src.RedirectURI
	}
	if src.Display != "" {
		dst.Display = src.Display
	}
	if len(src.Prompt) > 0 {
		dst.Prompt = src.Prompt
	}
	if src.MaxAge != 0 {
		dst.MaxAge = src.MaxAge
	}
	if len(src.UILocales) > 0 {
		dst.UILocales = src.UILocales
	}
	if len(src.ACRValues) > 0 {
		dst.ACRValues = src.ACRValues
	}
}

// NormalizeScope splits every element on whitespace, drops empties and
// duplicates (first occurrence wins) and makes sure "openid" comes first
// when it was not requested at all.
func NormalizeScope(scopes []string) string {
	seen := map[string]struct{}{}
	var ordered []string
	for _, s := range scopes {
		for _, field := range strings.Fields(s) {
			if _, dup := seen[field]; dup {
				continue
			}
			seen[field] = struct{}{}
			ordered = append(ordered, field)
		}
	}
	if _, ok := seen[oauth2.ScopeOpenID]; !ok {
		ordered = append([]string{oauth2.ScopeOpenID}, ordered...)
	}
	return strings.Join(ordered, " ")
}
