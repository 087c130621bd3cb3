package oauth2

// ResponseType represents the OAuth 2.0 response type.
// Determines what is returned from the authorization endpoint.
type ResponseType string

const (
	// CodeResponseType indicates the authorization code flow.
	// The only response type this client requests; tokens are always
	// obtained from the token endpoint, never from the redirect.
	// Example: /authorize?response_type=code&client_id=...
	CodeResponseType ResponseType = "code"
)

// CodeMethodType represents the PKCE (Proof Key for Code Exchange) challenge method.
type CodeMethodType string

const (
	// CodeMethodTypeS256 indicates SHA-256 hashing is used for the code challenge.
	// Client sends: code_challenge = BASE64URL(SHA256(code_verifier))
	// Server validates: SHA256(provided code_verifier) == stored code_challenge
	// Plain challenges are not supported.
	CodeMethodTypeS256 CodeMethodType = "S256"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	// Token request includes: code, code_verifier, redirect_uri and either
	// HTTP Basic client credentials or client_id in the body.
	// Returns: access_token, id_token, refresh_token (if granted)
	AuthorizationCodeGrant GrantType = "authorization_code"
)

// DisplayType is the OpenID Connect display parameter.
// Tells the provider how to render its authentication and consent UI.
type DisplayType string

const (
	// DisplayPage renders a full user agent page (the provider default).
	DisplayPage DisplayType = "page"
	// DisplayPopup renders a popup-sized page.
	DisplayPopup DisplayType = "popup"
	// DisplayTouch renders a UI for touch devices.
	DisplayTouch DisplayType = "touch"
	// DisplayWAP renders a "feature phone" UI.
	DisplayWAP DisplayType = "wap"
)

// PromptType is one value of the OpenID Connect prompt parameter.
// Several values may be sent together, space separated.
type PromptType string

const (
	// PromptNone must not display any UI; the provider returns an error
	// if the user is not already authenticated.
	PromptNone PromptType = "none"
	// PromptLogin forces reauthentication.
	PromptLogin PromptType = "login"
	// PromptConsent forces the consent screen.
	PromptConsent PromptType = "consent"
	// PromptSelectAccount asks the user to pick an account.
	PromptSelectAccount PromptType = "select_account"
)

// Authorization and token endpoint parameter names.
const (
	ParamClientID            = "client_id"
	ParamResponseType        = "response_type"
	ParamRedirectURI         = "redirect_uri"
	ParamScope               = "scope"
	ParamState               = "state"
	ParamCodeChallenge       = "code_challenge"
	ParamCodeChallengeMethod = "code_challenge_method"
	ParamDisplay             = "display"
	ParamPrompt              = "prompt"
	ParamMaxAge              = "max_age"
	ParamUILocales           = "ui_locales"
	ParamACRValues           = "acr_values"
	ParamNonce               = "nonce"
	ParamIDTokenHint         = "id_token_hint"
	ParamLoginHint           = "login_hint"
	ParamGrantType           = "grant_type"
	ParamCode                = "code"
	ParamCodeVerifier        = "code_verifier"
	ParamError               = "error"
	ParamErrorDescription    = "error_description"
)

// ScopeOpenID is the scope every OpenID Connect request must carry.
const ScopeOpenID = "openid"
