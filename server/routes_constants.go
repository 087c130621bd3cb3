package server

// Default route paths. The full sign-in route is DefaultPathPrefix +
// DefaultSigninPath.
const (
	DefaultPathPrefix   = "/openid"
	DefaultSigninPath   = "/signin"
	DefaultCallbackPath = "/callback"
)

// Request parameters read by the sign-in and callback routes
const (
	DefaultProviderParam = "provider"
	DefaultRedirectParam = "redirect"

	paramState            = "state"
	paramCode             = "code"
	paramError            = "error"
	paramErrorDescription = "error_description"
)
