// Package server exposes an auth.CodeFlow as sign-in and callback routes.
package server

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/jrsteele09/go-openid-client/auth"
	"github.com/jrsteele09/go-openid-client/oauthmodel"
	"github.com/rs/zerolog/log"
)

// Info is what sign-in stores with each pending flow.
type Info struct {
	// RedirectURI is where the browser goes after a successful callback.
	RedirectURI string `json:"redirect_uri,omitempty"`
}

// Tokens is the result handed to OnAuthenticated listeners.
type Tokens = auth.TokenBundle[Info]

// Flow is the part of auth.CodeFlow the routes use.
type Flow interface {
	ProviderIDs() []string
	Authenticate(ctx context.Context, providerID string, perCall *oauthmodel.PerCallOptions, info Info) (*auth.Redirect, error)
	CodeExchange(ctx context.Context, state, code string) (*Tokens, error)
}

var _ Flow = (*auth.CodeFlow[Info])(nil)

// AuthenticatedFunc runs after a successful code exchange. A non-empty
// location replaces the post-login destination; the last non-empty one
// wins. w may be used to set cookies but not to write a body.
type AuthenticatedFunc func(w http.ResponseWriter, r *http.Request, tokens *Tokens) (location string, err error)

// RequestValueFunc reads a value such as the provider id from a request.
type RequestValueFunc func(r *http.Request) string

// Paths configures where the routes are mounted. Empty fields use the
// defaults.
type Paths struct {
	Prefix   string
	Signin   string
	Callback string
}

// Config configures a Server.
type Config struct {
	// Env "DEV" enables route logging.
	Env   string
	Paths Paths

	// BaseURL is the public origin used for the callback URI, e.g.
	// "https://app.example". Empty derives it from each request.
	BaseURL string
}

type Server struct {
	env     string
	baseURL string
	mux     *http.ServeMux
	routes  []string
	flow    Flow

	signinPath   string
	callbackPath string

	getProvider RequestValueFunc
	getRedirect RequestValueFunc

	listenersMu sync.RWMutex
	listeners   []AuthenticatedFunc
}

// Option customises a Server.
type Option func(*Server)

// WithProviderFunc replaces reading the "provider" query or form value.
func WithProviderFunc(fn RequestValueFunc) Option {
	return func(s *Server) {
		if fn != nil {
			s.getProvider = fn
		}
	}
}

// WithRedirectFunc replaces reading the "redirect" query or form value.
func WithRedirectFunc(fn RequestValueFunc) Option {
	return func(s *Server) {
		if fn != nil {
			s.getRedirect = fn
		}
	}
}

func New(cfg Config, flow Flow, options ...Option) (*Server, error) {
	if flow == nil {
		return nil, fmt.Errorf("[Server New] flow is required")
	}
	if err := validatePaths(cfg.Paths); err != nil {
		return nil, fmt.Errorf("[Server New] %w", err)
	}
	if cfg.BaseURL != "" {
		if err := auth.ValidateEndpointURI("base url", cfg.BaseURL); err != nil {
			return nil, fmt.Errorf("[Server New] %w: %v", ErrInvalidBaseURL, err)
		}
	}

	prefix := orDefault(cfg.Paths.Prefix, DefaultPathPrefix)
	s := &Server{
		env:          cfg.Env,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		mux:          http.NewServeMux(),
		flow:         flow,
		signinPath:   prefix + orDefault(cfg.Paths.Signin, DefaultSigninPath),
		callbackPath: prefix + orDefault(cfg.Paths.Callback, DefaultCallbackPath),
		getProvider:  requestValue(DefaultProviderParam),
		getRedirect:  requestValue(DefaultRedirectParam),
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

// SigninPath is the full sign-in route.
func (s *Server) SigninPath() string { return s.signinPath }

// CallbackPath is the full callback route, which must be registered with
// every provider.
func (s *Server) CallbackPath() string { return s.callbackPath }

// OnAuthenticated registers a listener. Listeners run in registration
// order.
func (s *Server) OnAuthenticated(listener AuthenticatedFunc) {
	if listener == nil {
		return
	}
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes lists every registered pattern.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

var validSegment = regexp.MustCompile(`^[A-Za-z0-9\-_.~]+$`)

// validatePaths accepts "" or "/seg[/seg...]" where each segment is made of
// unreserved URL characters.
func validatePaths(paths Paths) error {
	for _, p := range []struct{ name, value string }{
		{"prefix", paths.Prefix},
		{"signin", paths.Signin},
		{"callback", paths.Callback},
	} {
		if p.value == "" {
			continue
		}
		segments := strings.Split(p.value, "/")
		valid := segments[0] == "" && len(segments) > 1
		for _, segment := range segments[1:] {
			if !validSegment.MatchString(segment) {
				valid = false
				break
			}
		}
		if !valid {
			return fmt.Errorf("%w: %s = %q is not a valid pathname", ErrInvalidPath, p.name, p.value)
		}
	}
	return nil
}

// requestValue reads name from the query string, then from a posted form.
func requestValue(name string) RequestValueFunc {
	return func(r *http.Request) string {
		if v := r.URL.Query().Get(name); v != "" {
			return v
		}
		if r.Method == http.MethodPost {
			return r.PostFormValue(name)
		}
		return ""
	}
}

// origin is the scheme and host the browser used to reach us.
func (s *Server) origin(r *http.Request) string {
	if s.baseURL != "" {
		return s.baseURL
	}
	return getScheme(r) + "://" + r.Host
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
