// Package auth runs the client side of the OpenID Connect authorization code
// flow with PKCE.
//
// Authenticate records a pending flow keyed by a fresh state value and
// returns the redirect to the provider. CodeExchange consumes that record
// exactly once, redeems the code at the token endpoint and verifies the
// returned identity token.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-openid-client/auth/authflowrepo"
	"github.com/jrsteele09/go-openid-client/oauth2"
	"github.com/jrsteele09/go-openid-client/oauthmodel"
	"github.com/jrsteele09/go-openid-client/pkce"
	"github.com/jrsteele09/go-openid-client/store"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultFlowTTL is how long a pending flow waits for its callback.
	DefaultFlowTTL = 10 * time.Minute
	// MinFlowTTL is the shortest accepted flow TTL.
	MinFlowTTL = time.Minute

	defaultHTTPTimeout = 30 * time.Second
	maxTokenBodySize   = 1 << 20
	tracerName         = "github.com/jrsteele09/go-openid-client/auth"
)

// CodeFlowConfig holds the construction-time configuration of a CodeFlow.
type CodeFlowConfig[I any] struct {
	// Providers by id. At least one is required.
	Providers map[string]Provider

	// Store keeps pending flows. Defaults to a store.MemoryStore.
	Store store.Store[authflowrepo.AuthFlowState[I]]

	// GlobalOptions apply to every provider, lowest precedence.
	GlobalOptions *oauthmodel.CommonOptions

	// HTTPClient performs token requests. Defaults to an *http.Client with
	// a 30 second timeout.
	HTTPClient HTTPClient

	// FlowTTL bounds the time between Authenticate and CodeExchange.
	// Defaults to DefaultFlowTTL.
	FlowTTL time.Duration
}

// CodeFlow runs authorization code flows. Info is the caller's opaque
// payload carried from Authenticate to CodeExchange; it must survive JSON
// encoding when a networked store is used.
type CodeFlow[I any] struct {
	providers  map[string]Provider
	repo       *authflowrepo.Repo[I]
	global     *oauthmodel.CommonOptions
	httpClient HTTPClient
	flowTTL    time.Duration
	nowTime    func() time.Time
	newState   func() string
	tracer     trace.Tracer
}

type codeFlowSettings struct {
	nowTime        func() time.Time
	newState       func() string
	tracerProvider trace.TracerProvider
}

// CodeFlowOption adjusts a CodeFlow.
type CodeFlowOption func(*codeFlowSettings)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) CodeFlowOption {
	return func(s *codeFlowSettings) {
		s.nowTime = nowFunc
	}
}

// WithStateGenerator replaces the random state generator (primarily for
// testing). Generated values must be unguessable in production.
func WithStateGenerator(newState func() string) CodeFlowOption {
	return func(s *codeFlowSettings) {
		s.newState = newState
	}
}

// WithTracerProvider sets the tracer provider; the global one is used by
// default.
func WithTracerProvider(tp trace.TracerProvider) CodeFlowOption {
	return func(s *codeFlowSettings) {
		s.tracerProvider = tp
	}
}

// NewCodeFlow validates cfg and returns a ready flow.
func NewCodeFlow[I any](cfg CodeFlowConfig[I], options ...CodeFlowOption) (*CodeFlow[I], error) {
	if len(cfg.Providers) == 0 {
		return nil, ErrNoProviders
	}
	providers := make(map[string]Provider, len(cfg.Providers))
	for id, p := range cfg.Providers {
		if id == "" {
			return nil, fmt.Errorf("%w: empty provider id", ErrInvalidProvider)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("[NewCodeFlow] provider %q: %w", id, err)
		}
		providers[id] = p
	}

	flowTTL := cfg.FlowTTL
	if flowTTL == 0 {
		flowTTL = DefaultFlowTTL
	}
	if flowTTL < MinFlowTTL {
		return nil, ErrInvalidFlowTTL
	}

	settings := codeFlowSettings{
		nowTime:        time.Now,
		newState:       func() string { return uuid.New().String() },
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, opt := range options {
		opt(&settings)
	}

	flowStore := cfg.Store
	if flowStore == nil {
		flowStore = store.NewMemoryStore[authflowrepo.AuthFlowState[I]]()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &CodeFlow[I]{
		providers:  providers,
		repo:       authflowrepo.New(flowStore),
		global:     cfg.GlobalOptions,
		httpClient: httpClient,
		flowTTL:    flowTTL,
		nowTime:    settings.nowTime,
		newState:   settings.newState,
		tracer:     settings.tracerProvider.Tracer(tracerName),
	}, nil
}

// ProviderIDs returns the configured provider ids, sorted.
func (c *CodeFlow[I]) ProviderIDs() []string {
	ids := make([]string, 0, len(c.providers))
	for id := range c.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Provider returns the provider configured under id.
func (c *CodeFlow[I]) Provider(id string) (Provider, error) {
	p, ok := c.providers[id]
	if !ok {
		return Provider{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownProvider, id, strings.Join(c.ProviderIDs(), ", "))
	}
	return p, nil
}

// Authenticate starts a flow with providerID. The pending flow is stored
// before the redirect is returned. perCall may be nil.
func (c *CodeFlow[I]) Authenticate(ctx context.Context, providerID string, perCall *oauthmodel.PerCallOptions, info I) (_ *Redirect, err error) {
	ctx, span := c.tracer.Start(ctx, "openid.authenticate", trace.WithAttributes(
		attribute.String("openid.provider_id", providerID),
	))
	defer func() { endSpan(span, err) }()

	provider, err := c.Provider(providerID)
	if err != nil {
		return nil, err
	}

	opts, err := oauthmodel.Merge(c.global, provider.Options, perCall)
	if err != nil {
		return nil, fmt.Errorf("[Authenticate] %w", err)
	}
	if err := ValidateRedirectURI(opts.RedirectURI); err != nil {
		return nil, fmt.Errorf("[Authenticate] %w: %v", ErrInvalidRedirectURI, err)
	}

	challenge := pkce.CreateChallenge()
	state := c.newState()

	query := oauthmodel.AuthorizationRequest{
		ClientID:            provider.ClientID,
		State:               state,
		CodeChallenge:       challenge.Challenge,
		CodeChallengeMethod: challenge.Method,
		Options:             opts,
	}.Query()

	flow := &authflowrepo.AuthFlowState[I]{
		ProviderID:   providerID,
		CodeVerifier: challenge.Verifier,
		RedirectURI:  opts.RedirectURI,
		Nonce:        opts.Nonce,
		Info:         info,
		CreatedAt:    c.nowTime(),
	}
	if err := c.repo.Upsert(ctx, state, flow, c.flowTTL); err != nil {
		return nil, fmt.Errorf("[Authenticate] failed to store flow: %w", err)
	}

	location := provider.AuthorizationURI
	if strings.Contains(location, "?") {
		location += "&" + query.Encode()
	} else {
		location += "?" + query.Encode()
	}

	log.Debug().Str("provider_id", providerID).Msg("authorization redirect issued")

	redirect := NewRedirect(location, false)
	redirect.State = state
	return redirect, nil
}

// CodeExchange completes the flow started under state. The pending flow is
// consumed before the token request, so a state value can never be redeemed
// twice, even if this call fails.
func (c *CodeFlow[I]) CodeExchange(ctx context.Context, state, code string) (_ *TokenBundle[I], err error) {
	ctx, span := c.tracer.Start(ctx, "openid.code_exchange")
	defer func() { endSpan(span, err) }()

	if state == "" {
		return nil, ErrNoSession
	}

	if code == "" {
		// Report the missing session first; the pending flow is left in
		// place when only the code is missing.
		_, ok, err := c.repo.Get(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("[CodeExchange] %w", err)
		}
		if !ok {
			return nil, ErrNoSession
		}
		return nil, ErrNoCode
	}

	flow, ok, err := c.repo.Take(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("[CodeExchange] %w", err)
	}
	if !ok {
		return nil, ErrNoSession
	}
	span.SetAttributes(attribute.String("openid.provider_id", flow.ProviderID))

	provider, err := c.Provider(flow.ProviderID)
	if err != nil {
		return nil, err
	}

	tokens, err := c.exchange(ctx, provider, flow, code)
	if err != nil {
		return nil, err
	}

	claims, err := provider.Verifier.Verify(ctx, tokens.IDToken)
	if err != nil {
		return nil, err
	}
	if flow.Nonce != "" && claims.Nonce() != flow.Nonce {
		return nil, ErrNonceMismatch
	}

	bundle := &TokenBundle[I]{
		AccessToken:  tokens.AccessToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    tokens.ExpiresIn,
		RefreshToken: tokens.RefreshToken,
		Scope:        tokens.Scope,
		Extra:        tokens.Extra,
		IDToken:      claims,
		ProviderID:   flow.ProviderID,
		Info:         flow.Info,
	}
	if tokens.ExpiresIn > 0 {
		bundle.Expiry = c.nowTime().Add(time.Duration(tokens.ExpiresIn) * time.Second)
	}

	log.Debug().Str("provider_id", flow.ProviderID).Msg("authorization code exchanged")
	return bundle, nil
}

func (c *CodeFlow[I]) exchange(ctx context.Context, provider Provider, flow *authflowrepo.AuthFlowState[I], code string) (*oauth2.TokenResponse, error) {
	form := url.Values{}
	form.Set(oauth2.ParamGrantType, string(oauth2.AuthorizationCodeGrant))
	form.Set(oauth2.ParamCode, code)
	form.Set(oauth2.ParamCodeVerifier, flow.CodeVerifier)
	form.Set(oauth2.ParamRedirectURI, flow.RedirectURI)
	if provider.IsPublic() {
		form.Set(oauth2.ParamClientID, provider.ClientID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, provider.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCodeExchangeFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if !provider.IsPublic() {
		req.SetBasicAuth(provider.ClientID, provider.ClientSecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCodeExchangeFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrCodeExchangeFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		endpointErr := &TokenEndpointError{StatusCode: resp.StatusCode, Status: resp.Status}
		if endpointErr.Status == "" {
			endpointErr.Status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		var oauthErr oauth2.ErrorResponse
		if json.Unmarshal(body, &oauthErr) == nil {
			endpointErr.ErrorCode = oauthErr.Error
			endpointErr.Description = oauthErr.ErrorDescription
		}
		return nil, endpointErr
	}

	tokens, err := oauth2.ParseTokenResponse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTokenResponse, err)
	}
	if missing := tokens.MissingFields(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidTokenResponse, strings.Join(missing, ", "))
	}
	return tokens, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errorCategory(err))
	}
	span.End()
}

// errorCategory keeps span status free of provider supplied text.
func errorCategory(err error) string {
	for _, target := range []error{ErrNoSession, ErrNoCode, ErrUnknownProvider, ErrCodeExchangeFailed, ErrInvalidTokenResponse, ErrNonceMismatch} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "openid flow failed"
}
