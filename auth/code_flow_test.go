package auth_test

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-openid-client/auth"
	"github.com/jrsteele09/go-openid-client/auth/authflowrepo"
	"github.com/jrsteele09/go-openid-client/idtoken"
	apperrors "github.com/jrsteele09/go-openid-client/internal/errors"
	"github.com/jrsteele09/go-openid-client/oauthmodel"
	"github.com/jrsteele09/go-openid-client/pkce"
	"github.com/jrsteele09/go-openid-client/store"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const (
	testProviderID   = "idp"
	testClientID     = "abc123"
	testClientSecret = "s3cret"
	testAuthURI      = "https://idp.example/authorize"
	testTokenURI     = "https://idp.example/token"
	testRedirectURI  = "https://app.example/openid/callback"
	testState        = "s1"
	testCode         = "code1"
	successBody      = `{"access_token":"at-1","token_type":"Bearer","expires_in":3600,"refresh_token":"rt-1","scope":"openid","id_token":"raw-id-token","session_state":"xyz"}`
)

type appInfo struct {
	ReturnTo string `json:"return_to"`
}

type capturedRequest struct {
	method  string
	url     string
	header  http.Header
	form    url.Values
	user    string
	pass    string
	hasAuth bool
}

// fakeTokenEndpoint implements auth.HTTPClient.
type fakeTokenEndpoint struct {
	mu       sync.Mutex
	requests []capturedRequest
	status   int
	body     string
	err      error
}

func newFakeTokenEndpoint() *fakeTokenEndpoint {
	return &fakeTokenEndpoint{status: http.StatusOK, body: successBody}
}

func (f *fakeTokenEndpoint) Do(req *http.Request) (*http.Response, error) {
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	form, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, err
	}
	user, pass, hasAuth := req.BasicAuth()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, capturedRequest{
		method:  req.Method,
		url:     req.URL.String(),
		header:  req.Header.Clone(),
		form:    form,
		user:    user,
		pass:    pass,
		hasAuth: hasAuth,
	})
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: f.status,
		Status:     fmt.Sprintf("%d %s", f.status, http.StatusText(f.status)),
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(f.body)),
	}, nil
}

func (f *fakeTokenEndpoint) calls() []capturedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capturedRequest(nil), f.requests...)
}

// echoVerifier returns the raw token as a claim, plus a configurable nonce.
func echoVerifier(nonce string) idtoken.Verifier {
	return idtoken.VerifierFunc(func(_ context.Context, raw string) (*idtoken.Claims, error) {
		payload := map[string]any{"sub": "user-1", "raw": raw}
		if nonce != "" {
			payload["nonce"] = nonce
		}
		return &idtoken.Claims{Raw: raw, Payload: payload}, nil
	})
}

func testProvider() auth.Provider {
	return auth.Provider{
		AuthorizationURI: testAuthURI,
		TokenURI:         testTokenURI,
		ClientID:         testClientID,
		ClientSecret:     testClientSecret,
		Options:          &oauthmodel.CommonOptions{RedirectURI: testRedirectURI},
		Verifier:         echoVerifier(""),
	}
}

type fixture struct {
	flow     *auth.CodeFlow[appInfo]
	endpoint *fakeTokenEndpoint
	store    *store.MemoryStore[authflowrepo.AuthFlowState[appInfo]]
	now      *time.Time
	mu       *sync.Mutex
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	*f.now = f.now.Add(d)
}

func newFixture(t *testing.T, provider auth.Provider, options ...auth.CodeFlowOption) *fixture {
	t.Helper()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	mu := &sync.Mutex{}
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	endpoint := newFakeTokenEndpoint()
	flowStore := store.NewMemoryStore(store.WithClock[authflowrepo.AuthFlowState[appInfo]](clock))
	opts := append([]auth.CodeFlowOption{
		auth.WithNowTime(clock),
		auth.WithStateGenerator(func() string { return testState }),
	}, options...)

	flow, err := auth.NewCodeFlow(auth.CodeFlowConfig[appInfo]{
		Providers:  map[string]auth.Provider{testProviderID: provider},
		Store:      flowStore,
		HTTPClient: endpoint,
	}, opts...)
	require.NoError(t, err)

	return &fixture{flow: flow, endpoint: endpoint, store: flowStore, now: &now, mu: mu}
}

func TestAuthenticate_RedirectShape(t *testing.T) {
	f := newFixture(t, testProvider(), auth.WithStateGenerator(func() string { return "state-from-generator" }))

	redirect, err := f.flow.Authenticate(context.Background(), testProviderID, nil, appInfo{})
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, redirect.StatusCode)
	require.Equal(t, "state-from-generator", redirect.State)

	u, err := url.Parse(redirect.Location)
	require.NoError(t, err)
	require.Equal(t, "idp.example", u.Host)
	require.Equal(t, "/authorize", u.Path)

	q := u.Query()
	keys := make([]string, 0, len(q))
	for k, v := range q {
		keys = append(keys, k)
		require.Len(t, v, 1, k)
	}
	sort.Strings(keys)
	require.Equal(t, []string{"client_id", "code_challenge", "code_challenge_method", "redirect_uri", "response_type", "scope", "state"}, keys)
	require.Equal(t, "openid", q.Get("scope"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, testClientID, q.Get("client_id"))
	require.Equal(t, testRedirectURI, q.Get("redirect_uri"))
	require.Equal(t, "state-from-generator", q.Get("state"))
}

func TestAuthenticate_DefaultStateIsRandom(t *testing.T) {
	flow, err := auth.NewCodeFlow(auth.CodeFlowConfig[appInfo]{
		Providers: map[string]auth.Provider{testProviderID: testProvider()},
	})
	require.NoError(t, err)

	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		redirect, err := flow.Authenticate(context.Background(), testProviderID, nil, appInfo{})
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(redirect.State), 32)
		seen[redirect.State] = struct{}{}
	}
	require.Len(t, seen, 50)
}

func TestAuthenticate_StoresPendingFlow(t *testing.T) {
	f := newFixture(t, testProvider())
	ctx := context.Background()

	perCall := &oauthmodel.PerCallOptions{Nonce: "n-1"}
	redirect, err := f.flow.Authenticate(ctx, testProviderID, perCall, appInfo{ReturnTo: "/dash"})
	require.NoError(t, err)

	u, err := url.Parse(redirect.Location)
	require.NoError(t, err)

	flow, ok, err := f.store.Get(ctx, store.StringKey(redirect.State))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, testProviderID, flow.ProviderID)
	require.Equal(t, testRedirectURI, flow.RedirectURI)
	require.Equal(t, "n-1", flow.Nonce)
	require.Equal(t, appInfo{ReturnTo: "/dash"}, flow.Info)
	require.True(t, pkce.Verify(flow.CodeVerifier, u.Query().Get("code_challenge")))
	require.Equal(t, "n-1", u.Query().Get("nonce"))
}

func TestAuthenticate_OptionPrecedence(t *testing.T) {
	provider := testProvider()
	provider.Options = &oauthmodel.CommonOptions{Scope: []string{"b"}}

	flow, err := auth.NewCodeFlow(auth.CodeFlowConfig[appInfo]{
		Providers:     map[string]auth.Provider{testProviderID: provider},
		GlobalOptions: &oauthmodel.CommonOptions{Scope: []string{"a"}, RedirectURI: testRedirectURI},
	})
	require.NoError(t, err)

	redirect, err := flow.Authenticate(context.Background(), testProviderID, &oauthmodel.PerCallOptions{
		CommonOptions: oauthmodel.CommonOptions{Scope: []string{"c"}},
	}, appInfo{})
	require.NoError(t, err)

	u, err := url.Parse(redirect.Location)
	require.NoError(t, err)
	require.Equal(t, "openid c", u.Query().Get("scope"))
}

func TestAuthenticate_AuthorizationURIWithQuery(t *testing.T) {
	provider := testProvider()
	provider.AuthorizationURI = "https://idp.example/authorize?tenant=acme"
	f := newFixture(t, provider)

	redirect, err := f.flow.Authenticate(context.Background(), testProviderID, nil, appInfo{})
	require.NoError(t, err)

	u, err := url.Parse(redirect.Location)
	require.NoError(t, err)
	require.Equal(t, "acme", u.Query().Get("tenant"))
	require.Equal(t, testState, u.Query().Get("state"))
}

func TestAuthenticate_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown provider", func(t *testing.T) {
		f := newFixture(t, testProvider())
		_, err := f.flow.Authenticate(ctx, "nope", nil, appInfo{})
		require.ErrorIs(t, err, auth.ErrUnknownProvider)
		require.True(t, errors.Is(err, apperrors.ErrConfiguration))
		require.Contains(t, err.Error(), `"nope"`)
		require.Contains(t, err.Error(), testProviderID)
	})

	t.Run("missing redirect uri", func(t *testing.T) {
		provider := testProvider()
		provider.Options = nil
		f := newFixture(t, provider)
		_, err := f.flow.Authenticate(ctx, testProviderID, nil, appInfo{})
		require.ErrorIs(t, err, oauthmodel.ErrMissingRedirectURI)

		empty, err := f.store.IsEmpty(ctx)
		require.NoError(t, err)
		require.True(t, empty)
	})

	t.Run("relative redirect uri", func(t *testing.T) {
		f := newFixture(t, testProvider())
		_, err := f.flow.Authenticate(ctx, testProviderID, &oauthmodel.PerCallOptions{
			CommonOptions: oauthmodel.CommonOptions{RedirectURI: "/callback"},
		}, appInfo{})
		require.ErrorIs(t, err, auth.ErrInvalidRedirectURI)
		require.True(t, errors.Is(err, apperrors.ErrConfiguration))
	})
}

func TestCodeExchange_EndToEnd(t *testing.T) {
	f := newFixture(t, testProvider())
	ctx := context.Background()

	redirect, err := f.flow.Authenticate(ctx, testProviderID, nil, appInfo{ReturnTo: "/dashboard"})
	require.NoError(t, err)
	require.Equal(t, testState, redirect.State)

	stored, ok, err := f.store.Get(ctx, store.StringKey(testState))
	require.NoError(t, err)
	require.True(t, ok)

	bundle, err := f.flow.CodeExchange(ctx, testState, testCode)
	require.NoError(t, err)
	require.Equal(t, appInfo{ReturnTo: "/dashboard"}, bundle.Info)
	require.Equal(t, testProviderID, bundle.ProviderID)
	require.Equal(t, "at-1", bundle.AccessToken)
	require.Equal(t, "Bearer", bundle.TokenType)
	require.Equal(t, "rt-1", bundle.RefreshToken)
	require.Equal(t, int64(3600), bundle.ExpiresIn)
	require.Equal(t, f.now.Add(time.Hour), bundle.Expiry)
	require.Equal(t, "openid", bundle.Scope)
	require.Equal(t, map[string]any{"session_state": "xyz"}, bundle.Extra)
	require.Equal(t, "raw-id-token", bundle.IDToken.String("raw"))

	calls := f.endpoint.calls()
	require.Len(t, calls, 1)
	req := calls[0]
	require.Equal(t, http.MethodPost, req.method)
	require.Equal(t, testTokenURI, req.url)
	require.Equal(t, "application/json", req.header.Get("Accept"))
	require.Equal(t, "application/x-www-form-urlencoded", req.header.Get("Content-Type"))
	require.Equal(t, "authorization_code", req.form.Get("grant_type"))
	require.Equal(t, testCode, req.form.Get("code"))
	require.Equal(t, stored.CodeVerifier, req.form.Get("code_verifier"))
	require.Equal(t, testRedirectURI, req.form.Get("redirect_uri"))
	require.NotContains(t, req.form, "client_id")
	require.True(t, req.hasAuth)
	require.Equal(t, testClientID, req.user)
	require.Equal(t, testClientSecret, req.pass)
	require.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte(testClientID+":"+testClientSecret)), req.header.Get("Authorization"))

	// single use
	_, err = f.flow.CodeExchange(ctx, testState, testCode)
	require.ErrorIs(t, err, auth.ErrNoSession)
	require.True(t, errors.Is(err, apperrors.ErrFlowState))
	require.Len(t, f.endpoint.calls(), 1)
}

func TestCodeExchange_PublicClient(t *testing.T) {
	provider := testProvider()
	provider.ClientSecret = ""
	f := newFixture(t, provider)
	ctx := context.Background()

	_, err := f.flow.Authenticate(ctx, testProviderID, nil, appInfo{})
	require.NoError(t, err)
	_, err = f.flow.CodeExchange(ctx, testState, testCode)
	require.NoError(t, err)

	req := f.endpoint.calls()[0]
	require.False(t, req.hasAuth)
	require.Empty(t, req.header.Get("Authorization"))
	require.Equal(t, testClientID, req.form.Get("client_id"))
}

func TestCodeExchange_FlowStateErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty state", func(t *testing.T) {
		f := newFixture(t, testProvider())
		_, err := f.flow.CodeExchange(ctx, "", testCode)
		require.ErrorIs(t, err, auth.ErrNoSession)
	})

	t.Run("unknown state", func(t *testing.T) {
		f := newFixture(t, testProvider())
		_, err := f.flow.CodeExchange(ctx, "never-issued", testCode)
		require.ErrorIs(t, err, auth.ErrNoSession)
		require.Empty(t, f.endpoint.calls())
	})

	t.Run("unknown state without code reports the session", func(t *testing.T) {
		f := newFixture(t, testProvider())
		_, err := f.flow.CodeExchange(ctx, "never-issued", "")
		require.ErrorIs(t, err, auth.ErrNoSession)
	})

	t.Run("missing code keeps the pending flow", func(t *testing.T) {
		f := newFixture(t, testProvider())
		_, err := f.flow.Authenticate(ctx, testProviderID, nil, appInfo{ReturnTo: "/x"})
		require.NoError(t, err)

		_, err = f.flow.CodeExchange(ctx, testState, "")
		require.ErrorIs(t, err, auth.ErrNoCode)
		require.True(t, errors.Is(err, apperrors.ErrFlowState))

		bundle, err := f.flow.CodeExchange(ctx, testState, testCode)
		require.NoError(t, err)
		require.Equal(t, "/x", bundle.Info.ReturnTo)
	})

	t.Run("expired flow", func(t *testing.T) {
		f := newFixture(t, testProvider())
		_, err := f.flow.Authenticate(ctx, testProviderID, nil, appInfo{})
		require.NoError(t, err)

		f.advance(auth.DefaultFlowTTL - time.Second)
		_, ok, err := f.store.Get(ctx, store.StringKey(testState))
		require.NoError(t, err)
		require.True(t, ok)

		f.advance(2 * time.Second)
		_, err = f.flow.CodeExchange(ctx, testState, testCode)
		require.ErrorIs(t, err, auth.ErrNoSession)
	})
}

func TestCodeExchange_TokenEndpointErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("non success status", func(t *testing.T) {
		f := newFixture(t, testProvider())
		f.endpoint.status = http.StatusBadRequest
		f.endpoint.body = `{"error":"invalid_grant","error_description":"code expired"}`

		_, err := f.flow.Authenticate(ctx, testProviderID, nil, appInfo{})
		require.NoError(t, err)
		_, err = f.flow.CodeExchange(ctx, testState, testCode)
		require.ErrorIs(t, err, auth.ErrCodeExchangeFailed)
		require.True(t, errors.Is(err, apperrors.ErrTransport))

		var endpointErr *auth.TokenEndpointError
		require.ErrorAs(t, err, &endpointErr)
		require.Equal(t, http.StatusBadRequest, endpointErr.StatusCode)
		require.Equal(t, "400 Bad Request", endpointErr.Status)
		require.Equal(t, "invalid_grant", endpointErr.ErrorCode)
		require.Equal(t, "code expired", endpointErr.Description)
		require.Contains(t, err.Error(), "400 Bad Request")

		// the pending flow was consumed before the request
		_, err = f.flow.CodeExchange(ctx, testState, testCode)
		require.ErrorIs(t, err, auth.ErrNoSession)
	})

	t.Run("non json error body", func(t *testing.T) {
		f := newFixture(t, testProvider())
		f.endpoint.status = http.StatusBadGateway
		f.endpoint.body = `<html>oops</html>`

		_, err := f.flow.Authenticate(ctx, testProviderID, nil, appInfo{})
		require.NoError(t, err)
		_, err = f.flow.CodeExchange(ctx, testState, testCode)

		var endpointErr *auth.TokenEndpointError
		require.ErrorAs(t, err, &endpointErr)
		require.Equal(t, "502 Bad Gateway", endpointErr.Status)
		require.Empty(t, endpointErr.ErrorCode)
	})

	t.Run("network failure", func(t *testing.T) {
		f := newFixture(t, testProvider())
		f.endpoint.err = errors.New("connection refused")

		_, err := f.flow.Authenticate(ctx, testProviderID, nil, appInfo{})
		require.NoError(t, err)
		_, err = f.flow.CodeExchange(ctx, testState, testCode)
		require.ErrorIs(t, err, auth.ErrCodeExchangeFailed)
		require.Contains(t, err.Error(), "connection refused")
	})

	for name, body := range map[string]string{
		"missing id token":     `{"access_token":"at","token_type":"Bearer"}`,
		"missing access token": `{"id_token":"it","token_type":"Bearer"}`,
		"missing token type":   `{"access_token":"at","id_token":"it"}`,
		"not json":             `not json`,
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, testProvider())
			f.endpoint.body = body

			_, err := f.flow.Authenticate(ctx, testProviderID, nil, appInfo{})
			require.NoError(t, err)
			_, err = f.flow.CodeExchange(ctx, testState, testCode)
			require.ErrorIs(t, err, auth.ErrInvalidTokenResponse)
			require.True(t, errors.Is(err, apperrors.ErrTransport))
		})
	}
}

func TestCodeExchange_VerifierErrorPassesThrough(t *testing.T) {
	errRejected := errors.New("signature rejected")
	provider := testProvider()
	provider.Verifier = idtoken.VerifierFunc(func(context.Context, string) (*idtoken.Claims, error) {
		return nil, errRejected
	})
	f := newFixture(t, provider)
	ctx := context.Background()

	_, err := f.flow.Authenticate(ctx, testProviderID, nil, appInfo{})
	require.NoError(t, err)
	_, err = f.flow.CodeExchange(ctx, testState, testCode)
	require.Equal(t, errRejected, err)
}

func TestCodeExchange_Nonce(t *testing.T) {
	ctx := context.Background()

	t.Run("matching nonce", func(t *testing.T) {
		provider := testProvider()
		provider.Verifier = echoVerifier("n-1")
		f := newFixture(t, provider)

		_, err := f.flow.Authenticate(ctx, testProviderID, &oauthmodel.PerCallOptions{Nonce: "n-1"}, appInfo{})
		require.NoError(t, err)
		bundle, err := f.flow.CodeExchange(ctx, testState, testCode)
		require.NoError(t, err)
		require.Equal(t, "n-1", bundle.IDToken.Nonce())
	})

	t.Run("mismatched nonce", func(t *testing.T) {
		provider := testProvider()
		provider.Verifier = echoVerifier("replayed")
		f := newFixture(t, provider)

		_, err := f.flow.Authenticate(ctx, testProviderID, &oauthmodel.PerCallOptions{Nonce: "n-1"}, appInfo{})
		require.NoError(t, err)
		_, err = f.flow.CodeExchange(ctx, testState, testCode)
		require.ErrorIs(t, err, auth.ErrNonceMismatch)
		require.True(t, errors.Is(err, apperrors.ErrVerification))
	})

	t.Run("no nonce requested", func(t *testing.T) {
		provider := testProvider()
		provider.Verifier = echoVerifier("anything")
		f := newFixture(t, provider)

		_, err := f.flow.Authenticate(ctx, testProviderID, nil, appInfo{})
		require.NoError(t, err)
		_, err = f.flow.CodeExchange(ctx, testState, testCode)
		require.NoError(t, err)
	})
}

func TestCodeExchange_ConcurrentSameState(t *testing.T) {
	f := newFixture(t, testProvider())
	ctx := context.Background()

	_, err := f.flow.Authenticate(ctx, testProviderID, nil, appInfo{})
	require.NoError(t, err)

	var (
		wins      atomic.Int32
		noSession atomic.Int32
		wg        sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.flow.CodeExchange(ctx, testState, testCode)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, auth.ErrNoSession):
				noSession.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
	require.Equal(t, int32(19), noSession.Load())
	require.Len(t, f.endpoint.calls(), 1)
}

func TestCodeFlow_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	f := newFixture(t, testProvider(), auth.WithTracerProvider(tp))
	ctx := context.Background()

	_, err := f.flow.Authenticate(ctx, testProviderID, nil, appInfo{})
	require.NoError(t, err)
	_, err = f.flow.CodeExchange(ctx, testState, testCode)
	require.NoError(t, err)
	_, err = f.flow.CodeExchange(ctx, testState, testCode)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 3)

	require.Equal(t, "openid.authenticate", spans[0].Name())
	require.Contains(t, spans[0].Attributes(), attribute.String("openid.provider_id", testProviderID))
	require.Equal(t, codes.Unset, spans[0].Status().Code)

	require.Equal(t, "openid.code_exchange", spans[1].Name())
	require.Contains(t, spans[1].Attributes(), attribute.String("openid.provider_id", testProviderID))

	require.Equal(t, "openid.code_exchange", spans[2].Name())
	require.Equal(t, codes.Error, spans[2].Status().Code)
}

func TestNewCodeFlow_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     auth.CodeFlowConfig[appInfo]
		wantErr error
	}{
		{
			name:    "no providers",
			cfg:     auth.CodeFlowConfig[appInfo]{},
			wantErr: auth.ErrNoProviders,
		},
		{
			name: "missing verifier",
			cfg: auth.CodeFlowConfig[appInfo]{Providers: map[string]auth.Provider{
				"idp": {AuthorizationURI: testAuthURI, TokenURI: testTokenURI, ClientID: testClientID},
			}},
			wantErr: auth.ErrInvalidProvider,
		},
		{
			name: "relative token uri",
			cfg: auth.CodeFlowConfig[appInfo]{Providers: map[string]auth.Provider{
				"idp": {AuthorizationURI: testAuthURI, TokenURI: "/token", ClientID: testClientID, Verifier: idtoken.Unverified()},
			}},
			wantErr: auth.ErrInvalidProvider,
		},
		{
			name: "missing client id",
			cfg: auth.CodeFlowConfig[appInfo]{Providers: map[string]auth.Provider{
				"idp": {AuthorizationURI: testAuthURI, TokenURI: testTokenURI, Verifier: idtoken.Unverified()},
			}},
			wantErr: auth.ErrInvalidProvider,
		},
		{
			name: "empty provider id",
			cfg: auth.CodeFlowConfig[appInfo]{Providers: map[string]auth.Provider{
				"": testProvider(),
			}},
			wantErr: auth.ErrInvalidProvider,
		},
		{
			name: "flow ttl too short",
			cfg: auth.CodeFlowConfig[appInfo]{
				Providers: map[string]auth.Provider{"idp": testProvider()},
				FlowTTL:   30 * time.Second,
			},
			wantErr: auth.ErrInvalidFlowTTL,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := auth.NewCodeFlow(tc.cfg)
			require.ErrorIs(t, err, tc.wantErr)
			require.True(t, errors.Is(err, apperrors.ErrConfiguration))
		})
	}
}

func TestCodeFlow_ProviderIDs(t *testing.T) {
	flow, err := auth.NewCodeFlow(auth.CodeFlowConfig[appInfo]{
		Providers: map[string]auth.Provider{"zeta": testProvider(), "alpha": testProvider()},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "zeta"}, flow.ProviderIDs())

	_, err = flow.Provider("beta")
	require.ErrorIs(t, err, auth.ErrUnknownProvider)
	require.Contains(t, err.Error(), "alpha, zeta")
}

func TestRedirect_ServeHTTP(t *testing.T) {
	rec := httptest.NewRecorder()
	auth.NewRedirect("https://idp.example/authorize?x=1", false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "https://idp.example/authorize?x=1", rec.Header().Get("Location"))
	require.Empty(t, rec.Body.String())

	rec = httptest.NewRecorder()
	auth.NewRedirect("/home", true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusMovedPermanently, rec.Code)
}
