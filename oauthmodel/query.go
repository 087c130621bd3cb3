package oauthmodel

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-openid-client/oauth2"
)

// AuthorizationRequest holds everything sent to the authorization endpoint.
type AuthorizationRequest struct {
	ClientID            string
	State               string
	CodeChallenge       string
	CodeChallengeMethod oauth2.CodeMethodType
	Options             EffectiveOptions
}

// Query builds the authorization request query string values.
func (r AuthorizationRequest) Query() url.Values {
	q := r.Options.Params()
	q.Set(oauth2.ParamClientID, r.ClientID)
	q.Set(oauth2.ParamResponseType, string(oauth2.CodeResponseType))
	q.Set(oauth2.ParamCodeChallengeMethod, string(r.CodeChallengeMethod))
	q.Set(oauth2.ParamCodeChallenge, r.CodeChallenge)
	q.Set(oauth2.ParamState, r.State)
	return q
}

// Params serialises the options. Scalars become one pair. A list is sent
// twice over: once space joined under its key, then once per item, so
// providers expecting either form accept it. Zero values are omitted.
func (o EffectiveOptions) Params() url.Values {
	q := url.Values{}
	setScalar(q, oauth2.ParamScope, o.Scope)
	setScalar(q, oauth2.ParamRedirectURI, o.RedirectURI)
	setScalar(q, oauth2.ParamDisplay, string(o.Display))
	setList(q, oauth2.ParamPrompt, promptStrings(o.Prompt))
	if o.MaxAge != 0 {
		q.Set(oauth2.ParamMaxAge, strconv.Itoa(o.MaxAge))
	}
	setList(q, oauth2.ParamUILocales, o.UILocales)
	setList(q, oauth2.ParamACRValues, o.ACRValues)
	setScalar(q, oauth2.ParamNonce, o.Nonce)
	setScalar(q, oauth2.ParamIDTokenHint, o.IDTokenHint)
	setScalar(q, oauth2.ParamLoginHint, o.LoginHint)
	return q
}

func setScalar(q url.Values, key, value string) {
	if value == "" {
		return
	}
	q.Set(key, value)
}

func setList(q url.Values, key string, values []string) {
	if len(values) == 0 {
		return
	}
	q.Set(key, strings.Join(values, " "))
	for _, v := range values {
		q.Add(key, v)
	}
}

func promptStrings(prompts []oauth2.PromptType) []string {
	out := make([]string, 0, len(prompts))
	for _, p := range prompts {
		out = append(out, string(p))
	}
	return out
}
