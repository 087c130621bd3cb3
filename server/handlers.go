package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-openid-client/auth"
	"github.com/jrsteele09/go-openid-client/oauthmodel"
	"github.com/rs/zerolog/log"
)

// SigninHandler starts a flow and redirects the browser to the provider.
func (s *Server) SigninHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, err := s.selectProvider(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		callbackURI := s.origin(r) + s.callbackPath
		destination := sameOriginPath(r, s.getRedirect(r))
		if destination == "" {
			destination = sameOriginPath(r, r.Referer())
		}
		if destination == "" {
			destination = "/"
		}

		redirect, err := s.flow.Authenticate(r.Context(), providerID,
			&oauthmodel.PerCallOptions{CommonOptions: oauthmodel.CommonOptions{RedirectURI: callbackURI}},
			Info{RedirectURI: destination},
		)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		redirect.ServeHTTP(w, r)
	}
}

// CallbackHandler completes the flow, runs the OnAuthenticated listeners
// and redirects to the post-login destination.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// FormValue covers both the query string and form_post bodies
		if code := r.FormValue(paramError); code != "" {
			s.writeError(w, r, &ProviderError{Code: code, Description: r.FormValue(paramErrorDescription)})
			return
		}

		tokens, err := s.flow.CodeExchange(r.Context(), r.FormValue(paramState), r.FormValue(paramCode))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		location := ""
		for _, listener := range s.authenticatedListeners() {
			next, err := listener(w, r, tokens)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			if next != "" {
				location = next
			}
		}
		if location == "" {
			location = tokens.Info.RedirectURI
		}
		if location == "" {
			location = "/"
		}

		log.Info().Str("provider", tokens.ProviderID).Msg("openid sign-in completed")
		auth.NewRedirect(location, false).ServeHTTP(w, r)
	}
}

func (s *Server) selectProvider(r *http.Request) (string, error) {
	ids := s.flow.ProviderIDs()
	if len(ids) == 1 {
		return ids[0], nil
	}
	providerID := s.getProvider(r)
	if providerID == "" {
		return "", ErrMissingProvider
	}
	return providerID, nil
}

func (s *Server) authenticatedListeners() []AuthenticatedFunc {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	return append([]AuthenticatedFunc(nil), s.listeners...)
}

// sameOriginPath returns dest as a path on this host, or "" when dest
// points somewhere else.
func sameOriginPath(r *http.Request, dest string) string {
	if dest == "" || strings.HasPrefix(dest, "//") || strings.Contains(dest, `\`) {
		return ""
	}
	u, err := url.Parse(dest)
	if err != nil {
		return ""
	}
	if u.Scheme == "" && u.Host == "" {
		if !strings.HasPrefix(dest, "/") {
			return ""
		}
		return dest
	}
	if (u.Scheme != "http" && u.Scheme != "https") || !strings.EqualFold(u.Host, r.Host) {
		return ""
	}
	return u.RequestURI()
}
