package server

import (
	"net/http"

	"github.com/jrsteele09/go-openid-client/auth"
	apperrors "github.com/jrsteele09/go-openid-client/internal/errors"
	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() {
	signin := ChainMiddleware(s.SigninHandler(), s.OpenIDMiddleware()...)
	callback := ChainMiddleware(s.CallbackHandler(), s.OpenIDMiddleware()...)

	s.RegisterRouteFunc("GET "+s.signinPath, signin)
	s.RegisterRouteFunc("POST "+s.signinPath, signin)
	s.RegisterRouteFunc("GET "+s.callbackPath, callback)
	s.RegisterRouteFunc("POST "+s.callbackPath, callback) // form_post response mode
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	event := log.Error().Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status)
	var tokenErr *auth.TokenEndpointError
	if apperrors.As(err, &tokenErr) {
		event = event.Int("upstream_status", tokenErr.StatusCode)
	}
	event.Msg("openid request failed")
	http.Error(w, http.StatusText(status), status)
}
