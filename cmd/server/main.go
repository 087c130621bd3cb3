package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-openid-client/auth"
	"github.com/jrsteele09/go-openid-client/internal/config"
	apperrors "github.com/jrsteele09/go-openid-client/internal/errors"
	"github.com/jrsteele09/go-openid-client/internal/telemetry"
	"github.com/jrsteele09/go-openid-client/oauthmodel"
	"github.com/jrsteele09/go-openid-client/providers"
	"github.com/jrsteele09/go-openid-client/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("stack", string(debug.Stack())).Msgf("Recovered from panic: %v", r)
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return apperrors.Wrapf(err, "loading config")
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, c.GetAppName(), c.GetOtelEndpoint())
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Err(err).Msg("telemetry shutdown")
		}
	}()

	idps, err := providers.FromEnv(ctx, &oauthmodel.CommonOptions{Scope: c.GetScope()})
	if err != nil {
		return apperrors.Wrapf(err, "loading providers")
	}
	if len(idps) == 0 {
		return errors.New("no providers configured: set GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET or FACEBOOK_CLIENT_ID/FACEBOOK_CLIENT_SECRET")
	}

	flowStore, closeStore, err := openFlowStore(ctx, c)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Err(err).Msg("closing flow store")
		}
	}()

	flow, err := auth.NewCodeFlow(auth.CodeFlowConfig[server.Info]{
		Providers: idps,
		Store:     flowStore,
		FlowTTL:   c.GetFlowTTL(),
	})
	if err != nil {
		return apperrors.Wrapf(err, "creating code flow")
	}

	srv, err := server.New(server.Config{
		Env:     c.GetEnv(),
		BaseURL: c.GetBaseURL(),
		Paths:   server.Paths{Prefix: c.GetPathPrefix()},
	}, flow)
	if err != nil {
		return err
	}
	srv.OnAuthenticated(logSignIn)
	srv.RegisterRouteFunc("GET /{$}", indexHandler(srv.SigninPath(), flow.ProviderIDs()))

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func setupLogging(c config.EnvConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.GetLogLevel()))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func logSignIn(_ http.ResponseWriter, _ *http.Request, tokens *server.Tokens) (string, error) {
	log.Info().
		Str("provider", tokens.ProviderID).
		Str("iss", tokens.IDToken.Issuer()).
		Str("sub", tokens.IDToken.Subject()).
		Msg("user signed in")
	return "", nil
}

func indexHandler(signinPath string, providerIDs []string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		var b strings.Builder
		b.WriteString("<!doctype html><title>Sign in</title><ul>")
		for _, id := range providerIDs {
			href := signinPath + "?provider=" + id
			fmt.Fprintf(&b, `<li><a href="%s">Sign in with %s</a></li>`, html.EscapeString(href), html.EscapeString(id))
		}
		b.WriteString("</ul>")
		_, _ = w.Write([]byte(b.String()))
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
