package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/toplikes/internal/models"
	"github.com/desertthunder/toplikes/internal/server"
	"github.com/desertthunder/toplikes/internal/shared"
	"golang.org/x/oauth2"
)

const (
	// DefaultTimeout bounds the wait for the browser to come back to the callback.
	DefaultTimeout = 2 * time.Minute

	SpotifyAuthURL  = "https://accounts.spotify.com/authorize"
	SpotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// Browser opens a URL for the user. Implementations must not block on the user finishing the flow.
type Browser interface {
	Open(url string) error
}

// BrowserFunc adapts a function such as [shared.OpenBrowser] to [Browser].
type BrowserFunc func(url string) error

func (f BrowserFunc) Open(url string) error {
	return f(url)
}

// TokenExchanger trades an authorization code for an access token. [*Exchanger] is the production implementation.
type TokenExchanger interface {
	Exchange(ctx context.Context, code, redirectURI, verifier string) (models.AccessToken, error)
}

// Session is the state of one authorization attempt. It is discarded after the token exchange.
type Session struct {
	ClientID    string
	RedirectURI string
	State       string
	PKCE        PKCE
}

// AuthorizerOptions configures an [Authorizer].
type AuthorizerOptions struct {
	ClientID     string
	RedirectBase string   // e.g. "http://127.0.0.1:8080"; the host must be loopback
	CallbackPath string   // e.g. "/callback"
	Scopes       []string // e.g. ["user-library-read"]
	AuthURL      string
	TokenURL     string
	Timeout      time.Duration
	Browser      Browser        // nil skips the launch and only prints the URL
	Exchanger    TokenExchanger // defaults to an [*Exchanger] for TokenURL
	HTTPClient   *http.Client
	Logger       *log.Logger
	Output       io.Writer // user-facing progress and the manual-open URL
}

// Authorizer runs the browser-based authorization code flow.
type Authorizer struct {
	clientID     string
	redirectBase string
	callbackPath string
	scopes       []string
	authURL      string
	timeout      time.Duration
	browser      Browser
	exchanger    TokenExchanger
	logger       *log.Logger
	output       io.Writer
}

// NewAuthorizer creates an Authorizer, filling in Spotify endpoints and defaults for unset options.
func NewAuthorizer(opts AuthorizerOptions) *Authorizer {
	if opts.AuthURL == "" {
		opts.AuthURL = SpotifyAuthURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = SpotifyTokenURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	if opts.Exchanger == nil {
		opts.Exchanger = NewExchanger(ExchangerOptions{
			ClientID:   opts.ClientID,
			TokenURL:   opts.TokenURL,
			HTTPClient: opts.HTTPClient,
			Logger:     opts.Logger,
		})
	}

	return &Authorizer{
		clientID:     opts.ClientID,
		redirectBase: opts.RedirectBase,
		callbackPath: opts.CallbackPath,
		scopes:       opts.Scopes,
		authURL:      opts.AuthURL,
		timeout:      opts.Timeout,
		browser:      opts.Browser,
		exchanger:    opts.Exchanger,
		logger:       opts.Logger,
		output:       opts.Output,
	}
}

// AuthCodeURL builds the authorize URL for session.
//
// It carries client_id, response_type=code, redirect_uri, code_challenge_method=S256, code_challenge, scope and state.
func (a *Authorizer) AuthCodeURL(session Session) string {
	config := &oauth2.Config{
		ClientID:    session.ClientID,
		RedirectURL: session.RedirectURI,
		Scopes:      a.scopes,
		Endpoint:    oauth2.Endpoint{AuthURL: a.authURL},
	}
	return config.AuthCodeURL(session.State, session.PKCE.AuthCodeOptions()...)
}

// Authorize runs the whole flow and returns an access token.
//
// The listener is stopped before returning on every path, including timeout and cancellation of ctx.
func (a *Authorizer) Authorize(ctx context.Context) (models.AccessToken, error) {
	if a.clientID == "" {
		return models.AccessToken{}, fmt.Errorf("%w: %w", shared.ErrAuthorization, shared.ErrMissingClientID)
	}

	host, port, path, err := a.callbackAddress()
	if err != nil {
		return models.AccessToken{}, fmt.Errorf("%w: %w", shared.ErrAuthorization, err)
	}

	session := Session{
		ClientID: a.clientID,
		State:    shared.GenerateState(),
		PKCE:     GeneratePKCE(),
	}

	listener, err := server.Listen(server.ListenerOptions{
		Host:   host,
		Port:   port,
		Path:   path,
		State:  session.State,
		Logger: shared.WithLogger(a.logger, "component", "callback"),
	})
	if err != nil {
		if errors.Is(err, shared.ErrAuthorization) {
			return models.AccessToken{}, err
		}
		return models.AccessToken{}, fmt.Errorf("%w: %w", shared.ErrAuthorization, err)
	}
	defer listener.Stop()

	session.RedirectURI = listener.RedirectURI()
	a.logger.Info("waiting for authorization", "redirect_uri", session.RedirectURI, "timeout", a.timeout)

	a.open(a.AuthCodeURL(session))

	code, err := a.await(ctx, listener)
	listener.Stop()
	if err != nil {
		return models.AccessToken{}, err
	}

	return a.exchanger.Exchange(ctx, code, session.RedirectURI, session.PKCE.Verifier)
}

// callbackAddress splits the redirect base into the listener's host, port and path.
func (a *Authorizer) callbackAddress() (string, int, string, error) {
	base, err := url.Parse(a.redirectBase)
	if err != nil {
		return "", 0, "", fmt.Errorf("%w: redirect base: %v", shared.ErrInvalidConfig, err)
	}
	if base.Scheme != "http" {
		return "", 0, "", fmt.Errorf("%w: redirect base must use http, got %q", shared.ErrInvalidConfig, a.redirectBase)
	}

	port := 80
	if p := base.Port(); p != "" {
		if port, err = strconv.Atoi(p); err != nil {
			return "", 0, "", fmt.Errorf("%w: redirect base port %q", shared.ErrInvalidConfig, p)
		}
	}

	path := strings.TrimSuffix(base.Path, "/") + a.callbackPath
	return base.Hostname(), port, path, nil
}

// open launches the browser. Failing to do so is reported but does not stop the flow.
func (a *Authorizer) open(authURL string) {
	if a.browser == nil {
		fmt.Fprintf(a.output, "→ Open this URL in your browser to authorize:\n%s\n\n", authURL)
	} else {
		fmt.Fprintln(a.output, "→ Opening browser for Spotify authorization...")
		if err := a.browser.Open(authURL); err != nil {
			a.logger.Warn("failed to open browser automatically", "error", err)
			fmt.Fprintln(a.output, "⚠ Could not open browser automatically.")
			fmt.Fprintf(a.output, "Please open this URL in your browser:\n%s\n\n", authURL)
		}
	}
	fmt.Fprintf(a.output, "→ Waiting for authorization (%s timeout)...\n", a.timeout)
}

func (a *Authorizer) await(ctx context.Context, listener *server.Listener) (string, error) {
	waitCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	code, err := listener.Wait(waitCtx)
	switch {
	case err == nil:
		return code, nil
	case ctx.Err() != nil:
		return "", fmt.Errorf("%w: %w", shared.ErrAuthorization, ctx.Err())
	case errors.Is(err, context.DeadlineExceeded):
		return "", fmt.Errorf("%w: %w: no callback received within %s", shared.ErrAuthorization, shared.ErrTimeout, a.timeout)
	case errors.Is(err, shared.ErrAuthorization):
		return "", err
	default:
		return "", fmt.Errorf("%w: %w", shared.ErrAuthorization, err)
	}
}
