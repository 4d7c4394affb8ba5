package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/toplikes/internal/shared"
)

const defaultShutdownTimeout = 5 * time.Second

// ListenerOptions configures the redirect listener.
type ListenerOptions struct {
	Host            string // Loopback host; "127.0.0.1", "::1" or "localhost"
	Port            int    // 0 picks an ephemeral port
	Path            string // Callback path, e.g. "/callback"
	State           string // Expected OAuth state; empty disables the check
	Logger          *log.Logger
	ShutdownTimeout time.Duration
}

// Listener is a single-use loopback HTTP server that waits for one authorization redirect.
type Listener struct {
	handler         *CallbackHandler
	server          *http.Server
	ln              net.Listener
	host            string
	path            string
	logger          *log.Logger
	shutdownTimeout time.Duration
	stopOnce        sync.Once
	stopErr         error
	done            chan struct{}
}

// IsLoopback reports whether host names the local machine only.
func IsLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Listen binds the callback handler to opts.Host:opts.Port and starts serving in the background.
func Listen(opts ListenerOptions) (*Listener, error) {
	if !IsLoopback(opts.Host) {
		return nil, fmt.Errorf("%w: callback host %q is not a loopback address", shared.ErrInvalidConfig, opts.Host)
	}
	if !strings.HasPrefix(opts.Path, "/") {
		return nil, fmt.Errorf("%w: callback path %q must start with '/'", shared.ErrInvalidConfig, opts.Path)
	}
	if opts.Port < 0 || opts.Port > 65535 {
		return nil, fmt.Errorf("%w: callback port %d out of range", shared.ErrInvalidConfig, opts.Port)
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to listen on %s: %w", shared.ErrAuthorization, addr, err)
	}

	handler := NewCallbackHandler(opts.Path, opts.State, opts.Logger)
	router := NewBasicRouter()
	router.Use(LogRequests(opts.Logger))
	router.Handler(handler)

	l := &Listener{
		handler: handler,
		server: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ln:              ln,
		host:            opts.Host,
		path:            opts.Path,
		logger:          opts.Logger,
		shutdownTimeout: opts.ShutdownTimeout,
		done:            make(chan struct{}),
	}

	go l.serve()

	l.logger.Debug("callback listener started", "addr", ln.Addr().String())

	return l, nil
}

func (l *Listener) serve() {
	defer close(l.done)
	if err := l.server.Serve(l.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.handler.Send(CallbackResult{Err: fmt.Errorf("%w: callback listener failed: %w", shared.ErrAuthorization, err)})
	}
}

// Addr returns the bound network address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Port returns the bound TCP port, which differs from the requested one when 0 was asked for.
func (l *Listener) Port() int {
	if addr, ok := l.ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// RedirectURI returns the exact URI the provider must redirect to.
//
// The same string has to be sent in the authorize URL and in the token exchange.
func (l *Listener) RedirectURI() string {
	return "http://" + net.JoinHostPort(l.host, strconv.Itoa(l.Port())) + l.path
}

// Result returns the completion signal. It yields exactly one value and is then closed.
func (l *Listener) Result() <-chan CallbackResult {
	return l.handler.Result()
}

// Wait blocks until the callback resolves or ctx is done.
func (l *Listener) Wait(ctx context.Context) (string, error) {
	select {
	case res, ok := <-l.Result():
		if !ok {
			return "", fmt.Errorf("%w: result already consumed", shared.ErrCallback)
		}
		return res.Code, res.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Stop shuts the listener down. It is safe to call more than once and before any request arrived;
// a pending result is resolved with a callback error.
func (l *Listener) Stop() error {
	l.stopOnce.Do(func() {
		l.handler.Send(CallbackResult{Err: fmt.Errorf("%w: listener stopped before callback", shared.ErrCallback)})

		ctx, cancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
		defer cancel()

		if err := l.server.Shutdown(ctx); err != nil {
			l.logger.Warn("error shutting down callback listener", "error", err)
			l.stopErr = l.server.Close()
		}

		<-l.done
		l.logger.Debug("callback listener stopped")
	})
	return l.stopErr
}
