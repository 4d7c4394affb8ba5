// Package server provides the transient loopback HTTP endpoint that receives the OAuth authorization redirect.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Callback Handler
//
// [CallbackHandler] captures the authorization code from the identity provider's redirect.
// The first request on the callback path resolves the result exactly once, with either the code or an
// error wrapping [shared.ErrCallback]. Later requests are acknowledged with a 200 page and ignored.
//
// # Listener
//
// [Listen] binds the handler to a loopback address only, so the code is never exposed to the local network.
// [Listener.Stop] is idempotent and resolves a still-pending result with a callback error, which lets the
// caller tear the listener down on timeout or interrupt without leaking a goroutine waiting on the result.
package server
