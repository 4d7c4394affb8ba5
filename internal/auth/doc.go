// Package auth implements the OAuth 2.0 authorization code flow with PKCE for a public (secret-less) client.
//
// # Flow
//
// [Authorizer.Authorize] generates a [PKCE] pair and a state value, starts the loopback redirect listener
// from package server, opens the authorize URL through the [Browser] capability and waits for the
// redirect. The wait is bounded by a timeout and by the caller's context; the listener is stopped on
// every path. The captured code is then traded for an access token by an [Exchanger].
//
// # Errors
//
// Failures before a code is obtained wrap [shared.ErrAuthorization] (and [shared.ErrCallback] or
// [shared.ErrTimeout] where applicable). Token endpoint failures are returned as [*TokenExchangeError],
// which matches [shared.ErrTokenExchange]. Nothing is retried: codes and verifiers are single use.
//
// A browser that fails to open is not fatal; the URL is printed so the user can open it by hand.
package auth
