// Package client talks to the gophcheck server on behalf of one front-end
// user.
//
// # Overview
//
// The Client interface is the transport-agnostic contract used by the CLI.
// GRPCClient implements it over gRPC with the JSON codec from package api.
// Every outgoing call carries a short-lived access token minted from the
// shared secret and the configured user id; the server trusts the
// front-end to have authenticated its user.
//
// # Error Handling
//
// Server failures are returned as *RemoteError, which keeps the server's
// user-facing message and unwraps to one of the sentinels ErrUnavailable,
// ErrUnauthorized, ErrRejected, ErrAborted or ErrQuotaExhausted, so callers
// can branch with errors.Is and still print Error() verbatim.
package client
