// Package botauth obtains the two bearer tokens a chat bot needs from its messaging
// platform: a session token and a key-manager token.
//
// Both are issued in exchange for a short-lived RS512 signed assertion built from the
// bot's RSA private key (see package assertion). An [Authenticator] owns the tokens of
// one bot; several authenticators may coexist in one process.
//
// # Lifecycle
//
// [Authenticator.Authenticate] is rate gated: a cycle starts at most once per
// Retry.MinAuthInterval (3s by default). A caller arriving while the gate is closed is
// parked for Retry.DeferredRetryDelay (30s) and the gate is checked again. A cycle
// runs the session exchange, then the key-manager exchange. Failures are retried
// within a bounded budget and reported to the caller as typed errors.
//
// # What this package must NOT do
//
//   - Validate or introspect the tokens it obtains.
//   - Sign requests other than the identity exchanges.
//   - Persist tokens across process restarts.
//   - Log token values or key material.
package botauth
