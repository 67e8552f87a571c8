// Package assertion builds the short-lived RS512 signed assertions a bot presents to
// the identity endpoints in exchange for bearer tokens.
//
// # Assertion format
//
// Compact JWS signed with RS512 over the claims {sub, exp, jti}. The expiry is always
// issuance time plus [TTL]; callers cannot choose a different lifetime.
//
// # Key material
//
// Keys are obtained through a [KeyProvider]. [FileKeyProvider] re-reads the PEM file on
// every call so key rotation on disk takes effect immediately. Wrap it in
// [CachedKeyProvider] when the read cost matters.
//
// # What this package must NOT do
//
//   - Perform network I/O.
//   - Verify or parse tokens issued by the platform.
//   - Import botauth or any internal package.
package assertion
