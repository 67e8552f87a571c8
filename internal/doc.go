// Package internal holds the pieces of botauth that are private to the module.
//
// # Sub-packages
//
//   - exchange: the HTTP token exchange and the default resty transport
//   - gate: the local and Redis-backed minimum re-authentication interval
//
// # What this package must NOT do
//
//   - Export types that appear in the public botauth API, other than through
//     aliases declared in the root package.
//   - Be imported by any package outside the botauth module.
package internal
