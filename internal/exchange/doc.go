// Package exchange trades a signed assertion for a bearer token at one of the
// platform identity endpoints.
//
// # Wire format
//
// POST {base}{path} with JSON body {"token": "<assertion>"}. Only HTTP 200 is success;
// its JSON body must carry a non-empty "token" field. Other fields are ignored.
//
// # What this package must NOT do
//
//   - Retry; recovery policy belongs to the authenticator.
//   - Log token values.
//   - Be imported outside the botauth module.
package exchange
