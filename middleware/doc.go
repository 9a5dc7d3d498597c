// Package middleware holds HTTP adapters that sit next to the goSession Manager.
//
// # Guards
//
//   - [RequireSession] rejects requests the Manager did not attach a session to.
//
// # Extractors
//
//   - [BearerToken] reads the token from an Authorization: Bearer header.
//   - [FirstOf] tries several extractors in order.
//
// # What this package must NOT do
//
//   - Talk to a store directly. Sessions are reached only through goSession.FromRequest.
//   - Create sessions; login handlers call goSession.Generate.
package middleware
