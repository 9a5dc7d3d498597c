// Package goSession provides token-keyed request sessions for net/http.
//
// A [Manager] is standard middleware. For every request it reads a client supplied
// token (by default the "token" field of the query string or body), loads the matching
// payload from a pluggable [store.Store] and exposes it as a mutable [Session]. When the
// handler returns, the session is written back before the buffered response leaves.
//
// # Architecture boundaries
//
// goSession owns the request pipeline: token extraction, materialization and the
// implicit commit. Backends live under store/ and know nothing about HTTP. The
// in-memory backend is for development and tests only.
//
// # What this package must NOT do
//
//   - Transport tokens in cookies or sign them.
//   - Retry store operations or add timeouts of its own.
//   - Isolate concurrent requests for the same token; the last save wins.
//
// # Availability
//
// Stores that implement [store.Watcher] report disconnects. While a store is down,
// requests are served without sessions and [Generate] returns [ErrStoreUnavailable].
package goSession
